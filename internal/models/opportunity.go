package models

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity описывает обнаруженный прибыльный цикл обмена валют между
// узлами графа (currency-venue пары). Иммутабелен после создания детектором.
type Opportunity struct {
	ID string `json:"id"`

	// Path - упорядоченный список имён узлов, образующих цикл: "BTC_binance",
	// "ETH_binance", ... Первый и последний элемент подразумевают один и тот
	// же узел (цикл замыкается), но хранится только один раз в начале.
	Path []string `json:"path"`

	ProfitPercentage float64 `json:"profit_percentage"` // (мультипликатор - 1) * 100, в процентах
	Confidence       int     `json:"confidence"`        // [0, 100]

	// Venues - площадки, через которые проходит цикл, без повторов, в
	// порядке первого появления.
	Venues []string `json:"venues"`

	// MaxVolume - ориентировочный доступный объём по циклу, выведенный из
	// минимального наблюдённого Tick.Volume среди рёбер цикла и
	// зажатый сверху настройкой max_position_size. Информационное поле.
	MaxVolume float64 `json:"max_volume"`

	DetectedAt time.Time `json:"detected_at"`
}

// NewOpportunityID генерирует стабильный идентификатор возможности.
func NewOpportunityID() string {
	return uuid.NewString()
}

// Len возвращает длину цикла (количество узлов).
func (o *Opportunity) Len() int {
	return len(o.Path)
}
