package models

import "time"

// Tick представляет одно обновление котировки с биржи: bid/ask по символу
// BASE/QUOTE на конкретной площадке.
//
// Tick иммутабелен с момента создания в Processor.Submit: sequence
// присваивается один раз на входе в систему и больше не меняется.
type Tick struct {
	Venue     string
	Symbol    string // формат BASE/QUOTE, например "BTC/USDT"
	Bid       float64
	Ask       float64
	Volume    float64
	Timestamp time.Time

	// Sequence - монотонный номер, присваиваемый на входе (ingress).
	// Используется графом для last-writer-wins разрешения гонок между
	// обработчиками разных тиков одного и того же ребра.
	Sequence uint64
}

// reset обнуляет поля для повторного использования через sync.Pool.
func (t *Tick) reset() {
	t.Venue = ""
	t.Symbol = ""
	t.Bid = 0
	t.Ask = 0
	t.Volume = 0
	t.Timestamp = time.Time{}
	t.Sequence = 0
}

// Reset - экспортируемая обёртка над reset, используется пулом в internal/ingest.
func (t *Tick) Reset() { t.reset() }

// BaseQuote разбивает Symbol на базовую и котируемую валюту.
// Вызывающий код должен предварительно убедиться, что Symbol прошёл
// ValidateSymbol - функция не делает повторную валидацию.
func (t *Tick) BaseQuote() (base, quote string) {
	for i := 0; i < len(t.Symbol); i++ {
		if t.Symbol[i] == '/' {
			return t.Symbol[:i], t.Symbol[i+1:]
		}
	}
	return "", ""
}
