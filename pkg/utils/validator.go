package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация входных данных предметной области: символы
// торговых пар, названия площадок, объёмы и пороги конфигурации.

var (
	ErrEmptySymbol    = errors.New("symbol is empty")
	ErrInvalidSymbol  = errors.New("symbol must be in BASE/QUOTE format")
	ErrEmptyVenue     = errors.New("venue is empty")
	ErrInvalidVenue   = errors.New("venue contains invalid characters")
	ErrInvalidVolume  = errors.New("volume must be positive")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrInvalidThreshold = errors.New("threshold must be positive")
)

const (
	maxSymbolLen = 32
	maxVenueLen  = 64
)

// ValidateSymbol требует строгий формат BASE/QUOTE: ровно один '/',
// обе стороны непустые буквенно-цифровые строки. В отличие от
// биржевых API, здесь не допускаются альтернативные разделители
// (дефис, подчёркивание) - граф индексирует узлы по currency-venue
// паре и неоднозначный формат ломает BaseQuote.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if len(symbol) > maxSymbolLen {
		return fmt.Errorf("%w: too long", ErrInvalidSymbol)
	}

	idx := strings.IndexByte(symbol, '/')
	if idx <= 0 || idx == len(symbol)-1 {
		return ErrInvalidSymbol
	}
	if strings.IndexByte(symbol[idx+1:], '/') != -1 {
		return fmt.Errorf("%w: multiple separators", ErrInvalidSymbol)
	}

	base, quote := symbol[:idx], symbol[idx+1:]
	if !isAlnum(base) || !isAlnum(quote) {
		return fmt.Errorf("%w: non-alphanumeric currency code", ErrInvalidSymbol)
	}
	return nil
}

// IsValidSymbol - булев помощник над ValidateSymbol.
func IsValidSymbol(symbol string) bool {
	return ValidateSymbol(symbol) == nil
}

// ExtractBaseCurrency возвращает часть символа до первого '/', или "" если
// '/' нет или перед ним пусто. Полную проверку ValidateSymbol не выполняет.
func ExtractBaseCurrency(symbol string) string {
	idx := strings.IndexByte(symbol, '/')
	if idx <= 0 {
		return ""
	}
	return symbol[:idx]
}

// ExtractQuoteCurrency возвращает котируемую валюту символа BASE/QUOTE.
func ExtractQuoteCurrency(symbol string) string {
	idx := strings.IndexByte(symbol, '/')
	if idx < 0 || idx == len(symbol)-1 {
		return ""
	}
	return symbol[idx+1:]
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ValidateVenue проверяет имя торговой площадки: непустое, разумной
// длины, буквы/цифры/дефис/подчёркивание.
func ValidateVenue(venue string) error {
	if venue == "" {
		return ErrEmptyVenue
	}
	if len(venue) > maxVenueLen {
		return fmt.Errorf("%w: too long", ErrInvalidVenue)
	}
	for _, r := range venue {
		ok := r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-'
		if !ok {
			return ErrInvalidVenue
		}
	}
	return nil
}

// ValidateVolume требует строго положительный объём.
func ValidateVolume(volume float64) error {
	if volume <= 0 {
		return ErrInvalidVolume
	}
	return nil
}

// ValidatePrice требует строго положительную цену (bid/ask).
func ValidatePrice(price float64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ValidateThreshold требует строго положительный порог (min_profit_threshold
// и подобные конфигурационные значения).
func ValidateThreshold(threshold float64) error {
	if threshold <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}

// ValidationErrors накапливает несколько ошибок валидации, привязанных
// к полям, для составных структур вроде конфигурации.
type ValidationErrors []FieldError

// FieldError - одна ошибка валидации поля.
type FieldError struct {
	Field   string
	Message string
}

// Add добавляет ошибку с готовым текстом.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// AddError добавляет ошибку из err.Error(), игнорируя nil.
func (e *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	e.Add(field, err.Error())
}

// HasErrors сообщает, накоплена ли хотя бы одна ошибка.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Error реализует интерфейс error, объединяя все сообщения.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return strings.Join(parts, "; ")
}
