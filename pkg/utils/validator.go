package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация пользовательского ввода API

// symbolPattern: тикеры вида BTCUSDT, 1000PEPEUSDT
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

// validIntervals - интервалы свечей, поддерживаемые биржей
var validIntervals = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "1d": true,
}

// ValidateSymbol проверяет формат торгового символа (BTCUSDT)
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if symbol != strings.ToUpper(symbol) {
		return fmt.Errorf("symbol must be uppercase: %s", symbol)
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// ValidateInterval проверяет интервал свечей ("1h", "4h", ...)
func ValidateInterval(interval string) error {
	if !validIntervals[interval] {
		return fmt.Errorf("unsupported candle interval: %s", interval)
	}
	return nil
}

// ValidateCapital проверяет выделенный капитал бота
func ValidateCapital(capital float64) error {
	if capital <= 0 {
		return fmt.Errorf("capital must be positive, got %.2f", capital)
	}
	return nil
}

// ValidateFraction проверяет долю в диапазоне (0, max]
// Используется для риск-параметров (0.02 = 2%).
func ValidateFraction(name string, value, max float64) error {
	if value <= 0 || value > max {
		return fmt.Errorf("%s must be in (0, %.2f], got %.4f", name, max, value)
	}
	return nil
}
