package models

import "time"

// Candle представляет одну OHLCV свечу
//
// ВАЖНО: свеча содержит только сырые рыночные данные.
// Индикаторы (ATR, SMA и т.д.) всегда вычисляются заново из OHLC,
// а не читаются из предрасчитанных полей.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// MarketSnapshot - срез рыночных данных для одного цикла принятия решений
//
// Неизменяем после получения: все компоненты цикла (классификатор,
// стратегия, exit-менеджер) читают один и тот же снимок.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol"`
	Candles   []Candle  `json:"candles"` // упорядочены по времени, старые → новые
	FetchedAt time.Time `json:"fetched_at"`
}

// MinCandlesForRegime - минимум свечей для классификации режима рынка
// (нужна SMA-200 плюс запас для ATR)
const MinCandlesForRegime = 200

// LastClose возвращает цену закрытия последней свечи (0 если свечей нет)
func (s *MarketSnapshot) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// LastVolume возвращает объём последней свечи (0 если свечей нет)
func (s *MarketSnapshot) LastVolume() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Volume
}

// Closes возвращает срез цен закрытия
func (s *MarketSnapshot) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}
