package models

import "time"

// Режимы рынка, определяемые классификатором
const (
	RegimeStrongBullish = "STRONG_BULLISH" // SMA20 > SMA50 > SMA200, цена выше всех
	RegimeWeakBullish   = "WEAK_BULLISH"   // цена выше SMA50/200, но порядок SMA нарушен
	RegimeChoppy        = "CHOPPY"         // противоречивый порядок SMA
	RegimeWeakBearish   = "WEAK_BEARISH"
	RegimeStrongBearish = "STRONG_BEARISH" // SMA20 < SMA50 < SMA200, цена ниже всех
)

// ContextAnalysis - результат классификации рыночного контекста
//
// Вычисляется заново каждый цикл и живёт только внутри цикла:
// используется для гейтинга стратегий, никогда не персистится
// как авторитетное состояние.
type ContextAnalysis struct {
	Symbol          string    `json:"symbol"`
	Regime          string    `json:"regime"`
	AlignmentScore  float64   `json:"alignment_score"`  // [0,100] - насколько чисто разведены SMA
	VolatilityRatio float64   `json:"volatility_ratio"` // текущий ATR / средний ATR за 20 периодов
	VolumeRatio     float64   `json:"volume_ratio"`     // текущий объём / средний объём за 20 периодов
	Confidence      float64   `json:"confidence"`       // [0,100]
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// IsBullish возвращает true для бычьих режимов
func (c *ContextAnalysis) IsBullish() bool {
	return c.Regime == RegimeStrongBullish || c.Regime == RegimeWeakBullish
}

// IsBearish возвращает true для медвежьих режимов
func (c *ContextAnalysis) IsBearish() bool {
	return c.Regime == RegimeStrongBearish || c.Regime == RegimeWeakBearish
}
