package strategy

import (
	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// TrendFollowing - трендовая стратегия
//
// Вход: откат к EMA-20 внутри подтверждённого восходящего тренда
// (EMA20 > EMA50, цена в пределах pullbackPct от EMA20 сверху).
// Требует сильно выровненного режима: активна только в
// STRONG_BULLISH, условно в WEAK_BULLISH при высоком alignment.
type TrendFollowing struct {
	fastPeriod  int
	slowPeriod  int
	pullbackPct float64 // максимальное расстояние цены от EMA20, % (0.01 = 1%)
}

// NewTrendFollowing создаёт трендовую стратегию со стандартными периодами
func NewTrendFollowing() *TrendFollowing {
	return &TrendFollowing{
		fastPeriod:  20,
		slowPeriod:  50,
		pullbackPct: 0.01,
	}
}

func (s *TrendFollowing) ID() string { return "trend" }

func (s *TrendFollowing) Activation() ActivationTable {
	return ActivationTable{
		models.RegimeStrongBullish: {Mode: ActivationEnabled},
		models.RegimeWeakBullish:   {Mode: ActivationConditional, MinAlignment: 60},
		models.RegimeChoppy:        {Mode: ActivationDisabled},
		models.RegimeWeakBearish:   {Mode: ActivationDisabled},
		models.RegimeStrongBearish: {Mode: ActivationDisabled},
	}
}

func (s *TrendFollowing) GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error) {
	if len(snapshot.Candles) < s.slowPeriod+1 {
		return nil, nil
	}

	emaFast := indicators.Last(indicators.EMA(snapshot.Candles, s.fastPeriod))
	emaSlow := indicators.Last(indicators.EMA(snapshot.Candles, s.slowPeriod))
	price := snapshot.LastClose()

	if !indicators.Valid(emaFast) || !indicators.Valid(emaSlow) || price <= 0 {
		return nil, nil
	}

	// Тренд подтверждён и цена откатилась к быстрой EMA
	uptrend := emaFast > emaSlow
	nearFast := price >= emaFast && price <= emaFast*(1+s.pullbackPct)

	if !uptrend || !nearFast {
		return nil, nil
	}

	return &models.TradeIntent{
		Action:     models.ActionBuy,
		Symbol:     snapshot.Symbol,
		EntryPrice: price,
		StrategyID: s.ID(),
		BestEffort: true,
		Comment:    "pullback to EMA20 in confirmed uptrend",
	}, nil
}

func (s *TrendFollowing) ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool {
	if len(snapshot.Candles) < s.slowPeriod+1 {
		return false
	}
	// Слом тренда: быстрая EMA ушла под медленную
	emaFast := indicators.Last(indicators.EMA(snapshot.Candles, s.fastPeriod))
	emaSlow := indicators.Last(indicators.EMA(snapshot.Candles, s.slowPeriod))
	return indicators.Valid(emaFast) && indicators.Valid(emaSlow) && emaFast < emaSlow
}
