package strategy

import (
	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// Breakout - стратегия пробоя диапазона
//
// Вход: закрытие выше максимума последних lookback свечей при
// повышенном объёме. В CHOPPY активна только при всплеске
// волатильности и объёма (ложные пробои в тихом боковике).
type Breakout struct {
	lookback       int
	minVolumeRatio float64
}

// NewBreakout создаёт стратегию пробоя со стандартным окном
func NewBreakout() *Breakout {
	return &Breakout{
		lookback:       20,
		minVolumeRatio: 1.2,
	}
}

func (s *Breakout) ID() string { return "breakout" }

func (s *Breakout) Activation() ActivationTable {
	return ActivationTable{
		models.RegimeStrongBullish: {Mode: ActivationEnabled},
		models.RegimeWeakBullish:   {Mode: ActivationEnabled},
		models.RegimeChoppy:        {Mode: ActivationConditional, MinVolatilityRatio: 1.5, MinVolumeRatio: 1.5},
		models.RegimeWeakBearish:   {Mode: ActivationDisabled},
		models.RegimeStrongBearish: {Mode: ActivationDisabled},
	}
}

func (s *Breakout) GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error) {
	if len(snapshot.Candles) < s.lookback+2 {
		return nil, nil
	}

	price := snapshot.LastClose()
	resistance := indicators.SwingHigh(snapshot.Candles, s.lookback)
	if !indicators.Valid(resistance) || price <= resistance {
		return nil, nil
	}

	// Пробой без объёма не подтверждён
	if ctx != nil && ctx.VolumeRatio < s.minVolumeRatio {
		return nil, nil
	}

	return &models.TradeIntent{
		Action:     models.ActionBuy,
		Symbol:     snapshot.Symbol,
		EntryPrice: price,
		StrategyID: s.ID(),
		BestEffort: true,
		Comment:    "close above swing high",
	}, nil
}

func (s *Breakout) ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool {
	if len(snapshot.Candles) < s.lookback+2 {
		return false
	}
	// Провал обратно под пробитый уровень - пробой не состоялся
	support := indicators.SwingLow(snapshot.Candles, s.lookback)
	price := snapshot.LastClose()
	return indicators.Valid(support) && price > 0 && price < support
}
