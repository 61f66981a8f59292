package strategy

import (
	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// Momentum - скальпинг на импульсе
//
// Вход: серия растущих закрытий с сильным RSI. Условно активна
// во всех режимах и только при всплеске волатильности И объёма -
// без движения скальпинг не окупает комиссии.
type Momentum struct {
	streakLen int
	rsiPeriod int
	rsiFloor  float64
}

// NewMomentum создаёт импульсную стратегию
func NewMomentum() *Momentum {
	return &Momentum{
		streakLen: 3,
		rsiPeriod: 14,
		rsiFloor:  60,
	}
}

func (s *Momentum) ID() string { return "momentum" }

func (s *Momentum) Activation() ActivationTable {
	spike := ActivationRule{
		Mode:               ActivationConditional,
		MinVolatilityRatio: 1.5,
		MinVolumeRatio:     1.5,
	}
	return ActivationTable{
		models.RegimeStrongBullish: spike,
		models.RegimeWeakBullish:   spike,
		models.RegimeChoppy:        spike,
		models.RegimeWeakBearish:   spike,
		models.RegimeStrongBearish: {Mode: ActivationDisabled},
	}
}

func (s *Momentum) GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error) {
	candles := snapshot.Candles
	if len(candles) < s.rsiPeriod+s.streakLen+1 {
		return nil, nil
	}

	// Серия растущих закрытий
	n := len(candles)
	for i := n - s.streakLen; i < n; i++ {
		if candles[i].Close <= candles[i-1].Close {
			return nil, nil
		}
	}

	rsi := indicators.Last(indicators.RSI(candles, s.rsiPeriod))
	if !indicators.Valid(rsi) || rsi < s.rsiFloor {
		return nil, nil
	}

	return &models.TradeIntent{
		Action:     models.ActionBuy,
		Symbol:     snapshot.Symbol,
		EntryPrice: snapshot.LastClose(),
		StrategyID: s.ID(),
		BestEffort: true,
		Comment:    "momentum streak with strong rsi",
	}, nil
}

// ShouldExit - импульс угас: два падающих закрытия подряд
func (s *Momentum) ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool {
	candles := snapshot.Candles
	if len(candles) < 3 {
		return false
	}
	n := len(candles)
	return candles[n-1].Close < candles[n-2].Close && candles[n-2].Close < candles[n-3].Close
}
