package strategy

import (
	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// MeanReversion - возврат к средней
//
// Вход: цена под нижней полосой Боллинжера + перепроданность по RSI.
// Активна только в слабых (неэкстремальных) трендовых режимах:
// в CHOPPY нет средней, к которой возвращаться, в сильном тренде
// перепроданность - начало движения, а не разворот.
type MeanReversion struct {
	bbPeriod  int
	bbStdDev  float64
	rsiPeriod int
	rsiFloor  float64
}

// NewMeanReversion создаёт стратегию возврата к средней
func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		bbPeriod:  20,
		bbStdDev:  2.0,
		rsiPeriod: 14,
		rsiFloor:  30,
	}
}

func (s *MeanReversion) ID() string { return "meanrev" }

func (s *MeanReversion) Activation() ActivationTable {
	return ActivationTable{
		models.RegimeStrongBullish: {Mode: ActivationDisabled},
		models.RegimeWeakBullish:   {Mode: ActivationEnabled},
		models.RegimeChoppy:        {Mode: ActivationDisabled},
		models.RegimeWeakBearish:   {Mode: ActivationEnabled},
		models.RegimeStrongBearish: {Mode: ActivationDisabled},
	}
}

func (s *MeanReversion) GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error) {
	if len(snapshot.Candles) < s.bbPeriod+1 {
		return nil, nil
	}

	_, _, lower := indicators.BollingerBands(snapshot.Candles, s.bbPeriod, s.bbStdDev)
	rsi := indicators.Last(indicators.RSI(snapshot.Candles, s.rsiPeriod))
	price := snapshot.LastClose()

	lowerBand := indicators.Last(lower)
	if !indicators.Valid(lowerBand) || !indicators.Valid(rsi) || price <= 0 {
		return nil, nil
	}

	if price >= lowerBand || rsi >= s.rsiFloor {
		return nil, nil
	}

	return &models.TradeIntent{
		Action:     models.ActionBuy,
		Symbol:     snapshot.Symbol,
		EntryPrice: price,
		StrategyID: s.ID(),
		BestEffort: true,
		Comment:    "oversold below lower bollinger band",
	}, nil
}

// ShouldExit - выход при возврате цены к средней полосе
func (s *MeanReversion) ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool {
	if len(snapshot.Candles) < s.bbPeriod+1 {
		return false
	}
	middle, _, _ := indicators.BollingerBands(snapshot.Candles, s.bbPeriod, s.bbStdDev)
	mid := indicators.Last(middle)
	price := snapshot.LastClose()
	return indicators.Valid(mid) && price >= mid
}
