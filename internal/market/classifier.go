package market

import (
	"math"
	"time"

	"go.uber.org/zap"

	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// Classifier определяет рыночный режим по окну свечей
//
// Алгоритм:
// 1. SMA-20/50/200 по ценам закрытия
// 2. Режим по порядку SMA и положению цены относительно них
// 3. Alignment score - непрерывная мера разведения SMA (не бинарный флаг),
//    питает пороги активации стратегий
// 4. Volatility ratio = текущий ATR / средний ATR за 20 предыдущих
//    периодов, ATR пересчитывается из сырых OHLC по всему хвосту окна
// 5. Volume ratio = текущий объём / средний объём за 20 периодов
// 6. Confidence - взвешенная комбинация, обрезанная в [0,100]
//
// Политика отказов: при нехватке данных или невалидных ATR/объёме
// классификатор ЛОГИРУЕТ и возвращает nil, никогда не паникует.
// Что делать с nil-контекстом - решает оркестратор, не классификатор.
type Classifier struct {
	log *zap.Logger

	// Периоды SMA для определения режима
	fastPeriod int // 20
	midPeriod  int // 50
	slowPeriod int // 200

	// Период ATR и окно усреднения ATR/объёма
	atrPeriod int // 14
	avgWindow int // 20
}

// NewClassifier создаёт классификатор со стандартными периодами
func NewClassifier(log *zap.Logger) *Classifier {
	return &Classifier{
		log:        log,
		fastPeriod: 20,
		midPeriod:  50,
		slowPeriod: 200,
		atrPeriod:  14,
		avgWindow:  20,
	}
}

// Classify анализирует снимок рынка
//
// Возвращает nil если данных недостаточно (< 200 свечей) или
// ATR/объём не определены - вызывающий код обязан обработать nil.
func (c *Classifier) Classify(snapshot *models.MarketSnapshot) *models.ContextAnalysis {
	if snapshot == nil || len(snapshot.Candles) < models.MinCandlesForRegime {
		n := 0
		if snapshot != nil {
			n = len(snapshot.Candles)
		}
		c.log.Debug("insufficient candles for regime classification",
			zap.Int("candles", n),
			zap.Int("required", models.MinCandlesForRegime))
		return nil
	}

	candles := snapshot.Candles
	price := snapshot.LastClose()

	smaFast := indicators.Last(indicators.SMA(candles, c.fastPeriod))
	smaMid := indicators.Last(indicators.SMA(candles, c.midPeriod))
	smaSlow := indicators.Last(indicators.SMA(candles, c.slowPeriod))

	if !indicators.Valid(smaFast) || !indicators.Valid(smaMid) || !indicators.Valid(smaSlow) || price <= 0 {
		c.log.Warn("sma values undefined, skipping context",
			zap.String("symbol", snapshot.Symbol))
		return nil
	}

	// ATR всегда пересчитывается из сырых OHLC по всему окну.
	// Никогда не читаем "готовый" ATR из свечи - такого поля нет.
	atrSeries := indicators.ATR(candles, c.atrPeriod)
	currentATR := indicators.Last(atrSeries)
	// Знаменатель - среднее ИСТОРИЧЕСКИХ ATR: окно заканчивается
	// на предпоследнем значении, текущий ATR в него не входит
	// (иначе всплеск волатильности размывает собственную базу)
	avgATR := indicators.Last(indicators.SMAValues(atrSeries[:len(atrSeries)-1], c.avgWindow))

	currentVolume := snapshot.LastVolume()
	avgVolume := c.averageVolume(candles)

	if !indicators.Valid(currentATR) || currentATR <= 0 || currentVolume <= 0 {
		c.log.Warn("atr or volume not positive, no context for this cycle",
			zap.String("symbol", snapshot.Symbol),
			zap.Float64("atr", currentATR),
			zap.Float64("volume", currentVolume))
		return nil
	}

	volatilityRatio := 1.0
	if indicators.Valid(avgATR) && avgATR > 0 {
		volatilityRatio = currentATR / avgATR
	}
	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = currentVolume / avgVolume
	}

	regime := classifyRegime(price, smaFast, smaMid, smaSlow)
	alignment := alignmentScore(price, smaFast, smaMid, smaSlow)
	confidence := confidenceScore(alignment, volatilityRatio, volumeRatio)

	return &models.ContextAnalysis{
		Symbol:          snapshot.Symbol,
		Regime:          regime,
		AlignmentScore:  alignment,
		VolatilityRatio: volatilityRatio,
		VolumeRatio:     volumeRatio,
		Confidence:      confidence,
		EvaluatedAt:     time.Now().UTC(),
	}
}

// classifyRegime определяет режим по порядку SMA и положению цены
func classifyRegime(price, fast, mid, slow float64) string {
	fullyBullish := fast > mid && mid > slow
	fullyBearish := fast < mid && mid < slow

	switch {
	case fullyBullish && price > fast:
		return models.RegimeStrongBullish
	case price > mid && price > slow:
		return models.RegimeWeakBullish
	case fullyBearish && price < fast:
		return models.RegimeStrongBearish
	case price < mid && price < slow:
		return models.RegimeWeakBearish
	default:
		return models.RegimeChoppy
	}
}

// alignmentScore - непрерывная мера того, насколько чисто разведены SMA
//
// Суммарный относительный спред между соседними SMA нормируется так,
// что 4% суммарного спреда дают 100 баллов. Это не бинарный флаг:
// слабое разведение (1%) даст ~25 баллов и не пройдёт строгие пороги
// активации трендовых стратегий.
func alignmentScore(price, fast, mid, slow float64) float64 {
	if price <= 0 {
		return 0
	}
	spread := math.Abs(fast-mid)/price + math.Abs(mid-slow)/price
	return clamp(spread/0.04*100, 0, 100)
}

// confidenceScore - взвешенная уверенность классификации
//
// Веса: 50% alignment, 25% стабильность волатильности,
// 25% консистентность объёма. Отклонение ratio от 1.0 в любую
// сторону снижает соответствующую компоненту.
func confidenceScore(alignment, volatilityRatio, volumeRatio float64) float64 {
	volScore := clamp(100-math.Abs(volatilityRatio-1)*100, 0, 100)
	volumeScore := clamp(100-math.Abs(volumeRatio-1)*50, 0, 100)
	return clamp(0.5*alignment+0.25*volScore+0.25*volumeScore, 0, 100)
}

// averageVolume - средний объём за avgWindow свечей до последней
func (c *Classifier) averageVolume(candles []models.Candle) float64 {
	n := len(candles)
	if n < c.avgWindow+1 {
		return 0
	}
	var sum float64
	for i := n - 1 - c.avgWindow; i < n-1; i++ {
		sum += candles[i].Volume
	}
	return sum / float64(c.avgWindow)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
