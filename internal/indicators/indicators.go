package indicators

import (
	"math"

	"tradebot/internal/models"
)

// indicators.go - библиотека технических индикаторов
//
// Все функции чистые: вход - упорядоченная последовательность свечей,
// выход - срез той же длины, выровненный по входу. Индексы до
// заполнения окна содержат NaN (проверка через Valid).
//
// Короткий вход НЕ является ошибкой: возвращается срез из NaN.
// Проверка минимальной длины - обязанность вызывающего кода.

// Valid возвращает true, если значение индикатора определено
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

// nanSeries возвращает срез длины n, заполненный NaN
func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// SMA вычисляет простую скользящую среднюю по ценам закрытия
//
// Первые period-1 значений - NaN.
func SMA(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}

	var sum float64
	for i, c := range candles {
		sum += c.Close
		if i >= period {
			sum -= candles[i-period].Close
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// SMAValues - SMA по произвольному ряду значений
func SMAValues(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	count := 0
	for i, v := range values {
		if math.IsNaN(v) {
			// NaN в начале ряда (warmup вложенного индикатора) пропускаем,
			// окно начинает заполняться с первого валидного значения
			continue
		}
		sum += v
		count++
		if count > period {
			sum -= values[i-period]
			count = period
		}
		if count >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA вычисляет экспоненциальную скользящую среднюю по ценам закрытия
//
// Начальное значение - SMA первых period свечей.
func EMA(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(period)
	out[period-1] = ema

	k := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		ema = candles[i].Close*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// TrueRange вычисляет истинный диапазон для свечи i
//
// TR = max(high-low, |high-prevClose|, |low-prevClose|)
// Для первой свечи prevClose неизвестен: TR = high-low.
func TrueRange(candles []models.Candle, i int) float64 {
	c := candles[i]
	if i == 0 {
		return c.High - c.Low
	}
	prevClose := candles[i-1].Close
	return math.Max(c.High-c.Low,
		math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR вычисляет Average True Range со сглаживанием Уайлдера
//
// ATR[period] = mean(TR[1..period])
// ATR[i] = (ATR[i-1]*(period-1) + TR[i]) / period
//
// ВАЖНО: считается всегда из сырых OHLC, никаких предрасчитанных
// полей у свечи нет и быть не должно.
func ATR(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	// Первое значение - среднее TR по первым period диапазонам
	// (TR первой свечи пропускаем: нет prevClose)
	var sum float64
	for i := 1; i <= period; i++ {
		sum += TrueRange(candles, i)
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + TrueRange(candles, i)) / float64(period)
		out[i] = atr
	}
	return out
}

// RSI вычисляет индекс относительной силы со сглаживанием Уайлдера
//
// Первые period значений - NaN.
func RSI(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// BollingerBands вычисляет полосы Боллинжера (SMA ± stdDev*σ)
//
// Возвращает три выровненных ряда: middle, upper, lower.
func BollingerBands(candles []models.Candle, period int, stdDev float64) (middle, upper, lower []float64) {
	middle = SMA(candles, period)
	upper = nanSeries(len(candles))
	lower = nanSeries(len(candles))
	if period <= 0 || len(candles) < period {
		return middle, upper, lower
	}

	for i := period - 1; i < len(candles); i++ {
		mean := middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := candles[j].Close - mean
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(period))
		upper[i] = mean + stdDev*sigma
		lower[i] = mean - stdDev*sigma
	}
	return middle, upper, lower
}

// Last возвращает последнее значение ряда (NaN для пустого ряда)
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// SwingLow ищет минимум low за последние lookback свечей
// (не считая последней) - ближайшая структурная поддержка
func SwingLow(candles []models.Candle, lookback int) float64 {
	n := len(candles)
	if n < 2 {
		return math.NaN()
	}
	start := n - 1 - lookback
	if start < 0 {
		start = 0
	}
	low := math.MaxFloat64
	for i := start; i < n-1; i++ {
		if candles[i].Low < low {
			low = candles[i].Low
		}
	}
	if low == math.MaxFloat64 {
		return math.NaN()
	}
	return low
}

// SwingHigh ищет максимум high за последние lookback свечей
// (не считая последней) - ближайшее структурное сопротивление
func SwingHigh(candles []models.Candle, lookback int) float64 {
	n := len(candles)
	if n < 2 {
		return math.NaN()
	}
	start := n - 1 - lookback
	if start < 0 {
		start = 0
	}
	high := -math.MaxFloat64
	for i := start; i < n-1; i++ {
		if candles[i].High > high {
			high = candles[i].High
		}
	}
	if high == -math.MaxFloat64 {
		return math.NaN()
	}
	return high
}
