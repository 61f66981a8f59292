package utils

import (
	"math"
)

// math.go - математические утилиты торгового ядра
//
// Все функции чистые, без побочных эффектов.

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Floor(value/lotSize) * lotSize
}

// RoundToLotSizeUp округляет значение ВВЕРХ до ближайшего кратного lotSize.
// Нужно когда требуется гарантировать минимальный объём (minQty биржи).
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// PercentChange возвращает изменение цены в процентах
//
//	PercentChange(100, 105) = 5.0
//	PercentChange(100, 95)  = -5.0
func PercentChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}

// CalculatePNL расчитывает прибыль/убыток по позиции
//
// Формулы:
//   - LONG:  PNL = (P_close - P_open) × qty
//   - SHORT: PNL = (P_open - P_close) × qty
func CalculatePNL(side string, entryPrice, currentPrice, quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}

	switch side {
	case "LONG":
		return (currentPrice - entryPrice) * quantity
	case "SHORT":
		return (entryPrice - currentPrice) * quantity
	default:
		return 0
	}
}

// WinRate возвращает долю прибыльных сделок (0.0 - 1.0)
//
// Сделки с нулевым результатом не учитываются ни в числителе,
// ни в знаменателе.
func WinRate(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// ProfitFactor возвращает отношение валовой прибыли к валовому убытку
//
// Параметры:
//   - grossProfit: сумма PNL прибыльных сделок (>= 0)
//   - grossLoss: сумма PNL убыточных сделок (<= 0)
//
// Возвращает 0 при отсутствии убытков (метрика не определена).
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	loss := math.Abs(grossLoss)
	if loss == 0 {
		return 0
	}
	return grossProfit / loss
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
