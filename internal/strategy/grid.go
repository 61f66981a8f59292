package strategy

import (
	"fmt"
	"strconv"
	"sync"

	"tradebot/internal/models"
)

// Grid - сеточная стратегия (режим-агностична: активна всегда)
//
// Вокруг якорной цены строится сетка уровней с шагом spacingPct.
// Пересечение уровня вниз - покупка уровня, возврат на уровень
// выше - продажа купленного объёма.
//
// СТЕЙТФУЛ: стратегия помнит, какие уровни куплены (через OnFill).
// ИНВАРИАНТ fail-closed: SELL эмитится ТОЛЬКО для уровня с записанной
// покупкой. Продажа несуществующего уровня - логическая ошибка,
// она отклоняется до эмиссии сигнала, а не "авось исполнится".
type Grid struct {
	levels      int     // количество уровней ниже якоря
	spacingPct  float64 // шаг сетки (0.01 = 1%)
	qtyPerLevel float64 // объём одного уровня в базовой валюте

	mu       sync.Mutex
	anchor   float64
	openBuys map[int]float64 // уровень → купленный объём
}

// NewGrid создаёт сеточную стратегию
func NewGrid() *Grid {
	return &Grid{
		levels:      5,
		spacingPct:  0.01,
		qtyPerLevel: 0, // 0 = риск-базированный размер рассчитает exit-менеджер
		openBuys:    make(map[int]float64),
	}
}

func (s *Grid) ID() string { return "grid" }

func (s *Grid) Activation() ActivationTable {
	// Сетка торгует в любом режиме - в том числе при nil-контексте
	return ActivationTable{
		models.RegimeStrongBullish: {Mode: ActivationEnabled},
		models.RegimeWeakBullish:   {Mode: ActivationEnabled},
		models.RegimeChoppy:        {Mode: ActivationEnabled},
		models.RegimeWeakBearish:   {Mode: ActivationEnabled},
		models.RegimeStrongBearish: {Mode: ActivationEnabled},
	}
}

func (s *Grid) GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error) {
	price := snapshot.LastClose()
	if price <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Первый цикл: ставим якорь, сделок нет
	if s.anchor <= 0 {
		s.anchor = price
		return nil, nil
	}

	// Продажи проверяем первыми: освобождение уровня важнее нового входа
	for level, qty := range s.openBuys {
		if qty <= 0 {
			continue
		}
		sellPrice := s.levelPrice(level - 1)
		if price >= sellPrice {
			return s.emitSell(snapshot.Symbol, level, price)
		}
	}

	// Покупка самого глубокого свободного уровня, до которого дошла цена
	for level := s.levels; level >= 1; level-- {
		if _, taken := s.openBuys[level]; taken {
			continue
		}
		if price <= s.levelPrice(level) {
			return &models.TradeIntent{
				Action:     models.ActionBuy,
				Symbol:     snapshot.Symbol,
				Quantity:   s.qtyPerLevel,
				EntryPrice: price,
				StrategyID: s.ID(),
				BestEffort: true,
				Tag:        strconv.Itoa(level),
				Comment:    fmt.Sprintf("grid buy level %d", level),
			}, nil
		}
	}

	return nil, nil
}

// emitSell формирует SELL для уровня, валидируя состояние.
// Вызывается под mu.
func (s *Grid) emitSell(symbol string, level int, price float64) (*models.TradeIntent, error) {
	qty, ok := s.openBuys[level]
	if !ok || qty <= 0 {
		// Fail closed: состояние не подтверждает покупку - сигнала нет
		return nil, fmt.Errorf("grid level %d: %w", level, ErrNoRecordedEntry)
	}

	return &models.TradeIntent{
		Action:     models.ActionSell,
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		StrategyID: s.ID(),
		Tag:        strconv.Itoa(level),
		Comment:    fmt.Sprintf("grid sell level %d", level),
	}, nil
}

// OnFill обновляет состояние сетки после исполнения ордера
func (s *Grid) OnFill(intent *models.TradeIntent, result *models.OrderResult) {
	if intent == nil || result == nil || result.Status != models.OrderStatusFilled {
		return
	}
	level, err := strconv.Atoi(intent.Tag)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch intent.Action {
	case models.ActionBuy:
		s.openBuys[level] += result.FilledQty
	case models.ActionSell:
		delete(s.openBuys, level)
	}
}

// ShouldExit всегда false: сетка закрывает уровни собственными
// SELL-сигналами, аварийные выходы - забота exit-менеджера
func (s *Grid) ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool {
	return false
}

// levelPrice возвращает цену уровня k ниже якоря (k=0 - сам якорь)
func (s *Grid) levelPrice(level int) float64 {
	return s.anchor * (1 - s.spacingPct*float64(level))
}

// OpenLevels возвращает копию занятых уровней (для мониторинга и тестов)
func (s *Grid) OpenLevels() map[int]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]float64, len(s.openBuys))
	for k, v := range s.openBuys {
		out[k] = v
	}
	return out
}
