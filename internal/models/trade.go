package models

import "time"

// Действия торгового сигнала
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Стороны позиции
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Статусы позиции
const (
	PositionPending   = "PENDING"   // ордер отправлен, исполнение не подтверждено
	PositionOpen      = "OPEN"      // позиция открыта
	PositionClosing   = "CLOSING"   // идёт закрытие (частичное или полное)
	PositionClosed    = "CLOSED"    // терминальный: полностью закрыта
	PositionCancelled = "CANCELLED" // терминальный: вход не состоялся
)

// Фазы сопровождения позиции (exit state machine)
//
// Переходы монотонны: PENDING → VALIDATED → TRAILING → CLOSED.
// Из любой фазы возможен прямой переход в CLOSED по SL/TP.
const (
	PhasePending   = "PENDING"   // сразу после входа, стоп на исходном уровне
	PhaseValidated = "VALIDATED" // профит подтверждён, стоп на безубытке
	PhaseTrailing  = "TRAILING"  // стоп следует за ценой
	PhaseClosed    = "CLOSED"
)

// Причины выхода из позиции
const (
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTakeProfit1  = "TAKE_PROFIT_1"
	ExitReasonTakeProfit2  = "TAKE_PROFIT_2"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonStrategy     = "STRATEGY_EXIT" // стратегический выход (ShouldExit)
)

// TradeIntent - предложение сделки от стратегии
//
// Эфемерный объект: существует только между генерацией сигнала
// и риск-валидацией, никогда не персистится.
type TradeIntent struct {
	Action     string  `json:"action"` // BUY, SELL, HOLD
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`    // предлагаемый объём в базовой валюте
	EntryPrice float64 `json:"entry_price"` // предполагаемая цена входа
	StopLoss   float64 `json:"stop_loss"`   // предлагаемый стоп (0 = рассчитает exit-менеджер)
	TakeProfit float64 `json:"take_profit"` // предлагаемый тейк (0 = рассчитает exit-менеджер)
	StrategyID string  `json:"strategy_id"`
	BestEffort bool    `json:"best_effort"` // true = размер можно урезать до лимита вместо отказа
	Tag        string  `json:"tag,omitempty"` // корреляция для стейтфул-стратегий (номер grid-уровня)
	Comment    string  `json:"comment,omitempty"`
}

// IsEntry возвращает true для сигналов на открытие позиции
func (ti *TradeIntent) IsEntry() bool {
	return ti != nil && ti.Action == ActionBuy
}

// Position - открытая или закрытая сделка бота
type Position struct {
	ID            string     `json:"id" db:"id"` // uuid
	BotID         int        `json:"bot_id" db:"bot_id"`
	Symbol        string     `json:"symbol" db:"symbol"`
	Side          string     `json:"side" db:"side"`
	Status        string     `json:"status" db:"status"`
	ExitPhase     string     `json:"exit_phase" db:"exit_phase"`
	EntryPrice    float64    `json:"entry_price" db:"entry_price"`
	EntryTime     time.Time  `json:"entry_time" db:"entry_time"`
	Quantity      float64    `json:"quantity" db:"quantity"`           // текущий остаток позиции
	InitialQty    float64    `json:"initial_qty" db:"initial_qty"`     // объём на входе (до частичных выходов)
	StopLoss      float64    `json:"stop_loss" db:"stop_loss"`         // текущий (возможно подтянутый) стоп
	InitialStop   float64    `json:"initial_stop" db:"initial_stop"`   // стоп, рассчитанный на входе
	TakeProfit1   float64    `json:"take_profit_1" db:"take_profit_1"`
	TakeProfit2   float64    `json:"take_profit_2" db:"take_profit_2"`
	TP1Done       bool       `json:"tp1_done" db:"tp1_done"` // частичный выход на TP1 уже исполнен
	RealizedPnl   float64    `json:"realized_pnl" db:"realized_pnl"`
	UnrealizedPnl float64    `json:"unrealized_pnl" db:"unrealized_pnl"`
	Fees          float64    `json:"fees" db:"fees"`
	StrategyID    string     `json:"strategy_id" db:"strategy_id"`
	ExitReason    string     `json:"exit_reason,omitempty" db:"exit_reason"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOccupying возвращает true, если позиция блокирует новый вход
// по своему символу. OPEN и CLOSING равнозначны: пока закрытие не
// подтверждено, символ считается занятым.
func (p *Position) IsOccupying() bool {
	return p.Status == PositionOpen || p.Status == PositionClosing
}

// IsTerminal возвращает true для завершённых позиций
func (p *Position) IsTerminal() bool {
	return p.Status == PositionClosed || p.Status == PositionCancelled
}

var phaseOrder = map[string]int{
	PhasePending:   0,
	PhaseValidated: 1,
	PhaseTrailing:  2,
	PhaseClosed:    3,
}

// AdvancePhase переводит позицию в новую фазу сопровождения.
// Переходы монотонны: откат в более раннюю фазу игнорируется.
func (p *Position) AdvancePhase(phase string) {
	if phaseOrder[phase] > phaseOrder[p.ExitPhase] {
		p.ExitPhase = phase
	}
}

// RatchetStop подтягивает стоп вверх. Рэтчет односторонний:
// уровень ниже текущего стопа никогда не применяется.
func (p *Position) RatchetStop(level float64) {
	if level > p.StopLoss {
		p.StopLoss = level
	}
}

// Cost возвращает стоимость остатка позиции по цене входа
func (p *Position) Cost() float64 {
	return p.EntryPrice * p.Quantity
}

// OrderResult - результат размещения ордера на бирже
type OrderResult struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"` // BUY, SELL
	FilledQty   float64   `json:"filled_qty"`
	FilledPrice float64   `json:"filled_price"` // средняя цена исполнения
	Fee         float64   `json:"fee"`
	Status      string    `json:"status"` // FILLED, REJECTED
	Timestamp   time.Time `json:"timestamp"`
}

// Статусы ордера
const (
	OrderStatusFilled   = "FILLED"
	OrderStatusRejected = "REJECTED"
)
