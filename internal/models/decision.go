package models

import "time"

// Классы решений для аудита и grep-поиска в логах
const (
	DecisionClassSignal   = "SIGNAL"    // стратегия выдала сигнал
	DecisionClassBlocked  = "BLOCKED"   // сигнал отклонён риск-валидатором
	DecisionClassBuyExec  = "BUY-EXEC"  // вход исполнен
	DecisionClassSellExec = "SELL-EXEC" // выход (полный или частичный) исполнен
	DecisionClassSkip     = "SKIP"      // цикл пропущен (нет данных/контекста)
)

// DecisionRecord - запись аудита одного решения
//
// Персистится через DecisionLog с retry. Потеря записи аудита
// (после исчерпания retry) логируется, но НИКОГДА не блокирует
// торговый цикл.
type DecisionRecord struct {
	ID         string                 `json:"id" db:"id"` // uuid
	BotID      int                    `json:"bot_id" db:"bot_id"`
	Symbol     string                 `json:"symbol" db:"symbol"`
	Class      string                 `json:"class" db:"class"`
	Action     string                 `json:"action" db:"action"` // BUY, SELL, HOLD
	Reason     string                 `json:"reason,omitempty" db:"reason"`
	StrategyID string                 `json:"strategy_id" db:"strategy_id"`
	Regime     string                 `json:"regime,omitempty" db:"regime"`
	Price      float64                `json:"price" db:"price"`
	Quantity   float64                `json:"quantity" db:"quantity"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // JSON в БД
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
