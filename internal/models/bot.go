package models

import "time"

// Bot представляет торгового бота, принадлежащего пользователю
type Bot struct {
	ID         int        `json:"id" db:"id"`
	UserID     int        `json:"user_id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	StrategyID string     `json:"strategy_id" db:"strategy_id"` // trend, breakout, meanrev, momentum, grid
	Symbol     string     `json:"symbol" db:"symbol"`           // BTCUSDT
	Status     string     `json:"status" db:"status"`           // IDLE, RUNNING, PAUSED, ERROR
	Capital    float64    `json:"capital" db:"capital"`         // выделенный капитал в USDT
	Risk       RiskConfig `json:"risk" db:"-"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty" db:"last_run_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Статусы бота
const (
	BotStatusIdle    = "IDLE"    // создан, ни разу не запускался
	BotStatusRunning = "RUNNING" // участвует в циклах принятия решений
	BotStatusPaused  = "PAUSED"  // новые входы запрещены, открытые позиции сопровождаются
	BotStatusError   = "ERROR"   // остановлен из-за ошибки, требуется вмешательство
)

// RiskConfig - риск-параметры бота
//
// Читаются заново в начале каждого цикла (конфигурация внешняя
// по отношению к ядру и может меняться между циклами).
type RiskConfig struct {
	RiskPerTradePct    float64 `json:"risk_per_trade_pct" db:"risk_per_trade_pct"`       // риск на сделку, % от капитала (0.02 = 2%)
	MaxPositionPct     float64 `json:"max_position_pct" db:"max_position_pct"`           // максимум на позицию, % от портфеля
	MaxDailyLossPct    float64 `json:"max_daily_loss_pct" db:"max_daily_loss_pct"`       // дневной лимит убытка, %
	MaxDrawdownPct     float64 `json:"max_drawdown_pct" db:"max_drawdown_pct"`           // максимальная просадка от пика equity, %
	MaxTradesPerDay    int     `json:"max_trades_per_day" db:"max_trades_per_day"`       // лимит сделок в день
	MinRewardRiskRatio float64 `json:"min_reward_risk_ratio" db:"min_reward_risk_ratio"` // минимальное соотношение прибыль:риск
	TP1ClosePct        float64 `json:"tp1_close_pct" db:"tp1_close_pct"`                 // доля позиции, закрываемая на TP1 (0.3 - 0.7)
}

// AbsoluteMaxPositionPct - жёсткий потолок стоимости позиции
// относительно портфеля. Не переопределяется конфигурацией бота
// и проверяется дважды: при расчёте размера и при валидации риска.
const AbsoluteMaxPositionPct = 0.25

// DefaultRiskConfig возвращает консервативные параметры по умолчанию
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RiskPerTradePct:    0.02,
		MaxPositionPct:     0.10,
		MaxDailyLossPct:    0.05,
		MaxDrawdownPct:     0.15,
		MaxTradesPerDay:    10,
		MinRewardRiskRatio: 1.0,
		TP1ClosePct:        0.5,
	}
}

// IsTradable возвращает true, если боту разрешены новые входы
func (b *Bot) IsTradable() bool {
	return b.Status == BotStatusRunning
}
