package models

import "time"

// RiskState - дневные риск-счётчики одного бота
//
// Не глобальный синглтон: состояние явно передаётся в валидатор
// и обратно, персистится внешним хранилищем транзакционно вместе
// с изменениями позиций. Счётчики сбрасываются в полночь UTC.
type RiskState struct {
	BotID          int       `json:"bot_id" db:"bot_id"`
	TradesToday    int       `json:"trades_today" db:"trades_today"`
	DailyPnl       float64   `json:"daily_pnl" db:"daily_pnl"` // реализованный PNL за день
	PeakEquity     float64   `json:"peak_equity" db:"peak_equity"`
	CurrentEquity  float64   `json:"current_equity" db:"current_equity"`
	OpenPositions  int       `json:"open_positions" db:"open_positions"` // OPEN + CLOSING
	TradingDay     time.Time `json:"trading_day" db:"trading_day"`       // дата (UTC), к которой относятся счётчики
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DrawdownPct возвращает текущую просадку от пика equity в долях (0.1 = 10%)
func (rs *RiskState) DrawdownPct() float64 {
	if rs.PeakEquity <= 0 {
		return 0
	}
	dd := (rs.PeakEquity - rs.CurrentEquity) / rs.PeakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// ResetDaily обнуляет дневные счётчики для нового торгового дня.
// Пик equity сохраняется: просадка считается от исторического максимума.
func (rs *RiskState) ResetDaily(day time.Time) {
	rs.TradesToday = 0
	rs.DailyPnl = 0
	rs.TradingDay = day.UTC().Truncate(24 * time.Hour)
}

// RecordFill обновляет счётчики после исполнения входа
func (rs *RiskState) RecordFill() {
	rs.TradesToday++
	rs.OpenPositions++
}

// RecordClose обновляет счётчики после полного закрытия позиции
func (rs *RiskState) RecordClose(realizedPnl float64) {
	rs.DailyPnl += realizedPnl
	rs.CurrentEquity += realizedPnl
	if rs.CurrentEquity > rs.PeakEquity {
		rs.PeakEquity = rs.CurrentEquity
	}
	if rs.OpenPositions > 0 {
		rs.OpenPositions--
	}
}
