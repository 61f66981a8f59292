package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradebot/internal/models"
)

// RiskStateRepository - работа с таблицей risk_states
//
// Одна строка на бота. Состояние читается в начале цикла и
// сохраняется после каждого изменения позиций - цикл N+1 не должен
// видеть устаревшие счётчики цикла N.
type RiskStateRepository struct {
	db *sql.DB
}

// NewRiskStateRepository создает новый экземпляр репозитория
func NewRiskStateRepository(db *sql.DB) *RiskStateRepository {
	return &RiskStateRepository{db: db}
}

// Get возвращает риск-состояние бота. Если записи нет, возвращает
// свежее состояние с equity, равным капиталу initialEquity.
func (r *RiskStateRepository) Get(botID int, initialEquity float64) (*models.RiskState, error) {
	query := `
		SELECT bot_id, trades_today, daily_pnl, peak_equity, current_equity,
			open_positions, trading_day, updated_at
		FROM risk_states
		WHERE bot_id = $1`

	state := &models.RiskState{}
	err := r.db.QueryRow(query, botID).Scan(
		&state.BotID,
		&state.TradesToday,
		&state.DailyPnl,
		&state.PeakEquity,
		&state.CurrentEquity,
		&state.OpenPositions,
		&state.TradingDay,
		&state.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.RiskState{
			BotID:         botID,
			PeakEquity:    initialEquity,
			CurrentEquity: initialEquity,
			TradingDay:    time.Now().UTC().Truncate(24 * time.Hour),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save сохраняет риск-состояние (upsert по bot_id)
func (r *RiskStateRepository) Save(state *models.RiskState) error {
	query := `
		INSERT INTO risk_states (bot_id, trades_today, daily_pnl, peak_equity,
			current_equity, open_positions, trading_day, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (bot_id) DO UPDATE SET
			trades_today = EXCLUDED.trades_today,
			daily_pnl = EXCLUDED.daily_pnl,
			peak_equity = EXCLUDED.peak_equity,
			current_equity = EXCLUDED.current_equity,
			open_positions = EXCLUDED.open_positions,
			trading_day = EXCLUDED.trading_day,
			updated_at = EXCLUDED.updated_at`

	state.UpdatedAt = time.Now()

	_, err := r.db.Exec(
		query,
		state.BotID,
		state.TradesToday,
		state.DailyPnl,
		state.PeakEquity,
		state.CurrentEquity,
		state.OpenPositions,
		state.TradingDay,
		state.UpdatedAt,
	)
	return err
}
