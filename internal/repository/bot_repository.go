package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradebot/internal/models"
)

// Ошибки репозитория ботов
var (
	ErrBotNotFound = errors.New("bot not found")
)

// BotRepository - работа с таблицей bots
type BotRepository struct {
	db *sql.DB
}

// NewBotRepository создает новый экземпляр репозитория
func NewBotRepository(db *sql.DB) *BotRepository {
	return &BotRepository{db: db}
}

// Create добавляет бота
func (r *BotRepository) Create(bot *models.Bot) error {
	query := `
		INSERT INTO bots (user_id, name, strategy_id, symbol, status, capital,
			risk_per_trade_pct, max_position_pct, max_daily_loss_pct,
			max_drawdown_pct, max_trades_per_day, min_reward_risk_ratio,
			tp1_close_pct, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`

	now := time.Now()
	bot.CreatedAt = now
	bot.UpdatedAt = now
	if bot.Status == "" {
		bot.Status = models.BotStatusIdle
	}

	return r.db.QueryRow(
		query,
		bot.UserID,
		bot.Name,
		bot.StrategyID,
		bot.Symbol,
		bot.Status,
		bot.Capital,
		bot.Risk.RiskPerTradePct,
		bot.Risk.MaxPositionPct,
		bot.Risk.MaxDailyLossPct,
		bot.Risk.MaxDrawdownPct,
		bot.Risk.MaxTradesPerDay,
		bot.Risk.MinRewardRiskRatio,
		bot.Risk.TP1ClosePct,
		bot.CreatedAt,
		bot.UpdatedAt,
	).Scan(&bot.ID)
}

// GetByID возвращает бота по ID
func (r *BotRepository) GetByID(id int) (*models.Bot, error) {
	query := `
		SELECT id, user_id, name, strategy_id, symbol, status, capital,
			risk_per_trade_pct, max_position_pct, max_daily_loss_pct,
			max_drawdown_pct, max_trades_per_day, min_reward_risk_ratio,
			tp1_close_pct, last_run_at, created_at, updated_at
		FROM bots
		WHERE id = $1`

	bot := &models.Bot{}
	err := r.db.QueryRow(query, id).Scan(
		&bot.ID,
		&bot.UserID,
		&bot.Name,
		&bot.StrategyID,
		&bot.Symbol,
		&bot.Status,
		&bot.Capital,
		&bot.Risk.RiskPerTradePct,
		&bot.Risk.MaxPositionPct,
		&bot.Risk.MaxDailyLossPct,
		&bot.Risk.MaxDrawdownPct,
		&bot.Risk.MaxTradesPerDay,
		&bot.Risk.MinRewardRiskRatio,
		&bot.Risk.TP1ClosePct,
		&bot.LastRunAt,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBotNotFound
		}
		return nil, err
	}
	return bot, nil
}

// GetByStatus возвращает ботов в заданном статусе.
// Риск-параметры читаются заново каждый цикл: конфигурация может
// меняться между циклами извне.
func (r *BotRepository) GetByStatus(status string) ([]*models.Bot, error) {
	query := `
		SELECT id, user_id, name, strategy_id, symbol, status, capital,
			risk_per_trade_pct, max_position_pct, max_daily_loss_pct,
			max_drawdown_pct, max_trades_per_day, min_reward_risk_ratio,
			tp1_close_pct, last_run_at, created_at, updated_at
		FROM bots
		WHERE status = $1
		ORDER BY id`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot := &models.Bot{}
		err := rows.Scan(
			&bot.ID,
			&bot.UserID,
			&bot.Name,
			&bot.StrategyID,
			&bot.Symbol,
			&bot.Status,
			&bot.Capital,
			&bot.Risk.RiskPerTradePct,
			&bot.Risk.MaxPositionPct,
			&bot.Risk.MaxDailyLossPct,
			&bot.Risk.MaxDrawdownPct,
			&bot.Risk.MaxTradesPerDay,
			&bot.Risk.MinRewardRiskRatio,
			&bot.Risk.TP1ClosePct,
			&bot.LastRunAt,
			&bot.CreatedAt,
			&bot.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return bots, nil
}

// GetAll возвращает всех ботов
func (r *BotRepository) GetAll() ([]*models.Bot, error) {
	query := `
		SELECT id, user_id, name, strategy_id, symbol, status, capital,
			risk_per_trade_pct, max_position_pct, max_daily_loss_pct,
			max_drawdown_pct, max_trades_per_day, min_reward_risk_ratio,
			tp1_close_pct, last_run_at, created_at, updated_at
		FROM bots
		ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot := &models.Bot{}
		err := rows.Scan(
			&bot.ID,
			&bot.UserID,
			&bot.Name,
			&bot.StrategyID,
			&bot.Symbol,
			&bot.Status,
			&bot.Capital,
			&bot.Risk.RiskPerTradePct,
			&bot.Risk.MaxPositionPct,
			&bot.Risk.MaxDailyLossPct,
			&bot.Risk.MaxDrawdownPct,
			&bot.Risk.MaxTradesPerDay,
			&bot.Risk.MinRewardRiskRatio,
			&bot.Risk.TP1ClosePct,
			&bot.LastRunAt,
			&bot.CreatedAt,
			&bot.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return bots, nil
}

// Delete удаляет бота
func (r *BotRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBotNotFound
	}
	return nil
}

// UpdateStatus меняет статус бота
func (r *BotRepository) UpdateStatus(id int, status string) error {
	query := `
		UPDATE bots
		SET status = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBotNotFound
	}
	return nil
}

// TouchLastRun обновляет отметку последнего цикла
func (r *BotRepository) TouchLastRun(id int, at time.Time) error {
	query := `
		UPDATE bots
		SET last_run_at = $1, updated_at = $2
		WHERE id = $3`

	_, err := r.db.Exec(query, at, time.Now(), id)
	return err
}
