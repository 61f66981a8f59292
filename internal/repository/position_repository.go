package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradebot/internal/models"
)

// Ошибки репозитория позиций
var (
	ErrPositionNotFound = errors.New("position not found")
)

// PositionRepository - работа с таблицей positions
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, bot_id, symbol, side, status, exit_phase,
	entry_price, entry_time, quantity, initial_qty, stop_loss, initial_stop,
	take_profit_1, take_profit_2, tp1_done, realized_pnl, unrealized_pnl,
	fees, strategy_id, exit_reason, closed_at, created_at, updated_at`

// Create добавляет позицию
func (r *PositionRepository) Create(p *models.Position) error {
	query := `
		INSERT INTO positions (id, bot_id, symbol, side, status, exit_phase,
			entry_price, entry_time, quantity, initial_qty, stop_loss,
			initial_stop, take_profit_1, take_profit_2, tp1_done,
			realized_pnl, unrealized_pnl, fees, strategy_id, exit_reason,
			closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		query,
		p.ID, p.BotID, p.Symbol, p.Side, p.Status, p.ExitPhase,
		p.EntryPrice, p.EntryTime, p.Quantity, p.InitialQty, p.StopLoss,
		p.InitialStop, p.TakeProfit1, p.TakeProfit2, p.TP1Done,
		p.RealizedPnl, p.UnrealizedPnl, p.Fees, p.StrategyID,
		nullIfEmpty(p.ExitReason), p.ClosedAt, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Update сохраняет текущее состояние сопровождения позиции
// (фаза, стоп, остаток, PNL)
func (r *PositionRepository) Update(p *models.Position) error {
	query := `
		UPDATE positions
		SET status = $1, exit_phase = $2, quantity = $3, stop_loss = $4,
			tp1_done = $5, realized_pnl = $6, unrealized_pnl = $7,
			fees = $8, exit_reason = $9, closed_at = $10, updated_at = $11
		WHERE id = $12`

	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		p.Status, p.ExitPhase, p.Quantity, p.StopLoss,
		p.TP1Done, p.RealizedPnl, p.UnrealizedPnl,
		p.Fees, nullIfEmpty(p.ExitReason), p.ClosedAt, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// GetOpenByBot возвращает незавершённые позиции бота.
// OPEN и CLOSING равнозначны: обе блокируют новый вход по символу.
func (r *PositionRepository) GetOpenByBot(botID int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE bot_id = $1 AND status IN ($2, $3)
		ORDER BY entry_time`

	rows, err := r.db.Query(query, botID, models.PositionOpen, models.PositionClosing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetRecentByBot возвращает последние позиции бота (любого статуса),
// новые первыми
func (r *PositionRepository) GetRecentByBot(botID, limit int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE bot_id = $1
		ORDER BY entry_time DESC
		LIMIT $2`

	rows, err := r.db.Query(query, botID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByID возвращает позицию по ID
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE id = $1`

	row := r.db.QueryRow(query, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return p, nil
}

// scanner покрывает *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (*models.Position, error) {
	p := &models.Position{}
	var exitReason sql.NullString
	err := s.Scan(
		&p.ID, &p.BotID, &p.Symbol, &p.Side, &p.Status, &p.ExitPhase,
		&p.EntryPrice, &p.EntryTime, &p.Quantity, &p.InitialQty,
		&p.StopLoss, &p.InitialStop, &p.TakeProfit1, &p.TakeProfit2,
		&p.TP1Done, &p.RealizedPnl, &p.UnrealizedPnl, &p.Fees,
		&p.StrategyID, &exitReason, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ExitReason = exitReason.String
	return p, nil
}

func scanPositions(rows *sql.Rows) ([]*models.Position, error) {
	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
