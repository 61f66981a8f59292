package repository

import (
	"database/sql"
	"time"

	"tradebot/internal/models"
)

// StatsRepository - агрегатные выборки по закрытым позициям
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository создает новый экземпляр репозитория
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetPeriodStats возвращает агрегаты по позициям, закрытым начиная
// с since. Нулевое since означает "за всё время".
func (r *StatsRepository) GetPeriodStats(since time.Time) (*models.PeriodStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE realized_pnl > 0),
			COUNT(*) FILTER (WHERE realized_pnl < 0),
			COUNT(*) FILTER (WHERE exit_reason IN ($1, $2)),
			COALESCE(SUM(realized_pnl), 0),
			COALESCE(SUM(realized_pnl) FILTER (WHERE realized_pnl > 0), 0),
			COALESCE(ABS(SUM(realized_pnl) FILTER (WHERE realized_pnl < 0)), 0),
			COALESCE(SUM(fees), 0)
		FROM positions
		WHERE status = $3 AND closed_at >= $4`

	stats := &models.PeriodStats{}
	err := r.db.QueryRow(query,
		models.ExitReasonStopLoss, models.ExitReasonTrailingStop,
		models.PositionClosed, since,
	).Scan(
		&stats.Trades,
		&stats.Wins,
		&stats.Losses,
		&stats.StopLosses,
		&stats.Pnl,
		&stats.GrossProfit,
		&stats.GrossLoss,
		&stats.Fees,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CountOpen возвращает число незавершённых позиций (OPEN и CLOSING)
func (r *StatsRepository) CountOpen() (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE status IN ($1, $2)`

	var count int
	err := r.db.QueryRow(query, models.PositionOpen, models.PositionClosing).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetStrategyBreakdown возвращает результаты по каждой стратегии
// за всё время, отсортированные по PNL
func (r *StatsRepository) GetStrategyBreakdown() ([]models.StrategyStat, error) {
	query := `
		SELECT
			strategy_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE realized_pnl > 0),
			COALESCE(SUM(realized_pnl), 0)
		FROM positions
		WHERE status = $1
		GROUP BY strategy_id
		ORDER BY SUM(realized_pnl) DESC`

	rows, err := r.db.Query(query, models.PositionClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []models.StrategyStat
	for rows.Next() {
		var s models.StrategyStat
		if err := rows.Scan(&s.StrategyID, &s.Trades, &s.Wins, &s.Pnl); err != nil {
			return nil, err
		}
		if s.Trades > 0 {
			s.WinRate = float64(s.Wins) / float64(s.Trades)
		}
		breakdown = append(breakdown, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return breakdown, nil
}
