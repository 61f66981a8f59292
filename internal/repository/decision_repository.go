package repository

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tradebot/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecisionRepository - журнал решений (таблица decisions)
//
// Аудиторский журнал: каждое решение цикла ([SIGNAL], [BLOCKED],
// [BUY-EXEC], [SELL-EXEC], [SKIP]) персистится для разбора постфактум.
// Запись идёт через retry-комбинатор на стороне оркестратора;
// недоступность журнала никогда не блокирует торговлю.
type DecisionRepository struct {
	db *sql.DB
}

// NewDecisionRepository создает новый экземпляр репозитория
func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record сохраняет запись решения
func (r *DecisionRepository) Record(rec *models.DecisionRecord) error {
	query := `
		INSERT INTO decisions (id, bot_id, symbol, class, action, reason,
			strategy_id, regime, price, quantity, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var meta []byte
	if rec.Meta != nil {
		var err error
		meta, err = json.Marshal(rec.Meta)
		if err != nil {
			return err
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		query,
		rec.ID,
		rec.BotID,
		rec.Symbol,
		rec.Class,
		rec.Action,
		rec.Reason,
		rec.StrategyID,
		rec.Regime,
		rec.Price,
		rec.Quantity,
		meta,
		rec.CreatedAt,
	)
	return err
}

// GetRecentByBot возвращает последние limit решений бота
func (r *DecisionRepository) GetRecentByBot(botID, limit int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT id, bot_id, symbol, class, action, reason, strategy_id,
			regime, price, quantity, meta, created_at
		FROM decisions
		WHERE bot_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, botID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DecisionRecord
	for rows.Next() {
		rec := &models.DecisionRecord{}
		var meta []byte
		err := rows.Scan(
			&rec.ID,
			&rec.BotID,
			&rec.Symbol,
			&rec.Class,
			&rec.Action,
			&rec.Reason,
			&rec.StrategyID,
			&rec.Regime,
			&rec.Price,
			&rec.Quantity,
			&meta,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Meta); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
