package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradebot/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// ============================================================
// BotRepository Tests
// ============================================================

func TestBotRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBotRepository(db)

	mock.ExpectQuery(`INSERT INTO bots`).
		WithArgs(7, "btc-trend", "trend", "BTCUSDT", models.BotStatusIdle, 10000.0,
			0.02, 0.10, 0.05, 0.15, 10, 1.0, 0.5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	bot := &models.Bot{
		UserID:     7,
		Name:       "btc-trend",
		StrategyID: "trend",
		Symbol:     "BTCUSDT",
		Capital:    10000,
		Risk:       models.DefaultRiskConfig(),
	}
	if err := repo.Create(bot); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if bot.ID != 3 {
		t.Errorf("bot.ID = %d, want 3", bot.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBotRepositoryGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBotRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM bots`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(99)
	if !errors.Is(err, ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}

func TestBotRepositoryGetByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBotRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "strategy_id", "symbol", "status", "capital",
		"risk_per_trade_pct", "max_position_pct", "max_daily_loss_pct",
		"max_drawdown_pct", "max_trades_per_day", "min_reward_risk_ratio",
		"tp1_close_pct", "last_run_at", "created_at", "updated_at",
	}).
		AddRow(1, 7, "btc-trend", "trend", "BTCUSDT", models.BotStatusRunning, 10000.0,
			0.02, 0.10, 0.05, 0.15, 10, 1.0, 0.5, nil, now, now).
		AddRow(2, 7, "eth-grid", "grid", "ETHUSDT", models.BotStatusRunning, 5000.0,
			0.01, 0.10, 0.05, 0.15, 20, 1.0, 0.5, &now, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM bots`).
		WithArgs(models.BotStatusRunning).
		WillReturnRows(rows)

	bots, err := repo.GetByStatus(models.BotStatusRunning)
	if err != nil {
		t.Fatalf("GetByStatus: %v", err)
	}
	if len(bots) != 2 {
		t.Fatalf("len = %d, want 2", len(bots))
	}
	if bots[1].StrategyID != "grid" || bots[1].Risk.MaxTradesPerDay != 20 {
		t.Errorf("second bot mis-scanned: %+v", bots[1])
	}
}

func TestBotRepositoryUpdateStatus_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBotRepository(db)

	mock.ExpectExec(`UPDATE bots`).
		WithArgs(models.BotStatusPaused, sqlmock.AnyArg(), 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(42, models.BotStatusPaused)
	if !errors.Is(err, ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}

// ============================================================
// PositionRepository Tests
// ============================================================

func TestPositionRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPositionRepository(db)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO positions`).
		WithArgs("pos-1", 1, "BTCUSDT", models.SideLong, models.PositionOpen,
			models.PhasePending, 100.0, now, 0.5, 0.5, 97.5, 97.5,
			103.75, 107.5, false, 0.0, 0.0, 0.1, "trend", nil,
			nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.Position{
		ID:          "pos-1",
		BotID:       1,
		Symbol:      "BTCUSDT",
		Side:        models.SideLong,
		Status:      models.PositionOpen,
		ExitPhase:   models.PhasePending,
		EntryPrice:  100,
		EntryTime:   now,
		Quantity:    0.5,
		InitialQty:  0.5,
		StopLoss:    97.5,
		InitialStop: 97.5,
		TakeProfit1: 103.75,
		TakeProfit2: 107.5,
		Fees:        0.1,
		StrategyID:  "trend",
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPositionRepositoryUpdate_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPositionRepository(db)

	mock.ExpectExec(`UPDATE positions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &models.Position{ID: "missing", Status: models.PositionClosed}
	if err := repo.Update(p); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestPositionRepositoryGetOpenByBot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPositionRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "bot_id", "symbol", "side", "status", "exit_phase",
		"entry_price", "entry_time", "quantity", "initial_qty", "stop_loss",
		"initial_stop", "take_profit_1", "take_profit_2", "tp1_done",
		"realized_pnl", "unrealized_pnl", "fees", "strategy_id",
		"exit_reason", "closed_at", "created_at", "updated_at",
	}).AddRow("pos-1", 1, "BTCUSDT", models.SideLong, models.PositionClosing,
		models.PhaseTrailing, 100.0, now, 0.25, 0.5, 103.75, 97.5,
		103.75, 107.5, true, 0.9, 0.0, 0.2, "trend", nil, nil, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM positions`).
		WithArgs(1, models.PositionOpen, models.PositionClosing).
		WillReturnRows(rows)

	positions, err := repo.GetOpenByBot(1)
	if err != nil {
		t.Fatalf("GetOpenByBot: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("len = %d, want 1", len(positions))
	}
	p := positions[0]
	if !p.IsOccupying() {
		t.Error("CLOSING position must be occupying")
	}
	if p.ExitReason != "" {
		t.Errorf("NULL exit_reason must scan as empty, got %q", p.ExitReason)
	}
	if !p.TP1Done || p.ExitPhase != models.PhaseTrailing {
		t.Errorf("phase fields mis-scanned: %+v", p)
	}
}

func TestBotRepositoryDelete_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBotRepository(db)

	mock.ExpectExec(`DELETE FROM bots`).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(42); !errors.Is(err, ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}

func TestPositionRepositoryGetRecentByBot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPositionRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "bot_id", "symbol", "side", "status", "exit_phase",
		"entry_price", "entry_time", "quantity", "initial_qty", "stop_loss",
		"initial_stop", "take_profit_1", "take_profit_2", "tp1_done",
		"realized_pnl", "unrealized_pnl", "fees", "strategy_id",
		"exit_reason", "closed_at", "created_at", "updated_at",
	}).AddRow("pos-2", 1, "BTCUSDT", models.SideLong, models.PositionClosed,
		models.PhaseClosed, 100.0, now, 0.0, 0.5, 103.75, 97.5,
		103.75, 107.5, true, 3.2, 0.0, 0.2, "trend",
		models.ExitReasonTakeProfit2, &now, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM positions`).
		WithArgs(1, 50).
		WillReturnRows(rows)

	positions, err := repo.GetRecentByBot(1, 50)
	if err != nil {
		t.Fatalf("GetRecentByBot: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("len = %d, want 1", len(positions))
	}
	if positions[0].ExitReason != models.ExitReasonTakeProfit2 {
		t.Errorf("exit_reason = %q", positions[0].ExitReason)
	}
}

// ============================================================
// StatsRepository Tests
// ============================================================

func TestStatsRepositoryGetPeriodStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"count", "wins", "losses", "stop_losses",
		"pnl", "gross_profit", "gross_loss", "fees",
	}).AddRow(12, 7, 5, 3, 240.5, 410.0, 169.5, 8.4)

	mock.ExpectQuery(`SELECT (.+) FROM positions`).
		WithArgs(models.ExitReasonStopLoss, models.ExitReasonTrailingStop,
			models.PositionClosed, since).
		WillReturnRows(rows)

	stats, err := repo.GetPeriodStats(since)
	if err != nil {
		t.Fatalf("GetPeriodStats: %v", err)
	}
	if stats.Trades != 12 || stats.Wins != 7 || stats.StopLosses != 3 {
		t.Errorf("counters mis-scanned: %+v", stats)
	}
	if stats.GrossLoss != 169.5 {
		t.Errorf("GrossLoss = %v, want 169.5", stats.GrossLoss)
	}
}

func TestStatsRepositoryGetStrategyBreakdown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	rows := sqlmock.NewRows([]string{"strategy_id", "count", "wins", "pnl"}).
		AddRow("trend", 10, 6, 320.0).
		AddRow("grid", 25, 20, 110.0)

	mock.ExpectQuery(`SELECT (.+) FROM positions`).
		WithArgs(models.PositionClosed).
		WillReturnRows(rows)

	breakdown, err := repo.GetStrategyBreakdown()
	if err != nil {
		t.Fatalf("GetStrategyBreakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("len = %d, want 2", len(breakdown))
	}
	if breakdown[1].WinRate != 0.8 {
		t.Errorf("grid WinRate = %v, want 0.8", breakdown[1].WinRate)
	}
}

// ============================================================
// RiskStateRepository Tests
// ============================================================

func TestRiskStateRepositoryGet_MissingRowSeedsFreshState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRiskStateRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM risk_states`).
		WithArgs(5).
		WillReturnError(sql.ErrNoRows)

	state, err := repo.Get(5, 10000)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.BotID != 5 || state.PeakEquity != 10000 || state.CurrentEquity != 10000 {
		t.Errorf("fresh state = %+v", state)
	}
	if state.TradesToday != 0 || state.DailyPnl != 0 {
		t.Error("fresh state must have zeroed counters")
	}
}

func TestRiskStateRepositorySave(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRiskStateRepository(db)

	mock.ExpectExec(`INSERT INTO risk_states`).
		WithArgs(5, 3, -120.5, 10000.0, 9879.5, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	state := &models.RiskState{
		BotID:         5,
		TradesToday:   3,
		DailyPnl:      -120.5,
		PeakEquity:    10000,
		CurrentEquity: 9879.5,
		OpenPositions: 1,
		TradingDay:    time.Now().UTC().Truncate(24 * time.Hour),
	}
	if err := repo.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// ============================================================
// DecisionRepository Tests
// ============================================================

func TestDecisionRepositoryRecord(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDecisionRepository(db)

	mock.ExpectExec(`INSERT INTO decisions`).
		WithArgs("dec-1", 1, "BTCUSDT", models.DecisionClassBlocked, models.ActionBuy,
			"DUPLICATE_POSITION", "trend", "STRONG_BULLISH", 50000.0, 0.01,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.DecisionRecord{
		ID:         "dec-1",
		BotID:      1,
		Symbol:     "BTCUSDT",
		Class:      models.DecisionClassBlocked,
		Action:     models.ActionBuy,
		Reason:     "DUPLICATE_POSITION",
		StrategyID: "trend",
		Regime:     models.RegimeStrongBullish,
		Price:      50000,
		Quantity:   0.01,
		Meta:       map[string]interface{}{"alignment": 82.5},
	}
	if err := repo.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDecisionRepositoryRecord_DatabaseError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDecisionRepository(db)

	mock.ExpectExec(`INSERT INTO decisions`).
		WillReturnError(errors.New("connection reset"))

	rec := &models.DecisionRecord{ID: "dec-2", BotID: 1, Class: models.DecisionClassSignal}
	if err := repo.Record(rec); err == nil {
		t.Fatal("expected error to propagate to the retry layer")
	}
}

// ============================================================
// NotificationRepository Tests
// ============================================================

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)
	botID := 5

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), models.NotificationTypeDailyLoss,
			models.SeverityWarn, &botID, "daily loss limit reached", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	n := &models.Notification{
		Type:     models.NotificationTypeDailyLoss,
		Severity: models.SeverityWarn,
		BotID:    &botID,
		Message:  "daily loss limit reached",
	}
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ID != 11 {
		t.Errorf("n.ID = %d, want 11", n.ID)
	}
}
