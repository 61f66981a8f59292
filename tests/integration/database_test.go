//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"tradebot/internal/models"
)

// TestPositionRoundTrip verifies the position lifecycle against a
// real database: create, partial close at TP1, full close.
func TestPositionRoundTrip(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	bot := &models.Bot{
		Name: "btc-trend", StrategyID: "trend", Symbol: "BTCUSDT",
		Capital: 10000, Risk: models.DefaultRiskConfig(),
	}
	if err := ts.Repos.Bot.Create(bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	p := &models.Position{
		ID: uuid.NewString(), BotID: bot.ID, Symbol: "BTCUSDT",
		Side: models.SideLong, Status: models.PositionOpen,
		ExitPhase: models.PhasePending,
		EntryPrice: 50000, EntryTime: time.Now().UTC(),
		Quantity: 0.02, InitialQty: 0.02,
		StopLoss: 48750, InitialStop: 48750,
		TakeProfit1: 51875, TakeProfit2: 53750,
		StrategyID: "trend",
	}
	if err := ts.Repos.Position.Create(p); err != nil {
		t.Fatalf("create position: %v", err)
	}

	open, err := ts.Repos.Position.GetOpenByBot(bot.ID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if len(open) != 1 || open[0].ID != p.ID {
		t.Fatalf("open = %+v", open)
	}

	// Partial close at TP1: half the size off, stop to breakeven
	p.Quantity = 0.01
	p.TP1Done = true
	p.StopLoss = p.EntryPrice
	p.ExitPhase = models.PhaseValidated
	p.Status = models.PositionClosing
	p.RealizedPnl = 18.75
	if err := ts.Repos.Position.Update(p); err != nil {
		t.Fatalf("update after tp1: %v", err)
	}

	// CLOSING still occupies the symbol
	open, err = ts.Repos.Position.GetOpenByBot(bot.ID)
	if err != nil {
		t.Fatalf("get open after tp1: %v", err)
	}
	if len(open) != 1 || !open[0].IsOccupying() {
		t.Fatal("CLOSING position must still occupy the symbol")
	}
	if !open[0].TP1Done || open[0].StopLoss != 50000 {
		t.Errorf("tp1 state lost: %+v", open[0])
	}

	// Full close
	now := time.Now().UTC()
	p.Quantity = 0
	p.Status = models.PositionClosed
	p.ExitPhase = models.PhaseClosed
	p.ExitReason = models.ExitReasonTakeProfit2
	p.RealizedPnl = 56.25
	p.ClosedAt = &now
	if err := ts.Repos.Position.Update(p); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, _ = ts.Repos.Position.GetOpenByBot(bot.ID)
	if len(open) != 0 {
		t.Errorf("closed position still listed as open: %+v", open)
	}

	got, err := ts.Repos.Position.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.ExitReason != models.ExitReasonTakeProfit2 || got.ClosedAt == nil {
		t.Errorf("closed state lost: %+v", got)
	}
}

// TestRiskStateRoundTrip verifies the upsert semantics of risk state
// persistence.
func TestRiskStateRoundTrip(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	bot := &models.Bot{
		Name: "eth-momentum", StrategyID: "momentum", Symbol: "ETHUSDT",
		Capital: 5000, Risk: models.DefaultRiskConfig(),
	}
	if err := ts.Repos.Bot.Create(bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	// Missing row seeds a fresh state at bot capital
	state, err := ts.Repos.RiskState.Get(bot.ID, bot.Capital)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if state.PeakEquity != 5000 || state.TradesToday != 0 {
		t.Fatalf("fresh state = %+v", state)
	}

	// First save inserts
	state.RecordFill()
	if err := ts.Repos.RiskState.Save(state); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Second save updates the same row
	state.RecordClose(-75)
	if err := ts.Repos.RiskState.Save(state); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := ts.Repos.RiskState.Get(bot.ID, bot.Capital)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.TradesToday != 1 || got.DailyPnl != -75 || got.CurrentEquity != 4925 {
		t.Errorf("reloaded state = %+v", got)
	}
	if got.PeakEquity != 5000 {
		t.Errorf("peak equity must survive a loss, got %v", got.PeakEquity)
	}
}

// TestDecisionJournal verifies decision records persist with JSON meta
// and come back newest-first.
func TestDecisionJournal(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	bot := &models.Bot{
		Name: "btc-breakout", StrategyID: "breakout", Symbol: "BTCUSDT",
		Capital: 10000, Risk: models.DefaultRiskConfig(),
	}
	if err := ts.Repos.Bot.Create(bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}

	records := []*models.DecisionRecord{
		{
			ID: uuid.NewString(), BotID: bot.ID, Symbol: "BTCUSDT",
			Class: models.DecisionClassSignal, Action: models.ActionBuy,
			StrategyID: "breakout", Regime: models.RegimeWeakBullish,
			Price: 50000, Quantity: 0.01,
			Meta:      map[string]interface{}{"alignment": 71.5},
			CreatedAt: time.Now().Add(-time.Minute),
		},
		{
			ID: uuid.NewString(), BotID: bot.ID, Symbol: "BTCUSDT",
			Class: models.DecisionClassBlocked, Action: models.ActionBuy,
			Reason: "DAILY_LOSS_LIMIT", StrategyID: "breakout",
			Price:     50100,
			CreatedAt: time.Now(),
		},
	}
	for _, rec := range records {
		if err := ts.Repos.Decision.Record(rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := ts.Repos.Decision.GetRecentByBot(bot.ID, 10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Class != models.DecisionClassBlocked {
		t.Errorf("journal must be newest-first, got %s", got[0].Class)
	}
	if got[1].Meta["alignment"] != 71.5 {
		t.Errorf("meta lost: %+v", got[1].Meta)
	}
}
