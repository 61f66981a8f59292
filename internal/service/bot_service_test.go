package service

import (
	"errors"
	"testing"

	"tradebot/internal/models"
	"tradebot/internal/repository"
)

func newBotService(bots ...*models.Bot) (*BotService, *mockBotRepo, *mockPositionRepo) {
	botRepo := newMockBotRepo(bots...)
	posRepo := &mockPositionRepo{}
	return NewBotService(botRepo, posRepo, &mockDecisionRepo{}), botRepo, posRepo
}

func validBot() *models.Bot {
	return &models.Bot{
		Name:       "btc-trend",
		StrategyID: "trend",
		Symbol:     "BTCUSDT",
		Capital:    10000,
	}
}

func TestBotServiceCreate(t *testing.T) {
	svc, repo, _ := newBotService()

	b := validBot()
	if err := svc.Create(b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == 0 {
		t.Error("ID must be assigned")
	}
	if b.Status != models.BotStatusIdle {
		t.Errorf("status = %s, want IDLE", b.Status)
	}
	if b.Risk != models.DefaultRiskConfig() {
		t.Error("empty risk config must fall back to defaults")
	}
	if len(repo.bots) != 1 {
		t.Errorf("stored %d bots, want 1", len(repo.bots))
	}
}

func TestBotServiceCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Bot)
	}{
		{"empty name", func(b *models.Bot) { b.Name = "" }},
		{"unknown strategy", func(b *models.Bot) { b.StrategyID = "martingale" }},
		{"lowercase symbol", func(b *models.Bot) { b.Symbol = "btcusdt" }},
		{"zero capital", func(b *models.Bot) { b.Capital = 0 }},
		{"position cap above hard ceiling", func(b *models.Bot) {
			b.Risk = models.DefaultRiskConfig()
			b.Risk.MaxPositionPct = 0.30
		}},
		{"zero trades per day", func(b *models.Bot) {
			b.Risk = models.DefaultRiskConfig()
			b.Risk.MaxTradesPerDay = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newBotService()
			b := validBot()
			tt.mutate(b)
			if err := svc.Create(b); err == nil {
				t.Error("Create must fail")
			}
		})
	}
}

func TestBotServiceTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		call    func(*BotService, int) (*models.Bot, error)
		want    string
		wantErr bool
	}{
		{"start idle", models.BotStatusIdle, (*BotService).Start, models.BotStatusRunning, false},
		{"start paused", models.BotStatusPaused, (*BotService).Start, models.BotStatusRunning, false},
		{"start running", models.BotStatusRunning, (*BotService).Start, "", true},
		{"pause running", models.BotStatusRunning, (*BotService).Pause, models.BotStatusPaused, false},
		{"pause idle", models.BotStatusIdle, (*BotService).Pause, "", true},
		{"stop paused", models.BotStatusPaused, (*BotService).Stop, models.BotStatusIdle, false},
		{"reset error", models.BotStatusError, (*BotService).Stop, models.BotStatusIdle, false},
		{"stop running directly", models.BotStatusRunning, (*BotService).Stop, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newBotService(&models.Bot{ID: 1, Status: tt.from})

			b, err := tt.call(svc, 1)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if b.Status != tt.want {
				t.Errorf("status = %s, want %s", b.Status, tt.want)
			}
		})
	}
}

func TestBotServiceStart_NotFound(t *testing.T) {
	svc, _, _ := newBotService()

	_, err := svc.Start(99)
	if !errors.Is(err, repository.ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}

func TestBotServiceDelete_BlockedByOpenPositions(t *testing.T) {
	svc, repo, posRepo := newBotService(&models.Bot{ID: 1, Status: models.BotStatusPaused})
	posRepo.open = []*models.Position{
		{ID: "pos-1", BotID: 1, Status: models.PositionOpen},
	}

	err := svc.Delete(1)
	if !errors.Is(err, ErrBotHasPositions) {
		t.Errorf("expected ErrBotHasPositions, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Error("bot must not be deleted while positions are open")
	}
}

func TestBotServiceDelete(t *testing.T) {
	svc, repo, _ := newBotService(&models.Bot{ID: 1, Status: models.BotStatusIdle})

	if err := svc.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 1 {
		t.Errorf("deleted = %v, want [1]", repo.deleted)
	}
}

func TestBotServicePositions_UnknownBot(t *testing.T) {
	svc, _, _ := newBotService()

	if _, err := svc.Positions(7, 10); !errors.Is(err, repository.ErrBotNotFound) {
		t.Errorf("expected ErrBotNotFound, got %v", err)
	}
}
