package service

import (
	"time"

	"tradebot/internal/models"
	"tradebot/internal/repository"
)

// Моки репозиториев для тестов сервисов

type mockBotRepo struct {
	bots          map[int]*models.Bot
	nextID        int
	statusUpdates []string
	deleted       []int
}

func newMockBotRepo(bots ...*models.Bot) *mockBotRepo {
	m := &mockBotRepo{bots: make(map[int]*models.Bot), nextID: 1}
	for _, b := range bots {
		m.bots[b.ID] = b
		if b.ID >= m.nextID {
			m.nextID = b.ID + 1
		}
	}
	return m
}

func (m *mockBotRepo) Create(b *models.Bot) error {
	b.ID = m.nextID
	m.nextID++
	m.bots[b.ID] = b
	return nil
}

func (m *mockBotRepo) GetByID(id int) (*models.Bot, error) {
	b, ok := m.bots[id]
	if !ok {
		return nil, repository.ErrBotNotFound
	}
	return b, nil
}

func (m *mockBotRepo) GetAll() ([]*models.Bot, error) {
	var all []*models.Bot
	for _, b := range m.bots {
		all = append(all, b)
	}
	return all, nil
}

func (m *mockBotRepo) UpdateStatus(id int, status string) error {
	b, ok := m.bots[id]
	if !ok {
		return repository.ErrBotNotFound
	}
	b.Status = status
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *mockBotRepo) Delete(id int) error {
	if _, ok := m.bots[id]; !ok {
		return repository.ErrBotNotFound
	}
	delete(m.bots, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockPositionRepo struct {
	open   []*models.Position
	recent []*models.Position
}

func (m *mockPositionRepo) GetOpenByBot(botID int) ([]*models.Position, error) {
	return m.open, nil
}

func (m *mockPositionRepo) GetRecentByBot(botID, limit int) ([]*models.Position, error) {
	if limit < len(m.recent) {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

type mockDecisionRepo struct {
	records []*models.DecisionRecord
}

func (m *mockDecisionRepo) GetRecentByBot(botID, limit int) ([]*models.DecisionRecord, error) {
	return m.records, nil
}

type mockStatsRepo struct {
	byPeriod  map[time.Time]*models.PeriodStats
	total     models.PeriodStats
	openCount int
	breakdown []models.StrategyStat
}

func (m *mockStatsRepo) GetPeriodStats(since time.Time) (*models.PeriodStats, error) {
	if s, ok := m.byPeriod[since]; ok {
		return s, nil
	}
	if since.IsZero() {
		stats := m.total
		return &stats, nil
	}
	return &models.PeriodStats{}, nil
}

func (m *mockStatsRepo) CountOpen() (int, error) {
	return m.openCount, nil
}

func (m *mockStatsRepo) GetStrategyBreakdown() ([]models.StrategyStat, error) {
	return m.breakdown, nil
}

type mockNotificationRepo struct {
	notifications []*models.Notification
	lastLimit     int
	lastCutoff    time.Time
	deletedCount  int64
}

func (m *mockNotificationRepo) GetRecent(limit int) ([]*models.Notification, error) {
	m.lastLimit = limit
	return m.notifications, nil
}

func (m *mockNotificationRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.lastCutoff = cutoff
	return m.deletedCount, nil
}
