package service

import (
	"time"

	"tradebot/internal/models"
	"tradebot/internal/repository"
)

// Интерфейсы репозиториев. Сервисы зависят от интерфейсов,
// тесты подменяют их моками.

// BotRepositoryInterface - доступ к таблице ботов
type BotRepositoryInterface interface {
	Create(bot *models.Bot) error
	GetByID(id int) (*models.Bot, error)
	GetAll() ([]*models.Bot, error)
	UpdateStatus(id int, status string) error
	Delete(id int) error
}

// PositionRepositoryInterface - доступ к позициям
type PositionRepositoryInterface interface {
	GetOpenByBot(botID int) ([]*models.Position, error)
	GetRecentByBot(botID, limit int) ([]*models.Position, error)
}

// DecisionRepositoryInterface - журнал решений
type DecisionRepositoryInterface interface {
	GetRecentByBot(botID, limit int) ([]*models.DecisionRecord, error)
}

// StatsRepositoryInterface - агрегаты по закрытым позициям
type StatsRepositoryInterface interface {
	GetPeriodStats(since time.Time) (*models.PeriodStats, error)
	CountOpen() (int, error)
	GetStrategyBreakdown() ([]models.StrategyStat, error)
}

// NotificationRepositoryInterface - уведомления
type NotificationRepositoryInterface interface {
	GetRecent(limit int) ([]*models.Notification, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Проверки соответствия реализаций интерфейсам
var (
	_ BotRepositoryInterface          = (*repository.BotRepository)(nil)
	_ PositionRepositoryInterface     = (*repository.PositionRepository)(nil)
	_ DecisionRepositoryInterface     = (*repository.DecisionRepository)(nil)
	_ StatsRepositoryInterface        = (*repository.StatsRepository)(nil)
	_ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
)

// Интерфейсы сервисов для хэндлеров API

// BotServiceInterface - управление жизненным циклом ботов
type BotServiceInterface interface {
	Create(bot *models.Bot) error
	Get(id int) (*models.Bot, error)
	List() ([]*models.Bot, error)
	Start(id int) (*models.Bot, error)
	Pause(id int) (*models.Bot, error)
	Stop(id int) (*models.Bot, error)
	Delete(id int) error
	Positions(id, limit int) ([]*models.Position, error)
	Decisions(id, limit int) ([]*models.DecisionRecord, error)
}

// StatsServiceInterface - сводная статистика торговли
type StatsServiceInterface interface {
	Get() (*models.Stats, error)
}

// NotificationServiceInterface - лента уведомлений
type NotificationServiceInterface interface {
	Recent(limit int) ([]*models.Notification, error)
	Cleanup(olderThan time.Duration) (int64, error)
}

var (
	_ BotServiceInterface          = (*BotService)(nil)
	_ StatsServiceInterface        = (*StatsService)(nil)
	_ NotificationServiceInterface = (*NotificationService)(nil)
)
