package service

import (
	"time"

	"tradebot/internal/models"
)

// DefaultNotificationLimit - размер ленты по умолчанию
const DefaultNotificationLimit = 50

// NotificationService - лента уведомлений
type NotificationService struct {
	notifications NotificationRepositoryInterface
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(notifications NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Recent возвращает последние уведомления, новые первыми
func (s *NotificationService) Recent(limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return s.notifications.GetRecent(limit)
}

// Cleanup удаляет уведомления старше указанного возраста,
// возвращает количество удалённых
func (s *NotificationService) Cleanup(olderThan time.Duration) (int64, error) {
	return s.notifications.DeleteOlderThan(time.Now().Add(-olderThan))
}
