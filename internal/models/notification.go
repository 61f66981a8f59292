package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // OPEN, CLOSE, SL, DAILY_LOSS, DRAWDOWN, ERROR, PAUSE
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	BotID     *int                   `json:"bot_id,omitempty" db:"bot_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpen      = "OPEN"       // открытие позиции
	NotificationTypeClose     = "CLOSE"      // закрытие позиции
	NotificationTypeSL        = "SL"         // срабатывание Stop Loss
	NotificationTypeDailyLoss = "DAILY_LOSS" // достигнут дневной лимит убытка
	NotificationTypeDrawdown  = "DRAWDOWN"   // достигнут лимит просадки
	NotificationTypeError     = "ERROR"      // ошибка API/ордера
	NotificationTypePause     = "PAUSE"      // пауза/остановка бота
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
