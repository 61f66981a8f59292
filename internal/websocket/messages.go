package websocket

import (
	"time"

	"tradebot/internal/exchange"
	"tradebot/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypePriceUpdate - тик цены символа.
	// Транслируется из потока цен биржи между торговыми циклами.
	MessageTypePriceUpdate MessageType = "priceUpdate"

	// MessageTypeBotUpdate - изменение статуса бота
	// (запуск, пауза, автопауза по дневному лимиту, ошибка)
	MessageTypeBotUpdate MessageType = "botUpdate"

	// MessageTypeNotification - новое уведомление
	// (открытие, закрытие, SL, лимиты риска, ошибки)
	MessageTypeNotification MessageType = "notification"

	// MessageTypeStatsUpdate - обновление статистики после
	// закрытия позиции
	MessageTypeStatsUpdate MessageType = "statsUpdate"
)

// BaseMessage - общая часть всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// PriceUpdateMessage - тик цены
type PriceUpdateMessage struct {
	BaseMessage
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// BotUpdateMessage - изменение состояния бота
type BotUpdateMessage struct {
	BaseMessage
	BotID  int    `json:"bot_id"`
	Status string `json:"status"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// NotificationMessage - новое уведомление
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// StatsUpdateMessage - сводная статистика торговли
type StatsUpdateMessage struct {
	BaseMessage
	Data *models.Stats `json:"data"`
}

// ============ Фабричные функции ============

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().UTC()}
}

// NewPriceUpdateMessage создает сообщение тика цены
func NewPriceUpdateMessage(update exchange.PriceUpdate) *PriceUpdateMessage {
	return &PriceUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypePriceUpdate, Timestamp: update.At},
		Symbol:      update.Symbol,
		Price:       update.Price,
	}
}

// NewBotUpdateMessage создает сообщение об изменении статуса бота
func NewBotUpdateMessage(bot *models.Bot) *BotUpdateMessage {
	return &BotUpdateMessage{
		BaseMessage: newBase(MessageTypeBotUpdate),
		BotID:       bot.ID,
		Status:      bot.Status,
		Name:        bot.Name,
		Symbol:      bot.Symbol,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(n *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: newBase(MessageTypeNotification),
		Data:        n,
	}
}

// NewStatsUpdateMessage создает сообщение со статистикой
func NewStatsUpdateMessage(stats *models.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: newBase(MessageTypeStatsUpdate),
		Data:        stats,
	}
}
