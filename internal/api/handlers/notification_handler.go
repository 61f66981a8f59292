package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tradebot/internal/models"
	"tradebot/internal/service"
)

// NotificationHandler обрабатывает запросы ленты уведомлений
type NotificationHandler struct {
	service service.NotificationServiceInterface
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(svc service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// GetNotifications обрабатывает GET /api/v1/notifications?limit=N
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "notification service not available")
		return
	}

	notifications, err := h.service.Recent(limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// ClearNotifications обрабатывает DELETE /api/v1/notifications?older_than_days=N
//
// По умолчанию удаляет уведомления старше 30 дней.
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "notification service not available")
		return
	}

	days := 30
	if v := r.URL.Query().Get("older_than_days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid older_than_days")
			return
		}
		days = parsed
	}

	deleted, err := h.service.Cleanup(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
