package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tradebot/internal/models"
	"tradebot/internal/repository"
	"tradebot/internal/service"
)

// defaultListLimit - размер выборки позиций и решений по умолчанию
const defaultListLimit = 50

// BotHandler обрабатывает запросы управления ботами
type BotHandler struct {
	service service.BotServiceInterface
}

// NewBotHandler создает новый обработчик ботов
func NewBotHandler(svc service.BotServiceInterface) *BotHandler {
	return &BotHandler{service: svc}
}

// CreateBot обрабатывает POST /api/v1/bots
//
// Тело запроса:
//
//	{
//	  "name": "btc-trend",
//	  "strategy_id": "trend",
//	  "symbol": "BTCUSDT",
//	  "capital": 10000,
//	  "risk": {"risk_per_trade_pct": 0.02, ...}
//	}
//
// Пустой risk заполняется значениями по умолчанию.
// Новый бот создается в статусе IDLE.
func (h *BotHandler) CreateBot(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	var bot models.Bot
	if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.Create(&bot); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, &bot)
}

// GetBots обрабатывает GET /api/v1/bots
func (h *BotHandler) GetBots(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	bots, err := h.service.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Пустой список сериализуется как [], не null
	if bots == nil {
		bots = []*models.Bot{}
	}
	writeJSON(w, http.StatusOK, bots)
}

// GetBot обрабатывает GET /api/v1/bots/{id}
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	id, ok := h.botID(w, r)
	if !ok {
		return
	}

	bot, err := h.service.Get(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// StartBot обрабатывает POST /api/v1/bots/{id}/start
//
// Разрешено из IDLE и PAUSED. Оркестратор подхватит бота
// на следующем цикле.
func (h *BotHandler) StartBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int) (*models.Bot, error) { return h.service.Start(id) })
}

// PauseBot обрабатывает POST /api/v1/bots/{id}/pause
//
// Новые входы запрещаются, открытые позиции продолжают сопровождаться.
func (h *BotHandler) PauseBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int) (*models.Bot, error) { return h.service.Pause(id) })
}

// StopBot обрабатывает POST /api/v1/bots/{id}/stop
//
// Перевод в IDLE. Работает и как ручной сброс из ERROR.
func (h *BotHandler) StopBot(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int) (*models.Bot, error) { return h.service.Stop(id) })
}

func (h *BotHandler) transition(w http.ResponseWriter, r *http.Request, apply func(int) (*models.Bot, error)) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	id, ok := h.botID(w, r)
	if !ok {
		return
	}

	bot, err := apply(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// DeleteBot обрабатывает DELETE /api/v1/bots/{id}
//
// Бот с незавершёнными позициями не удаляется (409).
func (h *BotHandler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	id, ok := h.botID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetBotPositions обрабатывает GET /api/v1/bots/{id}/positions?limit=N
func (h *BotHandler) GetBotPositions(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	id, ok := h.botID(w, r)
	if !ok {
		return
	}

	positions, err := h.service.Positions(id, limitParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []*models.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetBotDecisions обрабатывает GET /api/v1/bots/{id}/decisions?limit=N
//
// Возвращает журнал решений бота: SIGNAL, BLOCKED, BUY-EXEC,
// SELL-EXEC, SKIP, новые первыми.
func (h *BotHandler) GetBotDecisions(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "bot service not available")
		return
	}

	id, ok := h.botID(w, r)
	if !ok {
		return
	}

	decisions, err := h.service.Decisions(id, limitParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if decisions == nil {
		decisions = []*models.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, decisions)
}

// botID извлекает и валидирует {id} из пути
func (h *BotHandler) botID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid bot id")
		return 0, false
	}
	return id, true
}

// writeServiceError переводит ошибки сервиса в HTTP статусы
func (h *BotHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrBotNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrBotHasPositions):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// limitParam читает ?limit=N, ограничивая разумным максимумом
func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}
