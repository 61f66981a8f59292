package handlers

import (
	"net/http"

	"tradebot/internal/models"
	"tradebot/internal/service"
)

// StatsHandler обрабатывает запросы статистики торговли
type StatsHandler struct {
	service service.StatsServiceInterface
}

// NewStatsHandler создает новый обработчик статистики
func NewStatsHandler(svc service.StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: svc}
}

// GetStats обрабатывает GET /api/v1/stats
//
// Пример ответа:
//
//	{
//	  "today": {"trades": 3, "wins": 2, "pnl": 42.5, ...},
//	  "week": {...},
//	  "month": {...},
//	  "total": {...},
//	  "win_rate": 0.6,
//	  "profit_factor": 2.1,
//	  "open_positions": 2,
//	  "by_strategy": [{"strategy_id": "trend", "trades": 30, ...}]
//	}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusInternalServerError, "stats service not available")
		return
	}

	stats, err := h.service.Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Пустая разбивка сериализуется как [], не null
	if stats.ByStrategy == nil {
		stats.ByStrategy = []models.StrategyStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}
