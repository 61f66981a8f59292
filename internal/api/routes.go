package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tradebot/internal/api/handlers"
	"tradebot/internal/api/middleware"
	"tradebot/internal/service"
	"tradebot/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	BotService          service.BotServiceInterface
	StatsService        service.StatsServiceInterface
	NotificationService service.NotificationServiceInterface
	Hub                 *websocket.Hub
	Logger              *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /bots/
//	│   ├── GET / - список ботов
//	│   ├── POST / - создать бота
//	│   ├── GET /{id} - получить бота
//	│   ├── DELETE /{id} - удалить бота
//	│   ├── POST /{id}/start - запустить бота
//	│   ├── POST /{id}/pause - приостановить бота
//	│   ├── POST /{id}/stop - остановить бота (и сброс из ERROR)
//	│   ├── GET /{id}/positions - позиции бота
//	│   └── GET /{id}/decisions - журнал решений бота
//	├── /stats/
//	│   └── GET / - сводная статистика торговли
//	└── /notifications/
//	    ├── GET / - лента уведомлений
//	    └── DELETE / - очистка старых уведомлений
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics   - Prometheus метрики
// /health    - health check
//
// Middleware: Recovery -> Logging -> CORS (для всех маршрутов).
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	log := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		log = deps.Logger
	}

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	var botHandler *handlers.BotHandler
	if deps != nil && deps.BotService != nil {
		botHandler = handlers.NewBotHandler(deps.BotService)
	}

	var statsHandler *handlers.StatsHandler
	if deps != nil && deps.StatsService != nil {
		statsHandler = handlers.NewStatsHandler(deps.StatsService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	if botHandler != nil {
		api.HandleFunc("/bots", botHandler.GetBots).Methods("GET")
		api.HandleFunc("/bots", botHandler.CreateBot).Methods("POST")
		api.HandleFunc("/bots/{id}", botHandler.GetBot).Methods("GET")
		api.HandleFunc("/bots/{id}", botHandler.DeleteBot).Methods("DELETE")
		api.HandleFunc("/bots/{id}/start", botHandler.StartBot).Methods("POST")
		api.HandleFunc("/bots/{id}/pause", botHandler.PauseBot).Methods("POST")
		api.HandleFunc("/bots/{id}/stop", botHandler.StopBot).Methods("POST")
		api.HandleFunc("/bots/{id}/positions", botHandler.GetBotPositions).Methods("GET")
		api.HandleFunc("/bots/{id}/decisions", botHandler.GetBotDecisions).Methods("GET")
	}

	if statsHandler != nil {
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	}

	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// WebSocket
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
