package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradebot/internal/api"
	"tradebot/internal/bot"
	"tradebot/internal/config"
	"tradebot/internal/exchange"
	"tradebot/internal/exit"
	"tradebot/internal/market"
	"tradebot/internal/repository"
	"tradebot/internal/risk"
	"tradebot/internal/service"
	"tradebot/internal/websocket"
	"tradebot/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := initDatabase(cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	log.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории
	botRepo := repository.NewBotRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	riskStateRepo := repository.NewRiskStateRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Биржа
	binance := exchange.NewBinanceClient(
		cfg.Exchange.APIKey,
		cfg.Exchange.SecretKey,
		cfg.Exchange.Testnet,
		log.Named("binance"),
	)

	// Оркестратор торгового цикла
	orchCfg := bot.DefaultOrchestratorConfig()
	orchCfg.Interval = cfg.Orchestrator.Interval
	orchCfg.CandleInterval = cfg.Orchestrator.CandleInterval
	orchCfg.CandleCount = cfg.Orchestrator.CandleCount

	orchestrator := bot.NewOrchestrator(
		orchCfg,
		log.Named("orchestrator"),
		botRepo,
		positionRepo,
		riskStateRepo,
		decisionRepo,
		notificationRepo,
		binance,
		binance,
		market.NewClassifier(log.Named("market")),
		risk.NewValidator(log.Named("risk")),
		exit.NewManager(log.Named("exit"), exit.DefaultConfig()),
	)

	// WebSocket hub для real-time обновлений
	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run()

	// Сервисы и HTTP API
	deps := &api.Dependencies{
		BotService:          service.NewBotService(botRepo, positionRepo, decisionRepo),
		StatsService:        service.NewStatsService(statsRepo),
		NotificationService: service.NewNotificationService(notificationRepo),
		Hub:                 hub,
		Logger:              log.Named("http"),
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Торговый цикл
	g.Go(func() error {
		log.Info("starting trading cycle",
			zap.Duration("interval", cfg.Orchestrator.Interval),
			zap.String("candle_interval", cfg.Orchestrator.CandleInterval))
		return orchestrator.Run(ctx)
	})

	// Поток цен: питает WebSocket-клиентов между циклами
	if cfg.Stream.Enabled {
		symbols, err := streamSymbols(botRepo)
		if err != nil {
			return fmt.Errorf("load symbols for price stream: %w", err)
		}
		if len(symbols) > 0 {
			streamCfg := exchange.DefaultPriceStreamConfig()
			streamCfg.URL = cfg.Stream.URL
			streamCfg.ReconnectMin = cfg.Stream.ReconnectDelay
			streamCfg.ReconnectMax = cfg.Stream.MaxReconnect

			stream := exchange.NewPriceStream(streamCfg, symbols, hub.BroadcastPrice, log.Named("stream"))
			g.Go(func() error {
				stream.Run(ctx)
				return nil
			})
		}
	}

	// HTTP сервер
	g.Go(func() error {
		log.Info("starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Graceful shutdown по сигналу или первой фатальной ошибке
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	log.Info("server exited")
	return nil
}

// streamSymbols собирает уникальные символы всех ботов для подписки
// потока цен
func streamSymbols(bots *repository.BotRepository) ([]string, error) {
	all, err := bots.GetAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, b := range all {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			symbols = append(symbols, b.Symbol)
		}
	}
	return symbols, nil
}

// initDatabase открывает пул соединений и проверяет доступность БД
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
