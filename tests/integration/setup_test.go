//go:build integration

// Package integration contains integration tests for the trading bot server.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: repository round-trips against real Postgres
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"tradebot/internal/api"
	"tradebot/internal/repository"
	"tradebot/internal/service"
	"tradebot/internal/websocket"
)

// TestConfig contains database configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Repos   *TestRepositories
	Cleanup func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Bot          *repository.BotRepository
	Position     *repository.PositionRepository
	RiskState    *repository.RiskStateRepository
	Decision     *repository.DecisionRepository
	Notification *repository.NotificationRepository
	Stats        *repository.StatsRepository
}

func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "tradebot_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection, skipping the test
// when Postgres is not available
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, func() { db.Close() }
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	repos := &TestRepositories{
		Bot:          repository.NewBotRepository(db),
		Position:     repository.NewPositionRepository(db),
		RiskState:    repository.NewRiskStateRepository(db),
		Decision:     repository.NewDecisionRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Stats:        repository.NewStatsRepository(db),
	}

	deps := &api.Dependencies{
		BotService:          service.NewBotService(repos.Bot, repos.Position, repos.Decision),
		StatsService:        service.NewStatsService(repos.Stats),
		NotificationService: service.NewNotificationService(repos.Notification),
		Hub:                 hub,
		Logger:              zap.NewNop(),
	}
	router := api.SetupRoutes(deps)
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:      db,
		Router:  router,
		Server:  server,
		Hub:     hub,
		Repos:   repos,
		Cleanup: cleanup,
	}
}

// initTestTables creates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS bots (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL DEFAULT 0,
			name VARCHAR(100) NOT NULL,
			strategy_id VARCHAR(20) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'IDLE',
			capital DECIMAL(20, 8) NOT NULL,
			risk_per_trade_pct DECIMAL(8, 6) NOT NULL,
			max_position_pct DECIMAL(8, 6) NOT NULL,
			max_daily_loss_pct DECIMAL(8, 6) NOT NULL,
			max_drawdown_pct DECIMAL(8, 6) NOT NULL,
			max_trades_per_day INT NOT NULL,
			min_reward_risk_ratio DECIMAL(8, 4) NOT NULL,
			tp1_close_pct DECIMAL(8, 6) NOT NULL,
			last_run_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id VARCHAR(36) PRIMARY KEY,
			bot_id INT REFERENCES bots(id) ON DELETE CASCADE,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(10) NOT NULL,
			status VARCHAR(10) NOT NULL,
			exit_phase VARCHAR(10) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			entry_time TIMESTAMP NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			initial_qty DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			initial_stop DECIMAL(20, 8) NOT NULL,
			take_profit_1 DECIMAL(20, 8) NOT NULL,
			take_profit_2 DECIMAL(20, 8) NOT NULL,
			tp1_done BOOLEAN DEFAULT false,
			realized_pnl DECIMAL(20, 8) DEFAULT 0,
			unrealized_pnl DECIMAL(20, 8) DEFAULT 0,
			fees DECIMAL(20, 8) DEFAULT 0,
			strategy_id VARCHAR(20) NOT NULL,
			exit_reason VARCHAR(20),
			closed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS risk_states (
			bot_id INT PRIMARY KEY REFERENCES bots(id) ON DELETE CASCADE,
			trades_today INT NOT NULL DEFAULT 0,
			daily_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			peak_equity DECIMAL(20, 8) NOT NULL,
			current_equity DECIMAL(20, 8) NOT NULL,
			open_positions INT NOT NULL DEFAULT 0,
			trading_day TIMESTAMP NOT NULL,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id VARCHAR(36) PRIMARY KEY,
			bot_id INT NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			class VARCHAR(20) NOT NULL,
			action VARCHAR(10) NOT NULL,
			reason VARCHAR(50) NOT NULL DEFAULT '',
			strategy_id VARCHAR(20) NOT NULL DEFAULT '',
			regime VARCHAR(20) NOT NULL DEFAULT '',
			price DECIMAL(20, 8) NOT NULL DEFAULT 0,
			quantity DECIMAL(20, 8) NOT NULL DEFAULT 0,
			meta JSONB,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			bot_id INT,
			message TEXT NOT NULL,
			meta JSONB
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"notifications",
		"decisions",
		"risk_states",
		"positions",
		"bots",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}
