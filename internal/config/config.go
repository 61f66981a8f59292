package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"tradebot/internal/models"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Exchange     ExchangeConfig
	Orchestrator OrchestratorConfig
	Stream       StreamConfig
	Logging      LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ExchangeConfig - доступ к бирже
type ExchangeConfig struct {
	APIKey    string
	SecretKey string
	Testnet   bool
}

// OrchestratorConfig - параметры торгового цикла
type OrchestratorConfig struct {
	Interval       time.Duration // период тика
	CandleInterval string        // интервал свечей
	CandleCount    int           // глубина снимка рынка
}

// StreamConfig - параметры WebSocket потока цен
type StreamConfig struct {
	Enabled        bool
	URL            string
	ReconnectDelay time.Duration // начальная задержка переподключения
	MaxReconnect   time.Duration // потолок backoff
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
// Локальный .env подхватывается автоматически, его отсутствие - норма.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "tradebot"),
			User:     getEnv("DB_USER", "tradebot"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Exchange: ExchangeConfig{
			APIKey:    getEnv("BINANCE_API_KEY", ""),
			SecretKey: getEnv("BINANCE_SECRET_KEY", ""),
			Testnet:   getEnvAsBool("BINANCE_TESTNET", true),
		},
		Orchestrator: OrchestratorConfig{
			Interval:       getEnvAsDuration("CYCLE_INTERVAL", 60*time.Second),
			CandleInterval: getEnv("CANDLE_INTERVAL", "1h"),
			CandleCount:    getEnvAsInt("CANDLE_COUNT", 210),
		},
		Stream: StreamConfig{
			Enabled:        getEnvAsBool("PRICE_STREAM_ENABLED", true),
			URL:            getEnv("PRICE_STREAM_URL", "wss://stream.binance.com:9443"),
			ReconnectDelay: getEnvAsDuration("PRICE_STREAM_RECONNECT", 2*time.Second),
			MaxReconnect:   getEnvAsDuration("PRICE_STREAM_RECONNECT_MAX", 16*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет критичные параметры и числовые диапазоны
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Боевой аккаунт без ключей бессмыслен; на testnet публичные
	// данные доступны и без них
	if !c.Exchange.Testnet && (c.Exchange.APIKey == "" || c.Exchange.SecretKey == "") {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_SECRET_KEY are required outside testnet")
	}

	if c.Orchestrator.Interval < time.Second {
		return fmt.Errorf("CYCLE_INTERVAL must be at least 1s, got %v", c.Orchestrator.Interval)
	}

	// Классификатору режима нужна SMA-200 плюс запас
	if c.Orchestrator.CandleCount < models.MinCandlesForRegime {
		return fmt.Errorf("CANDLE_COUNT must be at least %d, got %d",
			models.MinCandlesForRegime, c.Orchestrator.CandleCount)
	}

	switch c.Orchestrator.CandleInterval {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
	default:
		return fmt.Errorf("unsupported CANDLE_INTERVAL %q", c.Orchestrator.CandleInterval)
	}

	if c.Stream.ReconnectDelay <= 0 || c.Stream.MaxReconnect < c.Stream.ReconnectDelay {
		return fmt.Errorf("invalid price stream reconnect window: %v .. %v",
			c.Stream.ReconnectDelay, c.Stream.MaxReconnect)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
