package exchange

import (
	"context"
	"fmt"

	"tradebot/internal/models"
)

// MarketDataSource - поставщик рыночных данных
type MarketDataSource interface {
	// GetCandles возвращает последние limit свечей интервала interval.
	// При транзиентном сбое возвращает *DataUnavailableError (retryable).
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// GetCurrentPrice возвращает последнюю цену символа
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// ExecutionGateway - шлюз исполнения ордеров
type ExecutionGateway interface {
	// PlaceMarketOrder размещает рыночный ордер.
	// *VenueRejectionError - отклонение биржей по бизнес-причине
	// (не повторять), *TransientError - сетевой сбой (повторять).
	PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (*models.OrderResult, error)
}

// ============================================================
// Классифицированные ошибки
// ============================================================

// DataUnavailableError - рыночные данные временно недоступны
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("market data unavailable for %s: %v", e.Symbol, e.Err)
}
func (e *DataUnavailableError) Unwrap() error   { return e.Err }
func (e *DataUnavailableError) Retryable() bool { return true }

// VenueRejectionError - биржа отклонила ордер (баланс, фильтры
// символа, закрытый рынок). Повтор того же ордера бессмыслен.
type VenueRejectionError struct {
	Symbol string
	Side   string
	Err    error
}

func (e *VenueRejectionError) Error() string {
	return fmt.Sprintf("order %s %s rejected by venue: %v", e.Side, e.Symbol, e.Err)
}
func (e *VenueRejectionError) Unwrap() error   { return e.Err }
func (e *VenueRejectionError) Retryable() bool { return false }

// TransientError - сетевой сбой при обращении к бирже
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient exchange error in %s: %v", e.Op, e.Err)
}
func (e *TransientError) Unwrap() error   { return e.Err }
func (e *TransientError) Retryable() bool { return true }
