package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradebot/internal/models"
	"tradebot/pkg/ratelimit"
)

// BinanceClient - адаптер Binance Spot: рыночные данные и исполнение.
// Реализует MarketDataSource и ExecutionGateway.
type BinanceClient struct {
	client *binance.Client
	log    *zap.Logger
	limits *ratelimit.MultiLimiter

	// Кэш шага лота по символам: ExchangeInfo тяжёлый, шаг лота
	// меняется редко
	stepMu   sync.RWMutex
	lotSteps map[string]decimal.Decimal
}

// NewBinanceClient создаёт клиента Binance. testnet=true переключает
// весь пакет go-binance на тестовую сеть.
func NewBinanceClient(apiKey, secretKey string, testnet bool, log *zap.Logger) *BinanceClient {
	if testnet {
		binance.UseTestnet = true
	}

	// Лимиты с запасом от официальных: данные и ордера у Binance
	// считаются по разным весам
	limits := ratelimit.NewMultiLimiter()
	limits.Add(ratelimit.CategoryMarketData, 20, 40)
	limits.Add(ratelimit.CategoryOrders, 10, 20)

	return &BinanceClient{
		client:   binance.NewClient(apiKey, secretKey),
		log:      log,
		limits:   limits,
		lotSteps: make(map[string]decimal.Decimal),
	}
}

// ============ MarketDataSource ============

// GetCandles возвращает последние limit свечей
func (b *BinanceClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if err := b.limits.Wait(ctx, ratelimit.CategoryMarketData); err != nil {
		return nil, err
	}

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classifyDataErr(symbol, err)
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		candles[i] = models.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			CloseTime: time.UnixMilli(k.CloseTime),
		}
	}
	return candles, nil
}

// GetCurrentPrice возвращает последнюю цену символа
func (b *BinanceClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.limits.Wait(ctx, ratelimit.CategoryMarketData); err != nil {
		return 0, err
	}

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, classifyDataErr(symbol, err)
	}
	if len(prices) == 0 {
		return 0, &DataUnavailableError{Symbol: symbol, Err: errors.New("empty price response")}
	}
	return parseFloat(prices[0].Price), nil
}

// ============ ExecutionGateway ============

// PlaceMarketOrder размещает рыночный ордер, округляя объём вниз
// до шага лота символа
func (b *BinanceClient) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (*models.OrderResult, error) {
	qty, err := b.roundToLotStep(ctx, symbol, quantity)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		return nil, &VenueRejectionError{
			Symbol: symbol, Side: side,
			Err: fmt.Errorf("quantity %.10f below lot step", quantity),
		}
	}

	sideType := binance.SideTypeBuy
	if side == models.ActionSell {
		sideType = binance.SideTypeSell
	}

	if err := b.limits.Wait(ctx, ratelimit.CategoryOrders); err != nil {
		return nil, err
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(sideType).
		Type(binance.OrderTypeMarket).
		Quantity(qty.String()).
		Do(ctx)
	if err != nil {
		return nil, classifyOrderErr(symbol, side, err)
	}

	result := &models.OrderResult{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		Symbol:    symbol,
		Side:      side,
		FilledQty: parseFloat(resp.ExecutedQuantity),
		Status:    models.OrderStatusFilled,
		Timestamp: time.Now().UTC(),
	}
	if resp.Status != binance.OrderStatusTypeFilled && resp.Status != binance.OrderStatusTypePartiallyFilled {
		result.Status = models.OrderStatusRejected
	}

	// Средняя цена и комиссия из fills
	if result.FilledQty > 0 {
		quote := parseFloat(resp.CummulativeQuoteQuantity)
		result.FilledPrice = quote / result.FilledQty
	}
	for _, fill := range resp.Fills {
		result.Fee += parseFloat(fill.Commission)
	}

	b.log.Info("order placed",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.String("order_id", result.OrderID),
		zap.Float64("filled_qty", result.FilledQty),
		zap.Float64("filled_price", result.FilledPrice))

	return result, nil
}

// roundToLotStep округляет объём вниз до шага лота символа.
// Decimal-арифметика: float64 здесь даст 0.10000000000000001 и
// отклонение ордера фильтром LOT_SIZE.
func (b *BinanceClient) roundToLotStep(ctx context.Context, symbol string, quantity float64) (decimal.Decimal, error) {
	step, err := b.lotStep(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	qty := decimal.NewFromFloat(quantity)
	if step.IsZero() {
		return qty, nil
	}
	return qty.Div(step).Floor().Mul(step), nil
}

func (b *BinanceClient) lotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.stepMu.RLock()
	step, ok := b.lotSteps[symbol]
	b.stepMu.RUnlock()
	if ok {
		return step, nil
	}

	if err := b.limits.Wait(ctx, ratelimit.CategoryMarketData); err != nil {
		return decimal.Zero, err
	}

	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, &TransientError{Op: "exchange info", Err: err}
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		if f := s.LotSizeFilter(); f != nil {
			step, err = decimal.NewFromString(f.StepSize)
			if err != nil {
				return decimal.Zero, &VenueRejectionError{
					Symbol: symbol,
					Err:    fmt.Errorf("bad lot step %q: %w", f.StepSize, err),
				}
			}
		}
	}

	b.stepMu.Lock()
	b.lotSteps[symbol] = step
	b.stepMu.Unlock()
	return step, nil
}

// ============ Классификация ошибок ============

// classifyDataErr: любой сбой получения данных считается транзиентным
func classifyDataErr(symbol string, err error) error {
	return &DataUnavailableError{Symbol: symbol, Err: err}
}

// classifyOrderErr разделяет бизнес-отклонения и сетевые сбои.
// Ответ API с кодом ошибки - решение биржи, повторять нельзя.
func classifyOrderErr(symbol, side string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &VenueRejectionError{Symbol: symbol, Side: side, Err: err}
	}
	return &TransientError{Op: "place order", Err: err}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
