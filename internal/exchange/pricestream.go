package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Состояния потока цен
const (
	streamDisconnected int32 = iota
	streamConnected
	streamClosed
)

// PriceUpdate - тик цены из WebSocket-потока
type PriceUpdate struct {
	Symbol string
	Price  float64
	At     time.Time
}

// PriceStreamConfig - параметры соединения и переподключения
type PriceStreamConfig struct {
	URL            string        // базовый WS endpoint
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration

	// Переподключение: задержки 2s, 4s, 8s, 16s (потолок)
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// DefaultPriceStreamConfig возвращает конфигурацию для Binance Spot
func DefaultPriceStreamConfig() PriceStreamConfig {
	return PriceStreamConfig{
		URL:            "wss://stream.binance.com:9443",
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		ReconnectMin:   2 * time.Second,
		ReconnectMax:   16 * time.Second,
	}
}

// PriceStream - WebSocket-поток цен с автоматическим переподключением.
//
// Поток вспомогательный: торговый цикл работает от REST-снимков,
// стрим питает мониторинг позиций между циклами. Обрыв соединения
// не останавливает торговлю - поток молча переподключается с
// экспоненциальной задержкой и переподписывается.
type PriceStream struct {
	cfg     PriceStreamConfig
	symbols []string
	log     *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	state   int32 // atomic
	onPrice func(PriceUpdate)
}

// NewPriceStream создаёт поток для набора символов
func NewPriceStream(cfg PriceStreamConfig, symbols []string, onPrice func(PriceUpdate), log *zap.Logger) *PriceStream {
	return &PriceStream{
		cfg:     cfg,
		symbols: symbols,
		onPrice: onPrice,
		log:     log,
	}
}

// Run держит соединение открытым до отмены контекста.
// Блокирует вызывающую горутину.
func (ps *PriceStream) Run(ctx context.Context) {
	defer atomic.StoreInt32(&ps.state, streamClosed)

	b := &backoff.Backoff{
		Min:    ps.cfg.ReconnectMin,
		Max:    ps.cfg.ReconnectMax,
		Factor: 2,
		Jitter: true,
	}

	for {
		if ctx.Err() != nil {
			return
		}

		err := ps.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := b.Duration()
		ps.log.Warn("price stream disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// Connected сообщает, жив ли поток (для healthcheck)
func (ps *PriceStream) Connected() bool {
	return atomic.LoadInt32(&ps.state) == streamConnected
}

// streamURL собирает combined-stream URL для miniTicker всех символов
func (ps *PriceStream) streamURL() string {
	streams := make([]string, len(ps.symbols))
	for i, s := range ps.symbols {
		streams[i] = strings.ToLower(s) + "@miniTicker"
	}
	return fmt.Sprintf("%s/stream?streams=%s", ps.cfg.URL, strings.Join(streams, "/"))
}

func (ps *PriceStream) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: ps.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, ps.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ps.connMu.Lock()
	ps.conn = conn
	ps.connMu.Unlock()
	atomic.StoreInt32(&ps.state, streamConnected)
	ps.log.Info("price stream connected", zap.Strings("symbols", ps.symbols))

	defer func() {
		atomic.StoreInt32(&ps.state, streamDisconnected)
		conn.Close()
	}()

	// Ping/pong: без живости биржа молча бросает соединение
	conn.SetReadDeadline(time.Now().Add(ps.cfg.PingInterval + ps.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ps.cfg.PingInterval + ps.cfg.PongTimeout))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go ps.pingLoop(ctx, conn, pingDone)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ps.handleMessage(raw)
	}
}

func (ps *PriceStream) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(ps.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(ps.cfg.PongTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// miniTickerEvent - полезная нагрузка combined stream
type miniTickerEvent struct {
	Data struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

func (ps *PriceStream) handleMessage(raw []byte) {
	var event miniTickerEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		ps.log.Debug("unparseable stream message", zap.Error(err))
		return
	}
	if event.Data.Symbol == "" || ps.onPrice == nil {
		return
	}

	ps.onPrice(PriceUpdate{
		Symbol: event.Data.Symbol,
		Price:  parseFloat(event.Data.Close),
		At:     time.Now().UTC(),
	})
}
