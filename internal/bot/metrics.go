package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах

// ============ Циклы ============

// CyclesTotal - количество завершённых циклов по ботам
var CyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "core",
		Name:      "cycles_total",
		Help:      "Total number of completed decision cycles",
	},
	[]string{"outcome"}, // ok, skipped, error
)

// CycleDuration - длительность цикла одного бота
var CycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "tradebot",
		Subsystem: "core",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a single bot decision cycle",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)

// ============ Решения ============

// DecisionsTotal - решения по классам ([SIGNAL], [BLOCKED], ...)
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "core",
		Name:      "decisions_total",
		Help:      "Total number of decisions by class",
	},
	[]string{"class"},
)

// BlockedTotal - отказы риск-валидатора по причинам
var BlockedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "risk",
		Name:      "blocked_total",
		Help:      "Total number of risk validator rejections by reason",
	},
	[]string{"reason"},
)

// ============ Исполнение ============

// OrdersTotal - размещённые ордера
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "execution",
		Name:      "orders_total",
		Help:      "Total number of placed orders",
	},
	[]string{"side", "status"},
)

// OrderExecutionLatency - время исполнения ордера на бирже
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tradebot",
		Subsystem: "execution",
		Name:      "order_latency_seconds",
		Help:      "Time to execute order on exchange",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
	},
	[]string{"side"},
)

// ============ Аудит ============

// AuditLostTotal - записи аудита, потерянные после исчерпания retry.
// Ненулевое значение - сигнал к проверке БД, торговля при этом
// продолжается.
var AuditLostTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "audit",
		Name:      "lost_total",
		Help:      "Total number of decision records dropped after retry exhaustion",
	},
)

// OpenPositionsGauge - открытые позиции по ботам
var OpenPositionsGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradebot",
		Subsystem: "core",
		Name:      "open_positions",
		Help:      "Number of currently open positions per bot",
	},
	[]string{"bot"},
)
