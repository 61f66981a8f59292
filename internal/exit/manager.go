package exit

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradebot/internal/indicators"
	"tradebot/internal/models"
)

// Ошибки расчёта входа
var (
	// ErrDegenerateStop - рассчитанный стоп совпадает с ценой входа
	// или лежит не с той стороны. Вход с таким стопом означает
	// бесконечный размер позиции при риск-first сайзинге.
	ErrDegenerateStop = errors.New("degenerate stop-loss level")

	ErrInsufficientData = errors.New("not enough candles to compute stop")
)

// Методы расчёта стоп-лосса
const (
	StopMethodATR        = "ATR"        // кратное ATR от входа
	StopMethodFixedPct   = "FIXED_PCT"  // фиксированный процент от входа
	StopMethodStructural = "STRUCTURAL" // ближайший swing low
	StopMethodHybrid     = "HYBRID"     // самый тугой из ATR и структурного
)

// Config - параметры сопровождения позиции
type Config struct {
	StopMethod    string
	ATRPeriod     int
	ATRMultiple   float64
	FixedStopPct  float64 // 0.025 = 2.5%
	SwingLookback int

	TP1RewardRisk float64 // множитель дистанции стопа для TP1
	TP2RewardRisk float64 // множитель для TP2

	// Пороги фаз в долях дистанции стопа:
	// профит >= ValidateAt*dist - стоп на безубыток (PENDING-VALIDATED),
	// профит >= TrailAt*dist - стоп следует за ценой (VALIDATED-TRAILING)
	ValidateAt float64
	TrailAt    float64

	TrailDistancePct float64 // дистанция трейлинга от цены (0.01 = 1%)
}

// DefaultConfig возвращает стандартный профиль сопровождения
func DefaultConfig() Config {
	return Config{
		StopMethod:       StopMethodATR,
		ATRPeriod:        14,
		ATRMultiple:      1.5,
		FixedStopPct:     0.025,
		SwingLookback:    20,
		TP1RewardRisk:    1.5,
		TP2RewardRisk:    3.0,
		ValidateAt:       0.5,
		TrailAt:          1.0,
		TrailDistancePct: 0.01,
	}
}

// EntryPlan - уровни и размер, рассчитанные на входе
type EntryPlan struct {
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	Quantity    float64
}

// Действия, которые менеджер предписывает оркестратору
const (
	ActionNone         = "NONE"
	ActionClosePartial = "CLOSE_PARTIAL"
	ActionCloseAll     = "CLOSE_ALL"
)

// Instruction - результат одной оценки позиции
type Instruction struct {
	Action   string
	Quantity float64 // объём к закрытию (для partial и full)
	Reason   string  // причина выхода из models.ExitReason*
}

func none() Instruction { return Instruction{Action: ActionNone} }

// Manager сопровождает открытые позиции: считает уровни на входе
// и гоняет машину фаз PENDING - VALIDATED - TRAILING - CLOSED.
//
// Менеджер мутирует переданную позицию (фаза, стоп, остаток) и
// возвращает инструкцию; исполнение и персист - забота оркестратора.
type Manager struct {
	log *zap.Logger
	cfg Config
}

// NewManager создаёт менеджер выходов
func NewManager(log *zap.Logger, cfg Config) *Manager {
	return &Manager{log: log, cfg: cfg}
}

// ============ Вход ============

// PlanEntry считает стоп, тейки и размер для нового входа.
//
// Размер риск-first: size = (portfolio * risk_per_trade) / stop_distance,
// затем потолок - минимум конфигурируемого и абсолютного лимита
// стоимости позиции. Предложенный стратегией объём уважается, если
// он меньше расчётного.
func (m *Manager) PlanEntry(
	intent *models.TradeIntent,
	snapshot *models.MarketSnapshot,
	riskCfg models.RiskConfig,
	portfolioValue float64,
) (*EntryPlan, error) {
	entry := intent.EntryPrice
	if entry <= 0 {
		return nil, fmt.Errorf("entry price %.8f: %w", entry, ErrDegenerateStop)
	}

	stop := intent.StopLoss
	if stop <= 0 {
		var err error
		stop, err = m.computeStop(entry, snapshot)
		if err != nil {
			return nil, err
		}
	}
	dist := entry - stop
	if dist <= 0 || stop <= 0 {
		return nil, fmt.Errorf("stop %.8f vs entry %.8f: %w", stop, entry, ErrDegenerateStop)
	}

	plan := &EntryPlan{
		StopLoss:    stop,
		TakeProfit1: entry + dist*m.cfg.TP1RewardRisk,
		TakeProfit2: entry + dist*m.cfg.TP2RewardRisk,
	}

	// Риск-first размер с двойным потолком
	qty := portfolioValue * riskCfg.RiskPerTradePct / dist
	capPct := riskCfg.MaxPositionPct
	if capPct <= 0 || capPct > models.AbsoluteMaxPositionPct {
		capPct = models.AbsoluteMaxPositionPct
	}
	maxQty := capPct * portfolioValue / entry
	if qty > maxQty {
		qty = maxQty
	}
	if intent.Quantity > 0 && intent.Quantity < qty {
		qty = intent.Quantity
	}
	plan.Quantity = qty

	return plan, nil
}

// computeStop выбирает уровень стопа по настроенному методу
func (m *Manager) computeStop(entry float64, snapshot *models.MarketSnapshot) (float64, error) {
	if snapshot == nil || len(snapshot.Candles) == 0 {
		return 0, ErrInsufficientData
	}

	atrStop := func() float64 {
		atr := indicators.Last(indicators.ATR(snapshot.Candles, m.cfg.ATRPeriod))
		if !indicators.Valid(atr) || atr <= 0 {
			return 0
		}
		return entry - atr*m.cfg.ATRMultiple
	}
	structStop := func() float64 {
		low := indicators.SwingLow(snapshot.Candles, m.cfg.SwingLookback)
		if !indicators.Valid(low) || low >= entry {
			return 0
		}
		return low
	}

	var stop float64
	switch m.cfg.StopMethod {
	case StopMethodFixedPct:
		stop = entry * (1 - m.cfg.FixedStopPct)
	case StopMethodStructural:
		stop = structStop()
	case StopMethodHybrid:
		// Самый тугой (ближайший к входу) из двух валидных
		a, s := atrStop(), structStop()
		stop = a
		if s > stop {
			stop = s
		}
	default: // StopMethodATR
		stop = atrStop()
	}

	if stop <= 0 {
		return 0, ErrInsufficientData
	}
	return stop, nil
}

// ============ Сопровождение ============

// Evaluate прогоняет одну оценку открытой позиции по текущей цене.
//
// Идемпотентность: после зафиксированного исполнения повторный вызов
// с той же ценой не даёт ни нового перехода фазы, ни повторной
// инструкции на выход - рэтчеты стопа монотонны, частичный выход
// защищён флагом TP1Done, который ставится только в CommitPartial.
func (m *Manager) Evaluate(p *models.Position, price float64, riskCfg models.RiskConfig) Instruction {
	if p == nil || p.IsTerminal() || price <= 0 || p.Quantity <= 0 {
		return none()
	}

	// Полный тейк: закрываем остаток
	if p.TakeProfit2 > 0 && price >= p.TakeProfit2 {
		return m.closeAll(p, models.ExitReasonTakeProfit2)
	}

	// Частичный тейк: фиксируем долю, остаток бежит дальше.
	// Состояние TP1 (флаг, стоп, фаза) здесь НЕ трогаем: его
	// фиксирует CommitPartial после подтверждённого ордера. Пока
	// ордер не исполнен, каждая следующая оценка по цене >= TP1
	// переиздаёт ту же инструкцию.
	if !p.TP1Done && p.TakeProfit1 > 0 && price >= p.TakeProfit1 {
		closePct := riskCfg.TP1ClosePct
		if closePct <= 0 || closePct >= 1 {
			closePct = 0.5
		}
		closeQty := p.Quantity * closePct

		m.log.Info("tp1 partial exit",
			zap.String("position", p.ID),
			zap.Float64("price", price),
			zap.Float64("close_qty", closeQty))

		return Instruction{Action: ActionClosePartial, Quantity: closeQty, Reason: models.ExitReasonTakeProfit1}
	}

	// Переходы фаз и рэтчеты стопа
	m.advance(p, price)

	// Стоп: закрытие остатка. Пробой строгий: касание уровня
	// выходом не считается, иначе повторная оценка по той же цене
	// после TP1 (стоп == TP1 == цена) закрыла бы раннер.
	if p.StopLoss > 0 && price < p.StopLoss {
		reason := models.ExitReasonStopLoss
		if p.ExitPhase == models.PhaseTrailing {
			reason = models.ExitReasonTrailingStop
		}
		return m.closeAll(p, reason)
	}

	return none()
}

// CommitPartial фиксирует состояние TP1 после подтверждённого
// частичного закрытия: флаг, стоп не ниже уровня TP1 (остаток уже
// не может превратиться в убыток), фаза TRAILING. Вызывается
// оркестратором только после успешного ордера - при отказе биржи
// позиция остаётся в прежней фазе и частичный выход будет переиздан
// на следующем цикле.
func (m *Manager) CommitPartial(p *models.Position) {
	p.TP1Done = true
	p.RatchetStop(p.TakeProfit1)
	p.AdvancePhase(models.PhaseTrailing)
}

// advance двигает фазу и стоп по текущей цене
func (m *Manager) advance(p *models.Position, price float64) {
	dist := p.EntryPrice - p.InitialStop
	if dist <= 0 {
		return
	}
	profit := price - p.EntryPrice

	// PENDING - VALIDATED: профит подтверждён, стоп на безубыток
	if p.ExitPhase == models.PhasePending && profit >= dist*m.cfg.ValidateAt {
		p.RatchetStop(p.EntryPrice)
		p.AdvancePhase(models.PhaseValidated)
		m.log.Debug("position validated, stop at breakeven",
			zap.String("position", p.ID), zap.Float64("price", price))
	}

	// VALIDATED - TRAILING
	if p.ExitPhase == models.PhaseValidated && profit >= dist*m.cfg.TrailAt {
		p.AdvancePhase(models.PhaseTrailing)
		m.log.Debug("position entered trailing",
			zap.String("position", p.ID), zap.Float64("price", price))
	}

	// Трейлинг: стоп следует за ценой, строго вверх
	if p.ExitPhase == models.PhaseTrailing {
		p.RatchetStop(price * (1 - m.cfg.TrailDistancePct))
	}
}

func (m *Manager) closeAll(p *models.Position, reason string) Instruction {
	qty := p.Quantity
	m.log.Info("full exit",
		zap.String("position", p.ID),
		zap.String("reason", reason),
		zap.Float64("qty", qty))
	return Instruction{Action: ActionCloseAll, Quantity: qty, Reason: reason}
}
