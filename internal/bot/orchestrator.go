package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradebot/internal/exchange"
	"tradebot/internal/exit"
	"tradebot/internal/market"
	"tradebot/internal/models"
	"tradebot/internal/repository"
	"tradebot/internal/risk"
	"tradebot/internal/strategy"
	"tradebot/pkg/retry"
)

// ============================================================
// Коллабораторы оркестратора
// ============================================================

// BotStore - доступ к ботам
type BotStore interface {
	GetByStatus(status string) ([]*models.Bot, error)
	UpdateStatus(id int, status string) error
	TouchLastRun(id int, at time.Time) error
}

// PositionStore - доступ к позициям
type PositionStore interface {
	Create(p *models.Position) error
	Update(p *models.Position) error
	GetOpenByBot(botID int) ([]*models.Position, error)
}

// RiskStateStore - доступ к риск-состояниям
type RiskStateStore interface {
	Get(botID int, initialEquity float64) (*models.RiskState, error)
	Save(state *models.RiskState) error
}

// DecisionLog - журнал аудита решений
type DecisionLog interface {
	Record(rec *models.DecisionRecord) error
}

// Notifier - канал уведомлений (опционален, nil допустим)
type Notifier interface {
	Create(n *models.Notification) error
}

// Classifier - классификатор рыночного режима
type Classifier interface {
	Classify(snapshot *models.MarketSnapshot) *models.ContextAnalysis
}

// ============================================================
// Оркестратор
// ============================================================

// Config - параметры цикла
type Config struct {
	Interval       time.Duration // период тика (60s)
	CandleInterval string        // интервал свечей ("1h")
	CandleCount    int           // глубина снимка (>= 200 для режима)

	// Политики retry по видам I/O
	FetchRetry retry.Config // рыночные данные
	OrderRetry retry.Config // размещение ордеров
	AuditRetry retry.Config // журнал решений
}

// DefaultOrchestratorConfig возвращает стандартный цикл
func DefaultOrchestratorConfig() Config {
	return Config{
		Interval:       60 * time.Second,
		CandleInterval: "1h",
		CandleCount:    210,
		FetchRetry:     retry.NetworkConfig(),
		OrderRetry:     retry.DefaultConfig(),
		AuditRetry:     retry.NetworkConfig(),
	}
}

// Orchestrator гоняет цикл принятия решений по всем активным ботам.
//
// Доменной логики здесь нет: оркестратор последовательно вызывает
// коллабораторов (снимок рынка - контекст - сигнал - риск - исполнение)
// и владеет только сквозными заботами: расписанием, изоляцией ботов,
// retry персистентности.
//
// Изоляция: боты одного тика обрабатываются конкурентно, но два
// конкурентных цикла ОДНОГО бота невозможны - на время цикла
// захватывается персональный мьютекс бота. Если предыдущий цикл
// ещё не дописал своё состояние, новый тик этого бота пропускается.
type Orchestrator struct {
	cfg        Config
	log        *zap.Logger
	bots       BotStore
	positions  PositionStore
	riskStates RiskStateStore
	decisions  DecisionLog
	notifier   Notifier
	source     exchange.MarketDataSource
	gateway    exchange.ExecutionGateway
	classifier Classifier
	validator  *risk.Validator
	exits      *exit.Manager

	mu         sync.Mutex
	botLocks   map[int]*sync.Mutex
	strategies map[int]strategy.Strategy // экземпляр стратегии на бота
}

// NewOrchestrator собирает оркестратор из коллабораторов
func NewOrchestrator(
	cfg Config,
	log *zap.Logger,
	bots BotStore,
	positions PositionStore,
	riskStates RiskStateStore,
	decisions DecisionLog,
	notifier Notifier,
	source exchange.MarketDataSource,
	gateway exchange.ExecutionGateway,
	classifier Classifier,
	validator *risk.Validator,
	exits *exit.Manager,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		log:        log,
		bots:       bots,
		positions:  positions,
		riskStates: riskStates,
		decisions:  decisions,
		notifier:   notifier,
		source:     source,
		gateway:    gateway,
		classifier: classifier,
		validator:  validator,
		exits:      exits,
		botLocks:   make(map[int]*sync.Mutex),
		strategies: make(map[int]strategy.Strategy),
	}
}

// Run крутит цикл до отмены контекста
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	o.log.Info("orchestrator started", zap.Duration("interval", o.cfg.Interval))

	// Первый тик сразу, не через Interval
	o.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			o.RunCycle(ctx)
		case <-ctx.Done():
			o.log.Info("orchestrator stopped")
			return ctx.Err()
		}
	}
}

// RunCycle выполняет один тик по всем активным ботам.
//
// RUNNING боты получают полный цикл. PAUSED боты получают только
// сопровождение открытых позиций: риск-менеджмент позиции не
// бросается из-за паузы.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	running, err := o.bots.GetByStatus(models.BotStatusRunning)
	if err != nil {
		o.log.Error("failed to load running bots", zap.Error(err))
		return
	}
	paused, err := o.bots.GetByStatus(models.BotStatusPaused)
	if err != nil {
		o.log.Error("failed to load paused bots", zap.Error(err))
		paused = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range append(running, paused...) {
		b := b
		g.Go(func() error {
			o.runBotCycle(gctx, b)
			return nil
		})
	}
	_ = g.Wait()
}

// runBotCycle - цикл одного бота под персональным мьютексом
func (o *Orchestrator) runBotCycle(ctx context.Context, b *models.Bot) {
	lock := o.botLock(b.ID)
	if !lock.TryLock() {
		// Предыдущий цикл ещё пишет своё состояние - не наслаиваемся
		o.log.Debug("previous cycle still in flight, skipping tick", zap.Int("bot", b.ID))
		CyclesTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer lock.Unlock()

	started := time.Now()
	defer func() {
		CycleDuration.Observe(time.Since(started).Seconds())
	}()

	log := o.log.With(zap.Int("bot", b.ID), zap.String("symbol", b.Symbol))

	// Риск-состояние читается один раз на цикл и разделяется всеми
	// шагами цикла
	state, err := o.riskStates.Get(b.ID, b.Capital)
	if err != nil {
		log.Error("failed to load risk state", zap.Error(err))
		CyclesTotal.WithLabelValues("error").Inc()
		return
	}
	o.rolloverTradingDay(log, state)

	// Снимок рынка с retry; без данных цикл пропускается
	snapshot, err := o.fetchSnapshot(ctx, b.Symbol)
	if err != nil {
		log.Warn("[SKIP] market data unavailable", zap.Error(err))
		o.recordDecision(ctx, &models.DecisionRecord{
			ID:         uuid.NewString(),
			BotID:      b.ID,
			Symbol:     b.Symbol,
			Class:      models.DecisionClassSkip,
			Action:     models.ActionHold,
			Reason:     "market data unavailable",
			StrategyID: b.StrategyID,
		})
		CyclesTotal.WithLabelValues("skipped").Inc()
		return
	}

	open, err := o.positions.GetOpenByBot(b.ID)
	if err != nil {
		log.Error("failed to load open positions", zap.Error(err))
		CyclesTotal.WithLabelValues("error").Inc()
		return
	}
	OpenPositionsGauge.WithLabelValues(strconv.Itoa(b.ID)).Set(float64(len(open)))

	// Классификация мягкая: nil контекст = режим неизвестен
	marketCtx := o.classifier.Classify(snapshot)

	strat, err := o.strategyFor(b)
	if err != nil {
		log.Error("unknown strategy, bot moved to ERROR", zap.Error(err))
		o.transition(log, b, models.BotStatusError)
		CyclesTotal.WithLabelValues("error").Inc()
		return
	}

	// Сопровождение открытых позиций - всегда, даже на паузе
	o.manageExits(ctx, log, b, state, open, strat, snapshot)

	// Новые входы - только для RUNNING
	if b.IsTradable() {
		o.seekEntry(ctx, log, b, state, open, strat, snapshot, marketCtx)
	}

	if err := o.bots.TouchLastRun(b.ID, time.Now()); err != nil {
		log.Warn("failed to touch last_run_at", zap.Error(err))
	}
	CyclesTotal.WithLabelValues("ok").Inc()
}

// ============================================================
// Шаги цикла
// ============================================================

// fetchSnapshot получает свечи с retry (по умолчанию 1s, 2s, 4s)
func (o *Orchestrator) fetchSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	cfg := o.cfg.FetchRetry
	cfg.RetryIf = retry.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		o.log.Warn("retrying market data fetch",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	candles, err := retry.DoWithResult(ctx, func() ([]models.Candle, error) {
		return o.source.GetCandles(ctx, symbol, o.cfg.CandleInterval, o.cfg.CandleCount)
	}, cfg)
	if err != nil {
		return nil, err
	}

	return &models.MarketSnapshot{
		Symbol:    symbol,
		Candles:   candles,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// manageExits оценивает каждую открытую позицию: машина фаз
// exit-менеджера, затем стратегический выход
func (o *Orchestrator) manageExits(
	ctx context.Context,
	log *zap.Logger,
	b *models.Bot,
	state *models.RiskState,
	open []*models.Position,
	strat strategy.Strategy,
	snapshot *models.MarketSnapshot,
) {
	price := snapshot.LastClose()
	if price <= 0 {
		return
	}

	for _, p := range open {
		instr := o.exits.Evaluate(p, price, b.Risk)

		if instr.Action == exit.ActionNone && strat.ShouldExit(p, snapshot) {
			instr = exit.Instruction{
				Action:   exit.ActionCloseAll,
				Quantity: p.Quantity,
				Reason:   models.ExitReasonStrategy,
			}
		}

		switch instr.Action {
		case exit.ActionNone:
			// Фаза или стоп могли измениться без выхода - персистим
			if err := o.positions.Update(p); err != nil {
				log.Error("failed to persist position state", zap.Error(err))
			}
		case exit.ActionClosePartial, exit.ActionCloseAll:
			o.executeClose(ctx, log, b, state, p, instr)
		}
	}
}

// seekEntry запрашивает сигнал и при положительной валидации исполняет вход
func (o *Orchestrator) seekEntry(
	ctx context.Context,
	log *zap.Logger,
	b *models.Bot,
	state *models.RiskState,
	open []*models.Position,
	strat strategy.Strategy,
	snapshot *models.MarketSnapshot,
	marketCtx *models.ContextAnalysis,
) {
	table := strat.Activation()

	// Политика nil-контекста: режим-зависимые стратегии пропускают
	// цикл, режим-агностичные работают без контекста
	if marketCtx == nil && !table.RegimeAgnostic() {
		log.Info("[SKIP] no market context for regime-dependent strategy",
			zap.String("strategy", strat.ID()))
		o.recordDecision(ctx, &models.DecisionRecord{
			ID:         uuid.NewString(),
			BotID:      b.ID,
			Symbol:     b.Symbol,
			Class:      models.DecisionClassSkip,
			Action:     models.ActionHold,
			Reason:     "no market context",
			StrategyID: strat.ID(),
		})
		return
	}

	// Гейтинг по таблице активации: подавленный сигнал не генерируется
	if !table.IsActive(marketCtx) {
		log.Debug("strategy inactive in current regime",
			zap.String("strategy", strat.ID()),
			zap.String("regime", regimeOf(marketCtx)))
		return
	}

	intent, err := strat.GetSignal(snapshot, marketCtx)
	if err != nil {
		// Fail closed: логическая ошибка стратегии не превращается в сделку
		log.Error("[SKIP] strategy refused to emit signal", zap.Error(err))
		o.recordDecision(ctx, &models.DecisionRecord{
			ID:         uuid.NewString(),
			BotID:      b.ID,
			Symbol:     b.Symbol,
			Class:      models.DecisionClassSkip,
			Action:     models.ActionHold,
			Reason:     err.Error(),
			StrategyID: strat.ID(),
			Regime:     regimeOf(marketCtx),
		})
		return
	}
	if intent == nil {
		return
	}

	if intent.IsEntry() {
		o.executeEntry(ctx, log, b, state, open, strat, intent, snapshot, marketCtx)
		return
	}

	// SELL от стейтфул-стратегии (grid закрывает уровень)
	o.executeStrategySell(ctx, log, b, state, open, strat, intent)
}

// executeEntry: план входа - риск-валидация - ордер - позиция
func (o *Orchestrator) executeEntry(
	ctx context.Context,
	log *zap.Logger,
	b *models.Bot,
	state *models.RiskState,
	open []*models.Position,
	strat strategy.Strategy,
	intent *models.TradeIntent,
	snapshot *models.MarketSnapshot,
	marketCtx *models.ContextAnalysis,
) {
	portfolio := state.CurrentEquity
	if portfolio <= 0 {
		portfolio = b.Capital
	}

	log.Info("[SIGNAL] entry proposed",
		zap.String("strategy", intent.StrategyID),
		zap.Float64("price", intent.EntryPrice),
		zap.String("regime", regimeOf(marketCtx)))
	DecisionsTotal.WithLabelValues(models.DecisionClassSignal).Inc()
	o.recordDecision(ctx, &models.DecisionRecord{
		ID:         uuid.NewString(),
		BotID:      b.ID,
		Symbol:     intent.Symbol,
		Class:      models.DecisionClassSignal,
		Action:     intent.Action,
		StrategyID: intent.StrategyID,
		Regime:     regimeOf(marketCtx),
		Price:      intent.EntryPrice,
		Meta:       contextMeta(marketCtx),
	})

	// Уровни и риск-first размер
	plan, err := o.exits.PlanEntry(intent, snapshot, b.Risk, portfolio)
	if err != nil {
		log.Warn("[SKIP] entry plan rejected", zap.Error(err))
		return
	}
	intent.Quantity = plan.Quantity
	intent.StopLoss = plan.StopLoss
	intent.TakeProfit = plan.TakeProfit1

	// Риск-валидация; отказ - штатный исход, не ошибка
	verdict := o.validator.Validate(intent, state, b.Risk, open, portfolio)
	if !verdict.Allowed {
		log.Warn("[BLOCKED] entry rejected",
			zap.String("reason", verdict.Reason),
			zap.String("detail", verdict.Detail))
		DecisionsTotal.WithLabelValues(models.DecisionClassBlocked).Inc()
		BlockedTotal.WithLabelValues(verdict.Reason).Inc()
		o.recordDecision(ctx, &models.DecisionRecord{
			ID:         uuid.NewString(),
			BotID:      b.ID,
			Symbol:     intent.Symbol,
			Class:      models.DecisionClassBlocked,
			Action:     intent.Action,
			Reason:     verdict.Reason,
			StrategyID: intent.StrategyID,
			Regime:     regimeOf(marketCtx),
			Price:      intent.EntryPrice,
			Quantity:   intent.Quantity,
		})
		o.handleRiskSideEffects(ctx, log, b, verdict)
		return
	}
	intent.Quantity = verdict.Quantity

	// Исполнение
	result, err := o.placeOrder(ctx, intent.Symbol, models.ActionBuy, intent.Quantity)
	if err != nil {
		log.Error("entry order failed", zap.Error(err))
		o.notify(&models.Notification{
			Type:     models.NotificationTypeError,
			Severity: models.SeverityError,
			BotID:    &b.ID,
			Message:  fmt.Sprintf("entry order failed: %v", err),
		})
		return
	}

	position := &models.Position{
		ID:          uuid.NewString(),
		BotID:       b.ID,
		Symbol:      intent.Symbol,
		Side:        models.SideLong,
		Status:      models.PositionOpen,
		ExitPhase:   models.PhasePending,
		EntryPrice:  result.FilledPrice,
		EntryTime:   result.Timestamp,
		Quantity:    result.FilledQty,
		InitialQty:  result.FilledQty,
		StopLoss:    plan.StopLoss,
		InitialStop: plan.StopLoss,
		TakeProfit1: plan.TakeProfit1,
		TakeProfit2: plan.TakeProfit2,
		Fees:        result.Fee,
		StrategyID:  intent.StrategyID,
	}
	if err := o.positions.Create(position); err != nil {
		log.Error("failed to persist new position", zap.Error(err))
	}

	state.RecordFill()
	if err := o.riskStates.Save(state); err != nil {
		log.Error("failed to persist risk state", zap.Error(err))
	}

	o.notifyFill(strat, intent, result)

	log.Info("[BUY-EXEC] position opened",
		zap.String("position", position.ID),
		zap.Float64("qty", result.FilledQty),
		zap.Float64("price", result.FilledPrice),
		zap.Float64("stop", plan.StopLoss),
		zap.Float64("tp1", plan.TakeProfit1),
		zap.Float64("tp2", plan.TakeProfit2))
	DecisionsTotal.WithLabelValues(models.DecisionClassBuyExec).Inc()
	o.recordDecision(ctx, &models.DecisionRecord{
		ID:         uuid.NewString(),
		BotID:      b.ID,
		Symbol:     intent.Symbol,
		Class:      models.DecisionClassBuyExec,
		Action:     models.ActionBuy,
		StrategyID: intent.StrategyID,
		Regime:     regimeOf(marketCtx),
		Price:      result.FilledPrice,
		Quantity:   result.FilledQty,
	})
	o.notify(&models.Notification{
		Type:     models.NotificationTypeOpen,
		Severity: models.SeverityInfo,
		BotID:    &b.ID,
		Message:  fmt.Sprintf("opened %s %.8f @ %.8f", intent.Symbol, result.FilledQty, result.FilledPrice),
	})
}

// executeClose исполняет инструкцию exit-менеджера
func (o *Orchestrator) executeClose(
	ctx context.Context,
	log *zap.Logger,
	b *models.Bot,
	state *models.RiskState,
	p *models.Position,
	instr exit.Instruction,
) {
	// Пока закрытие не подтверждено, позиция занимает символ
	p.Status = models.PositionClosing
	if err := o.positions.Update(p); err != nil {
		log.Error("failed to mark position closing", zap.Error(err))
	}

	result, err := o.placeOrder(ctx, p.Symbol, models.ActionSell, instr.Quantity)
	if err != nil {
		log.Error("exit order failed, position stays open",
			zap.String("position", p.ID),
			zap.String("reason", instr.Reason),
			zap.Error(err))
		p.Status = models.PositionOpen
		if updErr := o.positions.Update(p); updErr != nil {
			log.Error("failed to restore position status", zap.Error(updErr))
		}
		o.notify(&models.Notification{
			Type:     models.NotificationTypeError,
			Severity: models.SeverityError,
			BotID:    &b.ID,
			Message:  fmt.Sprintf("exit order failed for %s: %v", p.Symbol, err),
		})
		return
	}

	pnl := (result.FilledPrice - p.EntryPrice) * result.FilledQty
	p.Quantity -= result.FilledQty
	p.RealizedPnl += pnl
	p.Fees += result.Fee

	// Состояние TP1 фиксируется только после подтверждённого
	// исполнения: при отказе выше частичный выход переиздаётся
	if instr.Action == exit.ActionClosePartial {
		o.exits.CommitPartial(p)
	}

	fullyClosed := p.Quantity <= p.InitialQty*1e-9
	if fullyClosed {
		now := time.Now().UTC()
		p.Status = models.PositionClosed
		p.ExitPhase = models.PhaseClosed
		p.ExitReason = instr.Reason
		p.ClosedAt = &now
		state.RecordClose(p.RealizedPnl - p.Fees)
	} else {
		p.Status = models.PositionOpen
	}
	if err := o.positions.Update(p); err != nil {
		log.Error("failed to persist closed position", zap.Error(err))
	}
	if err := o.riskStates.Save(state); err != nil {
		log.Error("failed to persist risk state", zap.Error(err))
	}

	log.Info("[SELL-EXEC] exit executed",
		zap.String("position", p.ID),
		zap.String("reason", instr.Reason),
		zap.Float64("qty", result.FilledQty),
		zap.Float64("price", result.FilledPrice),
		zap.Float64("pnl", pnl),
		zap.Bool("fully_closed", fullyClosed))
	DecisionsTotal.WithLabelValues(models.DecisionClassSellExec).Inc()
	o.recordDecision(ctx, &models.DecisionRecord{
		ID:         uuid.NewString(),
		BotID:      b.ID,
		Symbol:     p.Symbol,
		Class:      models.DecisionClassSellExec,
		Action:     models.ActionSell,
		Reason:     instr.Reason,
		StrategyID: p.StrategyID,
		Price:      result.FilledPrice,
		Quantity:   result.FilledQty,
		Meta:       map[string]interface{}{"pnl": pnl, "fully_closed": fullyClosed},
	})

	notifType := models.NotificationTypeClose
	severity := models.SeverityInfo
	if instr.Reason == models.ExitReasonStopLoss {
		notifType = models.NotificationTypeSL
		severity = models.SeverityWarn
	}
	o.notify(&models.Notification{
		Type:     notifType,
		Severity: severity,
		BotID:    &b.ID,
		Message:  fmt.Sprintf("closed %.8f %s @ %.8f (%s, pnl %.2f)", result.FilledQty, p.Symbol, result.FilledPrice, instr.Reason, pnl),
	})
}

// executeStrategySell исполняет SELL-сигнал стейтфул-стратегии
// (grid освобождает уровень) против открытой позиции бота
func (o *Orchestrator) executeStrategySell(
	ctx context.Context,
	log *zap.Logger,
	b *models.Bot,
	state *models.RiskState,
	open []*models.Position,
	strat strategy.Strategy,
	intent *models.TradeIntent,
) {
	var target *models.Position
	for _, p := range open {
		if p.Symbol == intent.Symbol && p.IsOccupying() {
			target = p
			break
		}
	}
	if target == nil {
		// Состояние стратегии разошлось с позициями - fail closed
		log.Warn("[SKIP] sell signal without matching position",
			zap.String("strategy", intent.StrategyID),
			zap.String("symbol", intent.Symbol))
		return
	}

	qty := intent.Quantity
	if qty <= 0 || qty > target.Quantity {
		qty = target.Quantity
	}

	instr := exit.Instruction{Action: exit.ActionClosePartial, Quantity: qty, Reason: models.ExitReasonStrategy}
	if qty >= target.Quantity {
		instr.Action = exit.ActionCloseAll
	}
	o.executeClose(ctx, log, b, state, target, instr)

	o.notifyFill(strat, intent, &models.OrderResult{
		Symbol:    intent.Symbol,
		Side:      models.ActionSell,
		FilledQty: qty,
		Status:    models.OrderStatusFilled,
	})
}

// ============================================================
// Вспомогательные
// ============================================================

// placeOrder размещает ордер с retry только для транзиентных сбоев.
// Отклонение биржей (VenueRejection) не повторяется.
func (o *Orchestrator) placeOrder(ctx context.Context, symbol, side string, qty float64) (*models.OrderResult, error) {
	cfg := o.cfg.OrderRetry
	cfg.RetryIf = retry.IsRetryable

	started := time.Now()
	result, err := retry.DoWithResult(ctx, func() (*models.OrderResult, error) {
		return o.gateway.PlaceMarketOrder(ctx, symbol, side, qty)
	}, cfg)
	OrderExecutionLatency.WithLabelValues(side).Observe(time.Since(started).Seconds())

	if err != nil {
		OrdersTotal.WithLabelValues(side, "failed").Inc()
		return nil, err
	}
	if result.Status != models.OrderStatusFilled {
		OrdersTotal.WithLabelValues(side, "rejected").Inc()
		return nil, &exchange.VenueRejectionError{
			Symbol: symbol, Side: side,
			Err: fmt.Errorf("terminal order status %s", result.Status),
		}
	}
	OrdersTotal.WithLabelValues(side, "filled").Inc()
	return result, nil
}

// recordDecision персистит запись аудита с retry (1s, 2s, 4s).
// Потеря аудита после исчерпания попыток логируется и учитывается
// метрикой, но НИКОГДА не прерывает торговлю.
func (o *Orchestrator) recordDecision(ctx context.Context, rec *models.DecisionRecord) {
	cfg := o.cfg.AuditRetry
	cfg.RetryIf = retry.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		o.log.Warn("retrying decision audit write",
			zap.String("decision", rec.ID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	if err := retry.Do(ctx, func() error {
		return o.decisions.Record(rec)
	}, cfg); err != nil {
		AuditLostTotal.Inc()
		o.log.Error("decision audit record lost",
			zap.String("decision", rec.ID),
			zap.String("class", rec.Class),
			zap.Error(err))
	}
}

// handleRiskSideEffects применяет побочные эффекты вердикта:
// пауза бота при дневном лимите, риск-событие при просадке
func (o *Orchestrator) handleRiskSideEffects(ctx context.Context, log *zap.Logger, b *models.Bot, verdict risk.Verdict) {
	if verdict.PauseBot {
		o.transition(log, b, models.BotStatusPaused)
		o.notify(&models.Notification{
			Type:     models.NotificationTypeDailyLoss,
			Severity: models.SeverityWarn,
			BotID:    &b.ID,
			Message:  "daily loss limit reached, bot paused",
		})
	}
	if verdict.RiskEvent {
		o.notify(&models.Notification{
			Type:     models.NotificationTypeDrawdown,
			Severity: models.SeverityError,
			BotID:    &b.ID,
			Message:  "max drawdown breached: " + verdict.Detail,
		})
	}
}

// transition меняет статус бота с проверкой машины состояний
func (o *Orchestrator) transition(log *zap.Logger, b *models.Bot, to string) {
	if !CanTransition(b.Status, to) {
		log.Warn("illegal bot status transition",
			zap.String("from", b.Status),
			zap.String("to", to))
		return
	}
	if err := o.bots.UpdateStatus(b.ID, to); err != nil {
		log.Error("failed to update bot status", zap.Error(err))
		return
	}
	log.Info("bot status changed", zap.String("from", b.Status), zap.String("to", to))
	b.Status = to
}

// rolloverTradingDay сбрасывает дневные счётчики в полночь UTC
func (o *Orchestrator) rolloverTradingDay(log *zap.Logger, state *models.RiskState) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if state.TradingDay.Equal(today) {
		return
	}
	state.ResetDaily(today)
	if err := o.riskStates.Save(state); err != nil {
		log.Error("failed to persist daily reset", zap.Error(err))
	}
	log.Info("trading day rolled over", zap.Time("day", today))
}

// strategyFor возвращает экземпляр стратегии бота, создавая при
// необходимости. Стейтфул-стратегии живут столько же, сколько бот.
func (o *Orchestrator) strategyFor(b *models.Bot) (strategy.Strategy, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.strategies[b.ID]; ok && s.ID() == b.StrategyID {
		return s, nil
	}
	s, err := strategy.New(b.StrategyID)
	if err != nil {
		return nil, err
	}
	o.strategies[b.ID] = s
	return s, nil
}

func (o *Orchestrator) botLock(id int) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.botLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.botLocks[id] = lock
	}
	return lock
}

// notify отправляет уведомление, терпя отсутствие канала
func (o *Orchestrator) notify(n *models.Notification) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Create(n); err != nil {
		o.log.Warn("failed to store notification", zap.Error(err))
	}
}

// notifyFill сообщает стейтфул-стратегии об исполнении её сигнала
func (o *Orchestrator) notifyFill(s strategy.Strategy, intent *models.TradeIntent, result *models.OrderResult) {
	if fa, ok := s.(strategy.FillAware); ok {
		fa.OnFill(intent, result)
	}
}

func regimeOf(ctx *models.ContextAnalysis) string {
	if ctx == nil {
		return ""
	}
	return ctx.Regime
}

func contextMeta(ctx *models.ContextAnalysis) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	return map[string]interface{}{
		"alignment":        ctx.AlignmentScore,
		"volatility_ratio": ctx.VolatilityRatio,
		"volume_ratio":     ctx.VolumeRatio,
		"confidence":       ctx.Confidence,
	}
}

// Проверка соответствия реализаций интерфейсам коллабораторов
var (
	_ BotStore       = (*repository.BotRepository)(nil)
	_ PositionStore  = (*repository.PositionRepository)(nil)
	_ RiskStateStore = (*repository.RiskStateRepository)(nil)
	_ DecisionLog    = (*repository.DecisionRepository)(nil)
	_ Notifier       = (*repository.NotificationRepository)(nil)
	_ Classifier     = (*market.Classifier)(nil)
)
