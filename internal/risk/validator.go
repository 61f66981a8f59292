package risk

import (
	"fmt"

	"go.uber.org/zap"

	"tradebot/internal/models"
)

// Коды отказа риск-валидации
//
// Отказ - НЕ ошибка, а штатный исход контрольного потока:
// оркестратор логирует его событием класса [BLOCKED] и пропускает
// исполнение. Исключений валидатор не бросает.
const (
	ReasonPositionTooLarge  = "POSITION_TOO_LARGE"
	ReasonDuplicatePosition = "DUPLICATE_POSITION"
	ReasonDailyLossLimit    = "DAILY_LOSS_LIMIT"
	ReasonDrawdownLimit     = "DRAWDOWN_LIMIT"
	ReasonTradeCountLimit   = "TRADE_COUNT_LIMIT"
	ReasonPoorRewardRisk    = "POOR_REWARD_RISK"
	ReasonInvalidIntent     = "INVALID_INTENT"
)

// Verdict - результат валидации торгового намерения
type Verdict struct {
	Allowed bool
	Reason  string // код отказа (пустой при Allowed)
	Detail  string // человекочитаемое пояснение для лога

	// Итоговый объём: равен запрошенному либо урезан до лимита
	// при best-effort сайзинге
	Quantity float64
	Clamped  bool

	// Сайд-эффекты для оркестратора
	PauseBot  bool // пробит дневной лимит убытка - бота на паузу
	RiskEvent bool // пробита максимальная просадка - риск-событие
}

func allow(qty float64, clamped bool) Verdict {
	return Verdict{Allowed: true, Quantity: qty, Clamped: clamped}
}

func reject(reason, detail string) Verdict {
	return Verdict{Allowed: false, Reason: reason, Detail: detail}
}

// Validator проверяет торговые намерения против риск-лимитов бота.
//
// Стейтлесс: всё состояние (счётчики, позиции, оценка портфеля)
// передаётся явно в каждый вызов. Порядок проверок фиксирован,
// первый провал завершает валидацию.
type Validator struct {
	log *zap.Logger
}

// NewValidator создаёт риск-валидатор
func NewValidator(log *zap.Logger) *Validator {
	return &Validator{log: log}
}

// Validate прогоняет намерение через цепочку проверок:
//
//	1. размер позиции (с урезанием при best-effort)
//	2. дубликат позиции по символу (OPEN и CLOSING занимают символ)
//	3. дневной лимит убытка (+ пауза бота)
//	4. максимальная просадка (+ риск-событие)
//	5. лимит сделок в день
//	6. минимальное соотношение прибыль:риск
//
// Валидируются только входы. SELL/выходы не блокируются: закрытие
// позиции снижает риск и запрещать его лимитами бессмысленно.
func (v *Validator) Validate(
	intent *models.TradeIntent,
	state *models.RiskState,
	cfg models.RiskConfig,
	open []*models.Position,
	portfolioValue float64,
) Verdict {
	if intent == nil {
		return reject(ReasonInvalidIntent, "nil intent")
	}
	if !intent.IsEntry() {
		return allow(intent.Quantity, false)
	}
	if intent.EntryPrice <= 0 {
		return reject(ReasonInvalidIntent, fmt.Sprintf("non-positive entry price %.8f", intent.EntryPrice))
	}
	if portfolioValue <= 0 {
		return reject(ReasonInvalidIntent, fmt.Sprintf("non-positive portfolio value %.2f", portfolioValue))
	}

	// ---------- 1. Размер позиции ----------
	// Потолок - минимум из конфигурируемого лимита и жёсткого
	// абсолютного максимума. Защита в глубину: exit-менеджер уже
	// капировал размер при расчёте, валидатор проверяет повторно.
	qty := intent.Quantity
	capPct := cfg.MaxPositionPct
	if capPct <= 0 || capPct > models.AbsoluteMaxPositionPct {
		capPct = models.AbsoluteMaxPositionPct
	}
	maxCost := capPct * portfolioValue

	cost := qty * intent.EntryPrice
	if cost > maxCost {
		if !intent.BestEffort {
			return reject(ReasonPositionTooLarge,
				fmt.Sprintf("cost %.2f exceeds limit %.2f (%.0f%% of portfolio)", cost, maxCost, capPct*100))
		}
		clamped := maxCost / intent.EntryPrice
		v.log.Debug("position size clamped to limit",
			zap.String("symbol", intent.Symbol),
			zap.Float64("requested_qty", qty),
			zap.Float64("clamped_qty", clamped))
		qty = clamped
	}

	// ---------- 2. Дубликат позиции ----------
	for _, p := range open {
		if p != nil && p.Symbol == intent.Symbol && p.IsOccupying() {
			return reject(ReasonDuplicatePosition,
				fmt.Sprintf("position %s already %s for %s", p.ID, p.Status, p.Symbol))
		}
	}

	// ---------- 3. Дневной лимит убытка ----------
	lossFloor := -cfg.MaxDailyLossPct * portfolioValue
	if cfg.MaxDailyLossPct > 0 && state.DailyPnl <= lossFloor {
		verdict := reject(ReasonDailyLossLimit,
			fmt.Sprintf("daily pnl %.2f breached floor %.2f", state.DailyPnl, lossFloor))
		verdict.PauseBot = true
		return verdict
	}

	// ---------- 4. Максимальная просадка ----------
	dd := state.DrawdownPct()
	if cfg.MaxDrawdownPct > 0 && dd >= cfg.MaxDrawdownPct {
		verdict := reject(ReasonDrawdownLimit,
			fmt.Sprintf("drawdown %.1f%% >= limit %.1f%%", dd*100, cfg.MaxDrawdownPct*100))
		verdict.RiskEvent = true
		return verdict
	}

	// ---------- 5. Лимит сделок в день ----------
	if cfg.MaxTradesPerDay > 0 && state.TradesToday >= cfg.MaxTradesPerDay {
		return reject(ReasonTradeCountLimit,
			fmt.Sprintf("trades today %d >= cap %d", state.TradesToday, cfg.MaxTradesPerDay))
	}

	// ---------- 6. Соотношение прибыль:риск ----------
	// Проверяется только если стратегия предложила и стоп, и тейк:
	// намерения без уровней досчитает exit-менеджер риск-first.
	if intent.StopLoss > 0 && intent.TakeProfit > 0 {
		riskDist := intent.EntryPrice - intent.StopLoss
		rewardDist := intent.TakeProfit - intent.EntryPrice
		if riskDist <= 0 {
			return reject(ReasonInvalidIntent,
				fmt.Sprintf("stop %.8f not below entry %.8f", intent.StopLoss, intent.EntryPrice))
		}
		floor := cfg.MinRewardRiskRatio
		if floor <= 0 {
			floor = 1.0
		}
		if rewardDist/riskDist < floor {
			return reject(ReasonPoorRewardRisk,
				fmt.Sprintf("reward:risk %.2f below floor %.2f", rewardDist/riskDist, floor))
		}
	}

	return allow(qty, qty != intent.Quantity)
}
