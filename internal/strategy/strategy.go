package strategy

import (
	"errors"

	"tradebot/internal/models"
)

// Ошибки каталога стратегий
var (
	ErrUnknownStrategy = errors.New("unknown strategy id")

	// ErrNoRecordedEntry - попытка стейтфул-стратегии продать уровень,
	// по которому нет записанной покупки. Fail closed: сигнал не эмитится.
	ErrNoRecordedEntry = errors.New("no recorded entry for this level")
)

// Strategy - единый контракт всех торговых стратегий
//
// Оркестратор диспатчит только через интерфейс и никогда не ветвится
// по имени стратегии. Вся специфика - внутри реализации.
type Strategy interface {
	// ID возвращает идентификатор стратегии (trend, breakout, meanrev, momentum, grid)
	ID() string

	// GetSignal анализирует снимок рынка и возвращает торговое намерение.
	// nil намерение == HOLD. Контекст может быть nil (классификатор не
	// смог дать режим) - политику обработки nil решает оркестратор ДО
	// вызова, стратегия получает либо валидный контекст, либо nil если
	// она режим-агностична.
	GetSignal(snapshot *models.MarketSnapshot, ctx *models.ContextAnalysis) (*models.TradeIntent, error)

	// ShouldExit - стратегический выход из открытой позиции,
	// дополняющий SL/TP exit-менеджера (например, возврат к средней
	// для mean-reversion)
	ShouldExit(position *models.Position, snapshot *models.MarketSnapshot) bool

	// Activation возвращает статическую таблицу активации по режимам
	Activation() ActivationTable
}

// Режимы активации стратегии в конкретном рыночном режиме
const (
	ActivationEnabled     = "ENABLED"     // безусловно активна
	ActivationDisabled    = "DISABLED"    // безусловно выключена
	ActivationConditional = "CONDITIONAL" // активна при выполнении условий
)

// ActivationRule - правило активации для одного режима рынка
type ActivationRule struct {
	Mode string

	// Условия для CONDITIONAL (игнорируются в остальных режимах)
	MinVolatilityRatio float64 // 0 = не проверять
	MinVolumeRatio     float64
	MinAlignment       float64
}

// ActivationTable - статическая таблица: режим рынка → правило
type ActivationTable map[string]ActivationRule

// IsActive проверяет, активна ли стратегия в данном контексте
func (t ActivationTable) IsActive(ctx *models.ContextAnalysis) bool {
	if ctx == nil {
		// Без контекста активны только режим-агностичные стратегии
		return t.RegimeAgnostic()
	}

	rule, ok := t[ctx.Regime]
	if !ok {
		return false
	}

	switch rule.Mode {
	case ActivationEnabled:
		return true
	case ActivationConditional:
		if rule.MinVolatilityRatio > 0 && ctx.VolatilityRatio < rule.MinVolatilityRatio {
			return false
		}
		if rule.MinVolumeRatio > 0 && ctx.VolumeRatio < rule.MinVolumeRatio {
			return false
		}
		if rule.MinAlignment > 0 && ctx.AlignmentScore < rule.MinAlignment {
			return false
		}
		return true
	default:
		return false
	}
}

// RegimeAgnostic возвращает true, если стратегия безусловно активна
// во всех известных режимах (например, grid)
func (t ActivationTable) RegimeAgnostic() bool {
	regimes := []string{
		models.RegimeStrongBullish,
		models.RegimeWeakBullish,
		models.RegimeChoppy,
		models.RegimeWeakBearish,
		models.RegimeStrongBearish,
	}
	for _, r := range regimes {
		rule, ok := t[r]
		if !ok || rule.Mode != ActivationEnabled {
			return false
		}
	}
	return true
}
