package strategy

import (
	"fmt"

	"tradebot/internal/models"
)

// FillAware - опциональный интерфейс для стейтфул-стратегий,
// которым нужно знать об исполнении своих сигналов
type FillAware interface {
	OnFill(intent *models.TradeIntent, result *models.OrderResult)
}

// New создаёт стратегию по идентификатору
//
// Каждый бот получает СВОЙ экземпляр: стейтфул-стратегии (grid)
// не разделяют состояние между ботами.
func New(strategyID string) (Strategy, error) {
	switch strategyID {
	case "trend":
		return NewTrendFollowing(), nil
	case "breakout":
		return NewBreakout(), nil
	case "meanrev":
		return NewMeanReversion(), nil
	case "momentum":
		return NewMomentum(), nil
	case "grid":
		return NewGrid(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategyID)
	}
}

// IDs возвращает список известных стратегий
func IDs() []string {
	return []string{"trend", "breakout", "meanrev", "momentum", "grid"}
}
