package service

import (
	"errors"
	"fmt"

	"tradebot/internal/bot"
	"tradebot/internal/models"
	"tradebot/internal/strategy"
	"tradebot/pkg/utils"
)

// Ошибки сервиса ботов
var (
	ErrInvalidTransition = errors.New("invalid bot status transition")
	ErrBotHasPositions   = errors.New("bot has open positions")
)

// BotService - управление жизненным циклом ботов
//
// Смена статуса проходит через машину состояний: оркестратор
// подхватывает RUNNING-ботов на следующем цикле, явного сигнала
// ему не требуется.
type BotService struct {
	bots      BotRepositoryInterface
	positions PositionRepositoryInterface
	decisions DecisionRepositoryInterface
}

// NewBotService создает новый сервис ботов
func NewBotService(bots BotRepositoryInterface, positions PositionRepositoryInterface, decisions DecisionRepositoryInterface) *BotService {
	return &BotService{
		bots:      bots,
		positions: positions,
		decisions: decisions,
	}
}

// Create валидирует и сохраняет нового бота в статусе IDLE.
// Стратегия фиксируется при создании и не меняется.
func (s *BotService) Create(b *models.Bot) error {
	if b.Name == "" {
		return fmt.Errorf("bot name is required")
	}
	if _, err := strategy.New(b.StrategyID); err != nil {
		return err
	}
	if err := utils.ValidateSymbol(b.Symbol); err != nil {
		return err
	}
	if err := utils.ValidateCapital(b.Capital); err != nil {
		return err
	}

	// Пустой риск-конфиг заменяется консервативным по умолчанию
	if b.Risk == (models.RiskConfig{}) {
		b.Risk = models.DefaultRiskConfig()
	}
	if err := validateRisk(b.Risk); err != nil {
		return err
	}

	b.Status = models.BotStatusIdle
	return s.bots.Create(b)
}

// validateRisk проверяет диапазоны риск-параметров
func validateRisk(r models.RiskConfig) error {
	if err := utils.ValidateFraction("risk_per_trade_pct", r.RiskPerTradePct, 0.10); err != nil {
		return err
	}
	if err := utils.ValidateFraction("max_position_pct", r.MaxPositionPct, models.AbsoluteMaxPositionPct); err != nil {
		return err
	}
	if err := utils.ValidateFraction("max_daily_loss_pct", r.MaxDailyLossPct, 0.50); err != nil {
		return err
	}
	if err := utils.ValidateFraction("max_drawdown_pct", r.MaxDrawdownPct, 0.50); err != nil {
		return err
	}
	if err := utils.ValidateFraction("tp1_close_pct", r.TP1ClosePct, 0.7); err != nil {
		return err
	}
	if r.MaxTradesPerDay < 1 {
		return fmt.Errorf("max_trades_per_day must be at least 1, got %d", r.MaxTradesPerDay)
	}
	if r.MinRewardRiskRatio < 0.5 {
		return fmt.Errorf("min_reward_risk_ratio must be at least 0.5, got %.2f", r.MinRewardRiskRatio)
	}
	return nil
}

// Get возвращает бота по ID
func (s *BotService) Get(id int) (*models.Bot, error) {
	return s.bots.GetByID(id)
}

// List возвращает всех ботов
func (s *BotService) List() ([]*models.Bot, error) {
	return s.bots.GetAll()
}

// Start переводит бота в RUNNING
func (s *BotService) Start(id int) (*models.Bot, error) {
	return s.transition(id, models.BotStatusRunning)
}

// Pause переводит бота в PAUSED: новые входы запрещены,
// открытые позиции продолжают сопровождаться
func (s *BotService) Pause(id int) (*models.Bot, error) {
	return s.transition(id, models.BotStatusPaused)
}

// Stop переводит бота в IDLE. Работает и как сброс из ERROR.
func (s *BotService) Stop(id int) (*models.Bot, error) {
	return s.transition(id, models.BotStatusIdle)
}

// transition применяет переход статуса через машину состояний
func (s *BotService) transition(id int, to string) (*models.Bot, error) {
	b, err := s.bots.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !bot.CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	if err := s.bots.UpdateStatus(id, to); err != nil {
		return nil, err
	}
	b.Status = to
	return b, nil
}

// Delete удаляет бота. Бот с незавершёнными позициями не удаляется:
// сначала закрытие, потом удаление.
func (s *BotService) Delete(id int) error {
	open, err := s.positions.GetOpenByBot(id)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %d open", ErrBotHasPositions, len(open))
	}
	return s.bots.Delete(id)
}

// Positions возвращает последние позиции бота
func (s *BotService) Positions(id, limit int) ([]*models.Position, error) {
	if _, err := s.bots.GetByID(id); err != nil {
		return nil, err
	}
	return s.positions.GetRecentByBot(id, limit)
}

// Decisions возвращает последние записи журнала решений бота
func (s *BotService) Decisions(id, limit int) ([]*models.DecisionRecord, error) {
	if _, err := s.bots.GetByID(id); err != nil {
		return nil, err
	}
	return s.decisions.GetRecentByBot(id, limit)
}
