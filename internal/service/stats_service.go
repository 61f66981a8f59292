package service

import (
	"tradebot/internal/models"
	"tradebot/pkg/utils"
)

// StatsService - сводная статистика торговли
type StatsService struct {
	stats StatsRepositoryInterface
}

// NewStatsService создает новый сервис статистики
func NewStatsService(stats StatsRepositoryInterface) *StatsService {
	return &StatsService{stats: stats}
}

// Get собирает статистику за день, неделю, месяц и всё время.
// Win rate и profit factor считаются по всей истории.
func (s *StatsService) Get() (*models.Stats, error) {
	result := &models.Stats{}

	periods := []struct {
		period utils.PeriodType
		dst    *models.PeriodStats
	}{
		{utils.PeriodDay, &result.Today},
		{utils.PeriodWeek, &result.Week},
		{utils.PeriodMonth, &result.Month},
		{utils.PeriodAll, &result.Total},
	}
	for _, p := range periods {
		stats, err := s.stats.GetPeriodStats(utils.GetPeriodStart(p.period))
		if err != nil {
			return nil, err
		}
		*p.dst = *stats
	}

	result.WinRate = utils.WinRate(result.Total.Wins, result.Total.Losses)
	result.ProfitFactor = utils.ProfitFactor(result.Total.GrossProfit, result.Total.GrossLoss)

	open, err := s.stats.CountOpen()
	if err != nil {
		return nil, err
	}
	result.OpenPositions = open

	breakdown, err := s.stats.GetStrategyBreakdown()
	if err != nil {
		return nil, err
	}
	result.ByStrategy = breakdown

	return result, nil
}
