package models

// PeriodStats - агрегаты по закрытым позициям за период
type PeriodStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	StopLosses  int     `json:"stop_losses"` // закрытия по STOP_LOSS и TRAILING_STOP
	Pnl         float64 `json:"pnl"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"` // абсолютное значение
	Fees        float64 `json:"fees"`
}

// StrategyStat - разбивка результатов по стратегиям
type StrategyStat struct {
	StrategyID string  `json:"strategy_id"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Pnl        float64 `json:"pnl"`
	WinRate    float64 `json:"win_rate"`
}

// Stats - сводная статистика торговли для API
type Stats struct {
	Today         PeriodStats    `json:"today"`
	Week          PeriodStats    `json:"week"`
	Month         PeriodStats    `json:"month"`
	Total         PeriodStats    `json:"total"`
	WinRate       float64        `json:"win_rate"`       // за всё время
	ProfitFactor  float64        `json:"profit_factor"`  // за всё время
	OpenPositions int            `json:"open_positions"` // OPEN + CLOSING
	ByStrategy    []StrategyStat `json:"by_strategy"`
}
