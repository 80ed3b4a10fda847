package models

type StrategyType string

const (
	StrategyBreakout  StrategyType = "breakout"
	StrategyTechnical StrategyType = "technical"
)

type Signal struct {
	Symbol    string
	Timeframe string
	Side      Side // BUY / SELL / ""
	Price     float64
	Strategy  StrategyType
	Reason    string
}
