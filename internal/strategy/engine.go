package strategy

import "signal_engine/internal/models"

// Engine — то, что Runner будет дергать на каждом тике.
type Engine interface {
	Name() models.StrategyType
	// Evaluate reads the series and answers BUY, SELL or none. It is called on
	// every tick, not only on bucket close: breakout conditions are checked
	// continuously against the live-updating last candle.
	Evaluate(candles []models.Candle) models.Side
}

// Params carries the variant-specific knobs. Validation happens in NewEngine,
// before activation.
type Params struct {
	// breakout
	MinVolume float64

	// technical (MACD periods)
	EMAFast   int
	EMASlow   int
	EMASignal int
}
