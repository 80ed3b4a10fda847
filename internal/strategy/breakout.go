package strategy

import "signal_engine/internal/models"

// Breakout signals when the forming candle closes outside the previous
// candle's range on enough volume.
type Breakout struct {
	minVolume float64
}

func NewBreakout(minVolume float64) *Breakout {
	return &Breakout{minVolume: minVolume}
}

func (b *Breakout) Name() models.StrategyType { return models.StrategyBreakout }

func (b *Breakout) Evaluate(candles []models.Candle) models.Side {
	if len(candles) < 2 {
		return models.SideNone
	}
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	if last.Volume <= b.minVolume {
		return models.SideNone
	}
	if last.Close > prev.High {
		return models.SideBuy
	}
	if last.Close < prev.Low {
		return models.SideSell
	}
	return models.SideNone
}
