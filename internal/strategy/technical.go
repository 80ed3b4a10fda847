package strategy

import "signal_engine/internal/models"

// Technical is a MACD crossover: the MACD line (fast EMA minus slow EMA over
// closes) crossing its signal EMA from below is a long, from above a short.
type Technical struct {
	emaFast   int
	emaSlow   int
	emaSignal int
}

func NewTechnical(fast, slow, signal int) *Technical {
	return &Technical{emaFast: fast, emaSlow: slow, emaSignal: signal}
}

func (t *Technical) Name() models.StrategyType { return models.StrategyTechnical }

func (t *Technical) Evaluate(candles []models.Candle) models.Side {
	// need one closed crossover pair beyond warmup
	if len(candles) < t.emaSlow+t.emaSignal+2 {
		return models.SideNone
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast := emaSeries(closes, t.emaFast)
	slow := emaSeries(closes, t.emaSlow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal := emaSeries(macd, t.emaSignal)

	n := len(closes) - 1
	prevDiff := macd[n-1] - signal[n-1]
	currDiff := macd[n] - signal[n]

	if prevDiff <= 0 && currDiff > 0 {
		return models.SideBuy
	}
	if prevDiff >= 0 && currDiff < 0 {
		return models.SideSell
	}
	return models.SideNone
}

// emaSeries returns the running EMA for every index, seeded with the first
// value.
func emaSeries(values []float64, period int) []float64 {
	if period <= 1 {
		period = 1
	}
	alpha := 2.0 / (float64(period) + 1)

	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}
