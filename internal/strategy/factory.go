package strategy

import (
	"signal_engine/internal/models"

	"github.com/pkg/errors"
)

// NewEngine builds the evaluator for a strategy type. Missing required
// parameters refuse the activation here, before any subscription happens.
func NewEngine(typ models.StrategyType, p Params) (Engine, error) {
	switch typ {
	case models.StrategyBreakout:
		if p.MinVolume <= 0 {
			return nil, errors.New("breakout: min_volume is required and must be > 0")
		}
		return NewBreakout(p.MinVolume), nil

	case models.StrategyTechnical:
		if p.EMAFast <= 0 || p.EMASlow <= 0 || p.EMASignal <= 0 {
			return nil, errors.New("technical: ema_fast, ema_slow and ema_signal are required")
		}
		if p.EMAFast >= p.EMASlow {
			return nil, errors.New("technical: ema_fast must be < ema_slow")
		}
		return NewTechnical(p.EMAFast, p.EMASlow, p.EMASignal), nil

	default:
		return nil, errors.Errorf("unknown strategy type %q", typ)
	}
}
