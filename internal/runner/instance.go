package runner

import (
	"context"
	"sync/atomic"

	"signal_engine/internal/ledger"
	"signal_engine/internal/models"
	"signal_engine/internal/strategy"
)

// Instance is one user-activated (contract, timeframe, strategy) tuple. It
// owns its candle series and trade ledger; its context dies with deactivation
// and takes the in-flight fill re-checks with it.
type Instance struct {
	ID        string
	Contract  models.Contract
	Timeframe string

	BalancePct    float64
	TakeProfitPct float64
	StopLossPct   float64

	Engine strategy.Engine
	Series *strategy.Series
	Ledger *ledger.Ledger

	// ongoing guards against a second entry while a position is believed open.
	// Written by the tick path and the reconciliation workers.
	ongoing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func (i *Instance) Ongoing() bool { return i.ongoing.Load() }

// OngoingFlag exposes the flag to the coordinator.
func (i *Instance) OngoingFlag() *atomic.Bool { return &i.ongoing }

// Signal evaluates the engine against the current series. While a position is
// ongoing no signal is produced, whatever the candles say.
func (i *Instance) Signal() models.Side {
	if i.ongoing.Load() {
		return models.SideNone
	}
	return i.Engine.Evaluate(i.Series.Candles)
}
