package runner

import (
	"context"
	"sync"
	"time"

	"signal_engine/internal/executor"
	"signal_engine/internal/ledger"
	"signal_engine/internal/logstore"
	"signal_engine/internal/models"
	"signal_engine/internal/strategy"
	"signal_engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Gateway is the slice of the exchange the runner needs for activation.
type Gateway interface {
	Contracts(ctx context.Context) (map[string]models.Contract, error)
	HistoricalCandles(ctx context.Context, contract models.Contract, timeframe string) ([]models.Candle, error)
	SubscribeTrades(symbol string) error
}

type Notifier interface {
	Sendf(format string, args ...any)
}

// Health receives stream liveness marks. Optional.
type Health interface {
	TouchTick(t time.Time)
}

type ActivateParams struct {
	Symbol     string
	Timeframe  string
	Strategy   models.StrategyType
	BalancePct float64
	TakeProfit float64 // exit threshold, percent of entry price
	StopLoss   float64 // exit threshold, percent of entry price
	Params     strategy.Params
}

// Manager owns the active strategy instances and drives the tick path:
// ingest -> evaluate -> submit, synchronously per tick.
type Manager struct {
	ctx   context.Context
	gw    Gateway
	coord *executor.Coordinator
	logs  *logstore.Store
	n     Notifier

	store  ledger.Store // may be nil
	health Health       // may be nil

	mu        sync.RWMutex
	instances map[string]*Instance // by activation id
	bySymbol  map[string][]*Instance
	contracts map[string]models.Contract
}

func NewManager(ctx context.Context, gw Gateway, coord *executor.Coordinator, logs *logstore.Store, n Notifier, store ledger.Store) *Manager {
	return &Manager{
		ctx:       ctx,
		gw:        gw,
		coord:     coord,
		logs:      logs,
		n:         n,
		store:     store,
		instances: make(map[string]*Instance),
		bySymbol:  make(map[string][]*Instance),
	}
}

func (m *Manager) SetHealth(h Health) { m.health = h }

// contract returns the instrument, loading the contract table from the
// exchange on first use. A failed load is retried on the next activation.
func (m *Manager) contract(ctx context.Context, symbol string) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.contracts == nil {
		cs, err := m.gw.Contracts(ctx)
		if err != nil {
			return models.Contract{}, errors.Wrap(err, "load contracts")
		}
		m.contracts = cs
	}
	c, ok := m.contracts[symbol]
	if !ok {
		return models.Contract{}, errors.Errorf("unknown contract %q", symbol)
	}
	return c, nil
}

// Activate validates the parameters, seeds the candle series from history and
// registers the instance under a fresh activation id. An empty history is a
// hard failure.
func (m *Manager) Activate(ctx context.Context, p ActivateParams) (*Instance, error) {
	bucketMs, ok := models.TimeframeMs[p.Timeframe]
	if !ok {
		return nil, errors.Errorf("unsupported timeframe %q", p.Timeframe)
	}
	if p.BalancePct <= 0 || p.BalancePct > 100 {
		return nil, errors.Errorf("balance percentage %.2f out of (0, 100]", p.BalancePct)
	}
	if p.TakeProfit <= 0 || p.StopLoss <= 0 {
		return nil, errors.New("take profit and stop loss percentages are required")
	}

	engine, err := strategy.NewEngine(p.Strategy, p.Params)
	if err != nil {
		return nil, err
	}

	contract, err := m.contract(ctx, p.Symbol)
	if err != nil {
		return nil, err
	}

	series := strategy.NewSeries(contract.Symbol, p.Timeframe, bucketMs)
	history, err := m.gw.HistoricalCandles(ctx, contract, p.Timeframe)
	if err != nil {
		return nil, errors.Wrapf(err, "seed candles %s %s", contract.Symbol, p.Timeframe)
	}
	if err := series.Seed(history); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	instCtx, cancel := context.WithCancel(m.ctx)
	inst := &Instance{
		ID:            id,
		Contract:      contract,
		Timeframe:     p.Timeframe,
		BalancePct:    p.BalancePct,
		TakeProfitPct: p.TakeProfit,
		StopLossPct:   p.StopLoss,
		Engine:        engine,
		Series:        series,
		Ledger:        ledger.New(id, m.store),
		ctx:           instCtx,
		cancel:        cancel,
	}

	m.mu.Lock()
	m.instances[id] = inst
	m.bySymbol[contract.Symbol] = append(m.bySymbol[contract.Symbol], inst)
	m.mu.Unlock()

	if err := m.gw.SubscribeTrades(contract.Symbol); err != nil {
		logger.Warn("[SUB] %s: %v (stream will pick it up on reconnect)", contract.Symbol, err)
	}

	logger.Info("[ACTIVATE] %s %s %s id=%s seeded=%d", p.Strategy, contract.Symbol, p.Timeframe, id, len(history))
	m.logs.Addf("activated %s on %s %s (%d candles of history)", p.Strategy, contract.Symbol, p.Timeframe, len(history))
	return inst, nil
}

// Deactivate cancels the instance context, which also cancels any in-flight
// fill reconciliation it owns.
func (m *Manager) Deactivate(id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
		list := m.bySymbol[inst.Contract.Symbol]
		for i := range list {
			if list[i] == inst {
				m.bySymbol[inst.Contract.Symbol] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return errors.Errorf("no strategy instance %q", id)
	}
	inst.cancel()
	logger.Info("[DEACTIVATE] %s %s id=%s", inst.Engine.Name(), inst.Contract.Symbol, id)
	m.logs.Addf("deactivated %s on %s", inst.Engine.Name(), inst.Contract.Symbol)
	return nil
}

// Instances returns a snapshot of the active instances.
func (m *Manager) Instances() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// Run consumes the tick stream until the context dies. One goroutine: the
// candle series never sees concurrent writers.
func (m *Manager) Run(ctx context.Context, ticks <-chan models.TradeTick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			m.onTick(tick)
		}
	}
}

func (m *Manager) onTick(tick models.TradeTick) {
	if m.health != nil {
		m.health.TouchTick(time.Now())
	}

	m.mu.RLock()
	instances := append([]*Instance(nil), m.bySymbol[tick.Symbol]...)
	m.mu.RUnlock()

	for _, inst := range instances {
		if inst.Series.Ingest(tick.Price, tick.Size, tick.Timestamp) == strategy.TickDropped {
			continue
		}

		if inst.Ongoing() {
			m.manageExit(inst, tick.Price)
			continue
		}

		side := inst.Signal()
		if side == models.SideNone {
			continue
		}

		last := inst.Series.Last()
		m.announce(models.Signal{
			Symbol:    tick.Symbol,
			Timeframe: inst.Timeframe,
			Side:      side,
			Price:     inst.Contract.RoundToTick(last.Close),
			Strategy:  inst.Engine.Name(),
			Reason:    entryReason(inst.Engine.Name()),
		})

		m.coord.OpenPosition(inst.ctx, executor.Request{
			StrategyID: inst.ID,
			Strategy:   inst.Engine.Name(),
			Contract:   inst.Contract,
			Side:       side,
			LastClose:  last.Close,
			BalancePct: inst.BalancePct,
			Ledger:     inst.Ledger,
			Ongoing:    inst.OngoingFlag(),
		})
	}
}

func entryReason(typ models.StrategyType) string {
	if typ == models.StrategyTechnical {
		return "macd crossover"
	}
	return "range breakout"
}

func (m *Manager) announce(sig models.Signal) {
	logger.Info("[SIGNAL] %s %s %s @ %.8f (%s)", sig.Strategy, sig.Symbol, sig.Side, sig.Price, sig.Reason)
	m.logs.Addf("[%s] %s signal %s @ %.8f (%s)", sig.Symbol, sig.Strategy, sig.Side, sig.Price, sig.Reason)
	m.n.Sendf("🔔 %s %s %s @ %.8f", sig.Symbol, sig.Strategy, sig.Side, sig.Price)
}

// manageExit marks unrealized pnl on the open trade and closes it once price
// crosses the take-profit or stop-loss threshold.
func (m *Manager) manageExit(inst *Instance, price float64) {
	trade, ok := inst.Ledger.OpenTrade()
	if !ok {
		// entry died without a trade surviving; free the instance
		inst.OngoingFlag().Store(false)
		return
	}
	if trade.EntryPrice == nil {
		return // still waiting for the fill
	}
	entry := *trade.EntryPrice

	inst.Ledger.Mutate(inst.ctx, trade.EntryOrderID, func(t *models.Trade) {
		t.UnrealizedPnl = (price - entry) * t.Quantity * t.Direction()
	})

	var hitTP, hitSL bool
	if trade.Side == models.SideBuy {
		hitTP = price >= entry*(1+inst.TakeProfitPct/100)
		hitSL = price <= entry*(1-inst.StopLossPct/100)
	} else {
		hitTP = price <= entry*(1-inst.TakeProfitPct/100)
		hitSL = price >= entry*(1+inst.StopLossPct/100)
	}
	if !hitTP && !hitSL {
		return
	}

	reason := "take profit"
	if hitSL {
		reason = "stop loss"
	}
	m.coord.ClosePosition(inst.ctx, executor.Request{
		StrategyID: inst.ID,
		Strategy:   inst.Engine.Name(),
		Contract:   inst.Contract,
		Side:       trade.Side,
		LastClose:  price,
		BalancePct: inst.BalancePct,
		Ledger:     inst.Ledger,
		Ongoing:    inst.OngoingFlag(),
	}, trade, price, reason)
}
