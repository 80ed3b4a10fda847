package executor

import (
	"context"
	"time"

	"signal_engine/internal/ledger"
	"signal_engine/internal/logstore"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Gateway is the slice of the exchange the coordinator needs.
type Gateway interface {
	// TradeSize answers the quantity to trade for a balance percentage, or
	// ok=false when balance data is unavailable.
	TradeSize(ctx context.Context, contract models.Contract, price float64, balancePct float64) (float64, bool)
	PlaceOrder(ctx context.Context, contract models.Contract, side models.Side, qty float64, ordType models.OrderType) (models.OrderStatusResponse, error)
	OrderStatus(ctx context.Context, contract models.Contract, orderID int64) (models.OrderStatusResponse, error)
	CancelOrder(ctx context.Context, contract models.Contract, orderID int64) (models.OrderStatusResponse, error)
}

type Notifier interface {
	Sendf(format string, args ...any)
}

type Config struct {
	RecheckDelay time.Duration // delay before each fill re-check
	MaxRechecks  int           // attempts before reconciliation is abandoned
	Backoff      float64       // delay multiplier between attempts
}

func DefaultConfig() Config {
	return Config{
		RecheckDelay: 2 * time.Second,
		MaxRechecks:  30,
		Backoff:      1.5,
	}
}

// Request carries everything the coordinator needs about the strategy instance
// entering or leaving a position.
type Request struct {
	StrategyID string
	Strategy   models.StrategyType
	Contract   models.Contract
	Side       models.Side // entry direction, BUY or SELL
	LastClose  float64
	BalancePct float64
	Ledger     *ledger.Ledger
	Ongoing    interface {
		Store(bool)
	}
}

// Coordinator turns signals into sized market orders and reconciles their fill
// state in the background.
type Coordinator struct {
	gw   Gateway
	cfg  Config
	logs *logstore.Store
	n    Notifier
}

var nowMs = func() int64 { return time.Now().UnixMilli() }

func NewCoordinator(gw Gateway, cfg Config, logs *logstore.Store, n Notifier) *Coordinator {
	if cfg.RecheckDelay <= 0 {
		cfg.RecheckDelay = 2 * time.Second
	}
	if cfg.MaxRechecks <= 0 {
		cfg.MaxRechecks = 30
	}
	if cfg.Backoff < 1 {
		cfg.Backoff = 1
	}
	return &Coordinator{gw: gw, cfg: cfg, logs: logs, n: n}
}

// OpenPosition sizes and submits the entry order. All gateway-side failures
// are soft: log, no trade record, no error raised to the tick path. The
// context is the owning instance's: deactivation cancels the fill re-checks.
func (c *Coordinator) OpenPosition(ctx context.Context, req Request) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "open_position")
	defer span.Finish()
	span.SetTag("symbol", req.Contract.Symbol)
	span.SetTag("side", string(req.Side))

	size, ok := c.gw.TradeSize(ctx, req.Contract, req.LastClose, req.BalancePct)
	if !ok {
		c.logs.Addf("[%s] %s: trade size unavailable, entry skipped", req.Contract.Symbol, req.Strategy)
		return
	}

	qty := req.Contract.RoundToLot(size)
	if qty <= 0 {
		c.logs.Addf("[%s] %s: computed size %.8f rounds to zero lots", req.Contract.Symbol, req.Strategy, size)
		return
	}

	st, err := c.gw.PlaceOrder(ctx, req.Contract, req.Side, qty, models.OrderTypeMarket)
	if err != nil {
		logger.Error("[ORDER] %s place %s %.8f: %v", req.Contract.Symbol, req.Side, qty, err)
		c.logs.Addf("[%s] %s: order rejected by gateway: %v", req.Contract.Symbol, req.Strategy, err)
		return
	}

	req.Ongoing.Store(true)

	trade := models.Trade{
		EntryTime:    nowMs(),
		Symbol:       req.Contract.Symbol,
		Strategy:     string(req.Strategy),
		Side:         req.Side,
		Quantity:     qty,
		Status:       models.TradeOpen,
		EntryOrderID: st.OrderID,
	}
	if st.Status == models.OrderFilled {
		price := st.AvgPrice
		trade.EntryPrice = &price
	}
	req.Ledger.Append(ctx, trade)

	c.logs.Addf("[%s] %s %s %.8f submitted, order=%d status=%s",
		req.Contract.Symbol, req.Strategy, req.Side, qty, st.OrderID, st.Status)
	c.n.Sendf("📊 %s %s %s %.8f (order %d, %s)",
		req.Contract.Symbol, req.Strategy, req.Side, qty, st.OrderID, st.Status)

	switch {
	case st.Status == models.OrderFilled:
		// entry price already recorded, nothing to reconcile
	case st.Status.Terminal():
		c.abortEntry(ctx, req, st.OrderID, st.Status)
	default:
		go c.reconcile(ctx, req, st.OrderID)
	}
}

// reconcile polls the order until it fills, dies on the exchange, the attempt
// limit runs out, or the owning instance is deactivated.
func (c *Coordinator) reconcile(ctx context.Context, req Request, orderID int64) {
	delay := c.cfg.RecheckDelay

	for attempt := 1; attempt <= c.cfg.MaxRechecks; attempt++ {
		select {
		case <-ctx.Done():
			c.cancelResting(req, orderID)
			return
		case <-time.After(delay):
		}

		st, err := c.gw.OrderStatus(ctx, req.Contract, orderID)
		if err != nil {
			logger.Warn("[RECONCILE] %s order=%d attempt=%d: %v", req.Contract.Symbol, orderID, attempt, err)
		} else {
			switch {
			case st.Status == models.OrderFilled:
				price := st.AvgPrice
				req.Ledger.Mutate(ctx, orderID, func(t *models.Trade) {
					t.EntryPrice = &price
				})
				logger.Info("[FILL] %s order=%d avg=%.8f after %d checks", req.Contract.Symbol, orderID, price, attempt)
				c.logs.Addf("[%s] order %d filled @ %.8f", req.Contract.Symbol, orderID, price)
				c.n.Sendf("✅ %s order %d filled @ %.8f", req.Contract.Symbol, orderID, price)
				return
			case st.Status.Terminal():
				c.abortEntry(ctx, req, orderID, st.Status)
				return
			}
		}

		delay = time.Duration(float64(delay) * c.cfg.Backoff)
	}

	logger.Error("[RECONCILE] %s order=%d abandoned after %d attempts", req.Contract.Symbol, orderID, c.cfg.MaxRechecks)
	c.logs.Addf("[%s] reconciliation abandoned for order %d after %d attempts; verify fill state manually",
		req.Contract.Symbol, orderID, c.cfg.MaxRechecks)
}

// cancelResting best-effort cancels an entry order orphaned by deactivation,
// so it cannot fill with nobody watching. The instance context is already
// dead, so a short fresh one is used.
func (c *Coordinator) cancelResting(req Request, orderID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.gw.CancelOrder(ctx, req.Contract, orderID)
	if err != nil {
		logger.Warn("[RECONCILE] %s cancel order=%d: %v", req.Contract.Symbol, orderID, err)
		c.logs.Addf("[%s] could not cancel resting order %d: %v", req.Contract.Symbol, orderID, err)
		return
	}
	c.abortEntry(ctx, req, orderID, st.Status)
}

// abortEntry closes out a trade whose entry order died unfilled and frees the
// instance for new signals.
func (c *Coordinator) abortEntry(ctx context.Context, req Request, orderID int64, st models.OrderStatus) {
	req.Ledger.Mutate(ctx, orderID, func(t *models.Trade) {
		t.Status = models.TradeClosed
	})
	req.Ongoing.Store(false)
	logger.Warn("[ORDER] %s order=%d terminal without fill: %s", req.Contract.Symbol, orderID, st)
	c.logs.Addf("[%s] entry order %d ended %s without a fill", req.Contract.Symbol, orderID, st)
}

// ClosePosition exits an open, filled trade with a market order on the
// opposite side and records realized pnl.
func (c *Coordinator) ClosePosition(ctx context.Context, req Request, trade models.Trade, exitPrice float64, reason string) {
	st, err := c.gw.PlaceOrder(ctx, req.Contract, trade.Side.Opposite(), trade.Quantity, models.OrderTypeMarket)
	if err != nil {
		logger.Error("[EXIT] %s close order=%d: %v", req.Contract.Symbol, trade.EntryOrderID, err)
		c.logs.Addf("[%s] exit order failed: %v", req.Contract.Symbol, err)
		return
	}

	fill := exitPrice
	if st.Status == models.OrderFilled && st.AvgPrice > 0 {
		fill = st.AvgPrice
	}

	entry := 0.0
	if trade.EntryPrice != nil {
		entry = *trade.EntryPrice
	}
	realized := (fill - entry) * trade.Quantity * trade.Direction()

	req.Ledger.Mutate(ctx, trade.EntryOrderID, func(t *models.Trade) {
		t.Status = models.TradeClosed
		t.RealizedPnl = realized
		t.UnrealizedPnl = 0
	})
	req.Ongoing.Store(false)

	logger.Info("[EXIT] %s order=%d %s pnl=%.8f", req.Contract.Symbol, trade.EntryOrderID, reason, realized)
	c.logs.Addf("[%s] position closed (%s), realized pnl %.8f", req.Contract.Symbol, reason, realized)
	c.n.Sendf("🏁 %s closed (%s), pnl %.8f", req.Contract.Symbol, reason, realized)
}
