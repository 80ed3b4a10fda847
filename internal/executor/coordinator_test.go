package executor

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"signal_engine/internal/ledger"
	"signal_engine/internal/logstore"
	"signal_engine/internal/models"
)

type placedOrder struct {
	side models.Side
	qty  float64
}

type fakeGateway struct {
	mu sync.Mutex

	size   float64
	sizeOK bool

	placeResp models.OrderStatusResponse
	placeErr  error
	placed    []placedOrder

	statuses    []models.OrderStatusResponse
	statusCalls int
	cancels     int
}

func (g *fakeGateway) TradeSize(_ context.Context, _ models.Contract, _ float64, _ float64) (float64, bool) {
	return g.size, g.sizeOK
}

func (g *fakeGateway) PlaceOrder(_ context.Context, _ models.Contract, side models.Side, qty float64, _ models.OrderType) (models.OrderStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed = append(g.placed, placedOrder{side: side, qty: qty})
	return g.placeResp, g.placeErr
}

// OrderStatus serves the scripted statuses in order, repeating the last one.
func (g *fakeGateway) OrderStatus(_ context.Context, _ models.Contract, orderID int64) (models.OrderStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	i := g.statusCalls - 1
	if i >= len(g.statuses) {
		i = len(g.statuses) - 1
	}
	st := g.statuses[i]
	st.OrderID = orderID
	return st, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, _ models.Contract, orderID int64) (models.OrderStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	return models.OrderStatusResponse{OrderID: orderID, Status: models.OrderCanceled}, nil
}

func (g *fakeGateway) cancelCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancels
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls
}

func (g *fakeGateway) lastPlaced(t *testing.T) placedOrder {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.placed) == 0 {
		t.Fatal("no order was placed")
	}
	return g.placed[len(g.placed)-1]
}

type fakeNotifier struct{}

func (fakeNotifier) Sendf(string, ...any) {}

func testRequest(gw *fakeGateway) (Request, *Coordinator, *logstore.Store) {
	logs := logstore.New()
	c := NewCoordinator(gw, Config{RecheckDelay: time.Millisecond, MaxRechecks: 3, Backoff: 1}, logs, fakeNotifier{})
	req := Request{
		StrategyID: "inst-1",
		Strategy:   models.StrategyBreakout,
		Contract:   models.NewContract("BTCUSDT", "BTC", "USDT", 1, 3, "binance_futures"),
		Side:       models.SideBuy,
		LastClose:  50000,
		BalancePct: 10,
		Ledger:     ledger.New("inst-1", nil),
		Ongoing:    &atomic.Bool{},
	}
	return req, c, logs
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestOpenPositionImmediateFill(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderFilled, AvgPrice: 50001.5},
	}
	req, c, _ := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	trade, ok := req.Ledger.FindByEntryOrderID(11)
	if !ok {
		t.Fatal("no trade recorded")
	}
	if trade.EntryPrice == nil || *trade.EntryPrice != 50001.5 {
		t.Errorf("entry price = %v, want 50001.5", trade.EntryPrice)
	}
	if trade.Status != models.TradeOpen || trade.Side != models.SideBuy {
		t.Errorf("trade = %+v", trade)
	}
	if !req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag not set")
	}

	time.Sleep(20 * time.Millisecond)
	if gw.calls() != 0 {
		t.Errorf("status calls = %d, want 0 for a filled entry", gw.calls())
	}
}

func TestOpenPositionReconcileFill(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderNew},
		statuses: []models.OrderStatusResponse{
			{Status: models.OrderNew},
			{Status: models.OrderFilled, AvgPrice: 123.4},
		},
	}
	req, c, _ := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	trade, ok := req.Ledger.FindByEntryOrderID(11)
	if !ok {
		t.Fatal("no trade recorded")
	}
	if trade.EntryPrice != nil {
		t.Errorf("entry price = %v before fill, want nil", *trade.EntryPrice)
	}

	waitFor(t, func() bool {
		tr, _ := req.Ledger.FindByEntryOrderID(11)
		return tr.EntryPrice != nil && *tr.EntryPrice == 123.4
	})

	// the fill stops the re-check loop
	got := gw.calls()
	time.Sleep(20 * time.Millisecond)
	if gw.calls() != got {
		t.Errorf("status calls kept growing after fill: %d -> %d", got, gw.calls())
	}
	if !req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag cleared by a successful fill")
	}
}

func TestOpenPositionSizeUnavailable(t *testing.T) {
	gw := &fakeGateway{sizeOK: false}
	req, c, logs := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	if len(req.Ledger.Snapshot()) != 0 {
		t.Error("trade recorded despite unavailable size")
	}
	if req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag set despite unavailable size")
	}
	gw.mu.Lock()
	placed := len(gw.placed)
	gw.mu.Unlock()
	if placed != 0 {
		t.Error("order placed despite unavailable size")
	}
	if len(logs.Snapshot()) == 0 {
		t.Error("no user-visible log entry for the skipped entry")
	}
}

func TestOpenPositionRoundsToLot(t *testing.T) {
	gw := &fakeGateway{
		size: 0.12345, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderFilled, AvgPrice: 1},
	}
	req, c, _ := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	if got := gw.lastPlaced(t).qty; got != 0.123 {
		t.Errorf("placed qty = %v, want 0.123", got)
	}
}

func TestOpenPositionZeroLots(t *testing.T) {
	gw := &fakeGateway{size: 0.0004, sizeOK: true}
	req, c, _ := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	gw.mu.Lock()
	placed := len(gw.placed)
	gw.mu.Unlock()
	if placed != 0 {
		t.Error("order placed for a quantity below one lot")
	}
}

func TestOpenPositionPlaceError(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeErr: errors.New("margin is insufficient"),
	}
	req, c, logs := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	if len(req.Ledger.Snapshot()) != 0 {
		t.Error("trade recorded for a rejected submission")
	}
	if req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag set for a rejected submission")
	}
	if len(logs.Snapshot()) == 0 {
		t.Error("no user-visible log entry for the rejection")
	}
}

func TestReconcileExhaustion(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderNew},
		statuses:  []models.OrderStatusResponse{{Status: models.OrderNew}},
	}
	req, c, logs := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	waitFor(t, func() bool {
		for _, e := range logs.Snapshot() {
			if strings.Contains(e.Message, "reconciliation abandoned") {
				return true
			}
		}
		return false
	})

	if gw.calls() != 3 {
		t.Errorf("status calls = %d, want 3", gw.calls())
	}
	trade, _ := req.Ledger.FindByEntryOrderID(11)
	if trade.EntryPrice != nil {
		t.Error("abandoned reconciliation must not invent an entry price")
	}
	if trade.Status != models.TradeOpen {
		t.Errorf("trade status = %s, want OPEN pending manual verification", trade.Status)
	}
}

func TestReconcileTerminalOrderAbortsEntry(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderNew},
		statuses:  []models.OrderStatusResponse{{Status: models.OrderCanceled}},
	}
	req, c, _ := testRequest(gw)

	c.OpenPosition(context.Background(), req)

	waitFor(t, func() bool {
		tr, ok := req.Ledger.FindByEntryOrderID(11)
		return ok && tr.Status == models.TradeClosed
	})
	if req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag still set after the entry order died")
	}
}

func TestReconcileStopsOnCancel(t *testing.T) {
	gw := &fakeGateway{
		size: 0.5, sizeOK: true,
		placeResp: models.OrderStatusResponse{OrderID: 11, Status: models.OrderNew},
		statuses:  []models.OrderStatusResponse{{Status: models.OrderNew}},
	}
	logs := logstore.New()
	c := NewCoordinator(gw, Config{RecheckDelay: 50 * time.Millisecond, MaxRechecks: 30, Backoff: 1}, logs, fakeNotifier{})
	req := Request{
		StrategyID: "inst-1",
		Strategy:   models.StrategyBreakout,
		Contract:   models.NewContract("BTCUSDT", "BTC", "USDT", 1, 3, "binance_futures"),
		Side:       models.SideBuy,
		LastClose:  50000,
		BalancePct: 10,
		Ledger:     ledger.New("inst-1", nil),
		Ongoing:    &atomic.Bool{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.OpenPosition(ctx, req)
	cancel()

	// deactivation cancels the resting order instead of re-checking it
	waitFor(t, func() bool {
		tr, ok := req.Ledger.FindByEntryOrderID(11)
		return ok && tr.Status == models.TradeClosed
	})
	if gw.calls() != 0 {
		t.Errorf("status calls = %d after cancellation, want 0", gw.calls())
	}
	if gw.cancelCalls() != 1 {
		t.Errorf("cancel calls = %d, want 1", gw.cancelCalls())
	}
	if req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag still set after the resting order was canceled")
	}
}

func TestClosePosition(t *testing.T) {
	gw := &fakeGateway{
		placeResp: models.OrderStatusResponse{OrderID: 12, Status: models.OrderFilled, AvgPrice: 110},
	}
	req, c, _ := testRequest(gw)

	entry := 100.0
	trade := models.Trade{
		EntryOrderID: 11,
		Side:         models.SideBuy,
		Quantity:     2,
		Status:       models.TradeOpen,
		EntryPrice:   &entry,
	}
	req.Ledger.Append(context.Background(), trade)
	req.Ongoing.(*atomic.Bool).Store(true)

	c.ClosePosition(context.Background(), req, trade, 109.5, "take profit")

	if got := gw.lastPlaced(t); got.side != models.SideSell || got.qty != 2 {
		t.Errorf("exit order = %+v, want SELL 2", got)
	}
	closed, _ := req.Ledger.FindByEntryOrderID(11)
	if closed.Status != models.TradeClosed {
		t.Errorf("trade status = %s, want CLOSED", closed.Status)
	}
	if closed.RealizedPnl != 20 {
		t.Errorf("realized pnl = %v, want 20 ((110-100)*2)", closed.RealizedPnl)
	}
	if req.Ongoing.(*atomic.Bool).Load() {
		t.Error("ongoing flag still set after close")
	}
}
