package ledger

import (
	"context"
	"sync"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// Store is the optional write-behind persistence for trades. Store errors are
// soft failures: the in-memory ledger stays authoritative.
type Store interface {
	Upsert(ctx context.Context, strategyID string, t models.Trade) error
}

// Ledger is the append/update record of executed trades for one strategy
// instance, keyed by entry order id. The tick path and the reconciliation
// workers both write here, so every access goes through the mutex.
type Ledger struct {
	strategyID string

	mu     sync.Mutex
	trades []models.Trade

	store Store
}

func New(strategyID string, store Store) *Ledger {
	return &Ledger{strategyID: strategyID, store: store}
}

func (l *Ledger) Append(ctx context.Context, t models.Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, t)
	l.mu.Unlock()

	l.persist(ctx, t)
}

// Mutate runs fn on the trade with the given entry order id under the ledger
// lock and persists the result. Returns false when no such trade exists.
func (l *Ledger) Mutate(ctx context.Context, entryOrderID int64, fn func(t *models.Trade)) bool {
	l.mu.Lock()
	var updated *models.Trade
	for i := range l.trades {
		if l.trades[i].EntryOrderID == entryOrderID {
			fn(&l.trades[i])
			cp := l.trades[i]
			updated = &cp
			break
		}
	}
	l.mu.Unlock()

	if updated == nil {
		return false
	}
	l.persist(ctx, *updated)
	return true
}

// FindByEntryOrderID returns a copy of the matching trade.
func (l *Ledger) FindByEntryOrderID(entryOrderID int64) (models.Trade, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.trades {
		if l.trades[i].EntryOrderID == entryOrderID {
			return l.trades[i], true
		}
	}
	return models.Trade{}, false
}

// OpenTrade returns the open trade of the instance, if any.
func (l *Ledger) OpenTrade() (models.Trade, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.trades {
		if l.trades[i].Status == models.TradeOpen {
			return l.trades[i], true
		}
	}
	return models.Trade{}, false
}

// Snapshot returns a copy of all trades for read-only presentation.
func (l *Ledger) Snapshot() []models.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) persist(ctx context.Context, t models.Trade) {
	if l.store == nil {
		return
	}
	if err := l.store.Upsert(ctx, l.strategyID, t); err != nil {
		logger.Error("[LEDGER] persist trade order=%d: %v", t.EntryOrderID, err)
	}
}
