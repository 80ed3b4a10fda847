package ledger

import (
	"context"
	"fmt"

	"signal_engine/internal/models"
	"signal_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// PgStore mirrors trades into postgres, one row per entry order id, the trade
// body as JSON.
type PgStore struct {
	tx db.TxManager
}

func NewPgStore(tx db.TxManager) *PgStore {
	return &PgStore{tx: tx}
}

const upsertSQL = `
INSERT INTO trades (strategy_id, entry_order_id, symbol, data)
VALUES ($1, $2, $3, $4)
ON CONFLICT (strategy_id, entry_order_id) DO UPDATE SET data = EXCLUDED.data`

func (s *PgStore) Upsert(ctx context.Context, strategyID string, t models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PgStore.Upsert: %w", err)
		}
	}()

	var data []byte
	data, err = sonic.Marshal(t)
	if err != nil {
		return err
	}

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx, upsertSQL, strategyID, t.EntryOrderID, t.Symbol, data)
		return execErr
	})
}
