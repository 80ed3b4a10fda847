package postgres

import (
	"context"
	"fmt"

	"signal_engine/internal/ledger"
	"signal_engine/internal/modules/config"
	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"

	"go.uber.org/fx"
)

// Module provides the trade persistence store. With no DSN configured the
// engine runs purely in memory and the store is nil.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
				if cfg.DB == "" {
					logger.Info("[PG] no DSN configured, trade persistence disabled")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err := poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				return ledger.NewPgStore(db.NewPgTxManager(poolMaster)), nil
			},
		),
	)
}
