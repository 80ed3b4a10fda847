package runner

import (
	"context"

	"signal_engine/internal/executor"
	"signal_engine/internal/logstore"
	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/internal/notify"
	"signal_engine/internal/strategy"
	"signal_engine/pkg/logger"

	"go.uber.org/fx"
)

// TickSource is where the runner drains trade ticks from.
type TickSource interface {
	Ticks() <-chan models.TradeTick
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			logstore.New,
			func(cfg *config.Config) (notify.Notifier, error) {
				return notify.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			func(n notify.Notifier) Notifier { return n },
			func(n notify.Notifier) executor.Notifier { return n },
			func(cfg *config.Config) executor.Config {
				return executor.Config{
					RecheckDelay: cfg.Executor.RecheckDelay,
					MaxRechecks:  cfg.Executor.MaxRechecks,
					Backoff:      cfg.Executor.Backoff,
				}
			},
			executor.NewCoordinator,
			NewManager,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			m *Manager,
			src TickSource,
			state *healthsvc.State,
			cfg *config.Config,
			ctx context.Context,
		) {
			m.SetHealth(state)
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go m.Run(ctx, src.Ticks())
					go func() {
						activatePresets(ctx, m, cfg.Strategies)
						state.SetReady(true)
					}()
					return nil
				},
			})
		}),
	)
}

// activatePresets brings up the declaratively configured strategies. A preset
// that fails validation or seeding is refused and logged, the rest continue.
func activatePresets(ctx context.Context, m *Manager, presets []config.StrategyPreset) {
	for _, p := range presets {
		_, err := m.Activate(ctx, ActivateParams{
			Symbol:     p.Symbol,
			Timeframe:  p.Timeframe,
			Strategy:   models.StrategyType(p.Strategy),
			BalancePct: p.BalancePct,
			TakeProfit: p.TakeProfit,
			StopLoss:   p.StopLoss,
			Params: strategy.Params{
				MinVolume: p.MinVolume,
				EMAFast:   p.EMAFast,
				EMASlow:   p.EMASlow,
				EMASignal: p.EMASignal,
			},
		})
		if err != nil {
			logger.Error("[ACTIVATE] %s %s %s refused: %v", p.Strategy, p.Symbol, p.Timeframe, err)
		}
	}
}
