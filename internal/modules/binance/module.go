package binance

import (
	"context"

	"signal_engine/internal/executor"
	"signal_engine/internal/modules/binance/service"
	healthsvc "signal_engine/internal/modules/health/service"
	"signal_engine/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("binance",
		fx.Provide(
			service.New,
			func(c *service.Client) runner.Gateway { return c },
			func(c *service.Client) executor.Gateway { return c },
			func(c *service.Client) runner.TickSource { return c },
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			c *service.Client,
			state *healthsvc.State,
			ctx context.Context,
		) {
			c.ConnState = state.SetWSConnected
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go c.RunStream(ctx)
					return nil
				},
			})
		}),
	)
}
