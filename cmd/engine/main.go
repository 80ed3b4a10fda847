package main

import (
	"context"
	"log"

	"signal_engine/internal/modules/binance"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/health"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/runner"
	"signal_engine/pkg/logger"
	"signal_engine/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(zl)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		binance.Module(),
		runner.Module(),
		health.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			logger.SetServiceName(cfg.Service.Name)
			if cfg.Jaeger.Host == "" {
				return nil
			}
			tracing.SetServiceName(cfg.Service.Name)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)
	app.Run()
}
