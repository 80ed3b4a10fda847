package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"signal_engine/internal/logstore"
	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/health/service"
	"signal_engine/internal/runner"
)

// NewMux wires liveness endpoints plus the read-only presentation surface:
// active strategies, their trade ledgers and the deliver-once log feed.
func NewMux(state *service.State, mgr *runner.Manager, logs *logstore.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":       state.Ready(),
			"wsConnected": state.WSConnected(),
			"uptimeSec":   int64(state.Uptime().Seconds()),
			"lastTickUnix": func() int64 {
				t := state.LastTick()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/strategies", func(w http.ResponseWriter, r *http.Request) {
		type row struct {
			ID        string `json:"id"`
			Strategy  string `json:"strategy"`
			Symbol    string `json:"symbol"`
			Timeframe string `json:"timeframe"`
			Ongoing   bool   `json:"ongoing_position"`
			Candles   int    `json:"candles"`
		}
		var rows []row
		for _, inst := range mgr.Instances() {
			rows = append(rows, row{
				ID:        inst.ID,
				Strategy:  string(inst.Engine.Name()),
				Symbol:    inst.Contract.Symbol,
				Timeframe: inst.Timeframe,
				Ongoing:   inst.Ongoing(),
				Candles:   inst.Series.Len(),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	})

	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string][]models.Trade)
		for _, inst := range mgr.Instances() {
			out[inst.ID] = inst.Ledger.Snapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	// the UI poll loop: each entry is delivered exactly once
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(logs.Consume())
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Service.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
