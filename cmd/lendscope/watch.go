package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/refresh"
)

const recomputeEvery = time.Second

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh periodically, serve metrics and append snapshots",
		RunE:  runWatch,
	}
	cmd.Flags().Duration("interval", 15*time.Second, "full refresh interval")
	cmd.Flags().String("metrics-addr", ":9464", "listen address for /metrics and /position, empty disables")
	cmd.Flags().String("out", "./data/positions.jsonl", "output JSONL path, empty disables")
	return cmd
}

type snapshotSource interface {
	Snapshot() model.View
}

func newRouter(views snapshotSource, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/position", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = printJSON(w, views.Snapshot())
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd, appNeeds{chain: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var out *snapshotLog
	if a.cfg.Out != "" {
		out, err = openSnapshotLog(a.cfg.Out)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	if a.cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           newRouter(a.coordinator, a.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("metrics server listening", zap.String("addr", a.cfg.MetricsAddr))
	}

	interval := a.cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	refreshTicker := time.NewTicker(interval)
	defer refreshTicker.Stop()
	recomputeTicker := time.NewTicker(recomputeEvery)
	defer recomputeTicker.Stop()

	tick := func() {
		outcome, err := a.coordinator.Refresh(ctx)
		if err != nil || outcome != refresh.OutcomeApplied || out == nil {
			return
		}
		if err := out.Append(time.Now(), a.coordinator.Snapshot()); err != nil {
			a.logger.Warn("write snapshot failed", zap.Error(err))
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case <-refreshTicker.C:
			tick()
		case <-recomputeTicker.C:
			view := a.coordinator.Recompute()
			if view.Position.HealthFactor.Liquidatable() {
				a.logger.Warn("position liquidatable", zap.String("health_factor", view.Position.HealthFactor.String()))
			}
		}
	}
}
