package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.aimuz.me/clearsight/internal/app"
	"go.aimuz.me/clearsight/shell"
)

// startService loads the config and builds the application. The returned
// stop func shuts it down along with the metrics server.
func startService(ctx context.Context, opts app.Options) (*app.Service, func(), error) {
	global := getGlobalOptions(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	stopMetrics := func() {}
	if global.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Registry = registry
		stopMetrics = serveMetrics(global.MetricsAddr, registry)
	}
	opts.Hotkeys = opts.Hotkeys || global.Hotkeys

	svc, err := app.New(ctx, cfg, Version, opts)
	if err != nil {
		stopMetrics()
		return nil, nil, err
	}
	return svc, func() {
		svc.Shutdown()
		stopMetrics()
	}, nil
}

func serveMetrics(addr string, registry *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serve metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve metrics", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("stop metrics server", "error", err)
		}
	}
}

// noDevices is used by commands that only talk to the gateway.
func noDevices() *shell.Devices { return &shell.Devices{} }
