package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/api"
	"github.com/signalsfoundry/sattrack/internal/config"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/internal/observability"
	"github.com/signalsfoundry/sattrack/internal/storage"
	"github.com/signalsfoundry/sattrack/registry"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			lis, err := net.Listen("tcp", a.cfg.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddr, err)
			}
			return run(cmd.Context(), a.cfg, a.log, lis)
		},
	}
	cmd.Flags().String("listen", "", "HTTP API listen address")
	cmd.Flags().String("metrics-listen", "", "Prometheus /metrics listen address (empty disables)")
	_ = a.v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen"))
	_ = a.v.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-listen"))
	return cmd
}

// run wires storage, registries, metrics and tracing, then serves the API on
// lis until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingSettings(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := observability.NewHTTPCollector(promReg)
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	regMetrics, err := observability.NewRegistryCollector(promReg)
	if err != nil {
		return fmt.Errorf("init registry metrics: %w", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()

	ch := events.NewChannel(log)
	defer regMetrics.CountEvents(ch)()

	observers := registry.NewObserverRegistry(store, ch,
		registry.WithLogger(log),
		registry.WithMetrics(regMetrics),
	)
	tles := registry.NewTleRegistry(store,
		registry.WithEvents(ch),
		registry.WithLogger(log),
		registry.WithMetrics(regMetrics),
	)
	log.Info(ctx, "registries loaded",
		logging.String("backend", cfg.Storage.Backend),
		logging.Int("observers", observers.Len()),
		logging.Int("tles", tles.Len()),
	)

	handler := api.NewServer(observers, tles, ch,
		api.WithLogger(log),
		api.WithHTTPMetrics(httpMetrics),
		api.WithStreamRecorder(regMetrics),
	).Handler()

	// Request contexts derive from streamCtx so that open event streams end
	// when shutdown begins; Shutdown alone would wait for them.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, httpMetrics, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving HTTP API", logging.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down")
	cancelStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.HTTPCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
