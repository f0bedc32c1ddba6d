package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/careerpulse/internal/adapters/http/api"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /healthz and /metrics and run governance retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startQueueMetricsUpdater(ctx, e, metrics.RefreshInterval())
	go startRetention(ctx, e, time.Duration(e.cfg.RetentionIntervalMinutes)*time.Minute)

	mux := http.NewServeMux()
	var opts []api.Option
	if e.sqlite != nil {
		opts = append(opts, api.WithPinger(e.sqlite))
	}
	api.NewServer(e.svc, opts...).Register(ctx, mux)

	srv := &http.Server{
		Addr:              e.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info(ctx, "starting HTTP server", logger.String("addr", e.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	e.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.log.Error(ctx, "server shutdown failed", logger.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	e.log.Info(ctx, "server stopped")
	return nil
}

// startRetention prunes governance entries every interval. A non-positive
// interval disables it.
func startRetention(ctx context.Context, e *env, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := e.svc.RunRetention(ctx, e.cfg.GovernanceRetentionDays)
			if err != nil {
				e.log.Warn(ctx, "retention failed", logger.Error(err))
				continue
			}
			e.log.Debug(ctx, "retention done", logger.Int("deleted", deleted))
		}
	}
}

func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startQueueMetricsUpdater refreshes the offload queue gauge between requests.
func startQueueMetricsUpdater(ctx context.Context, e *env, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.svc.QueueLen(ctx)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
