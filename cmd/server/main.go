package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/api"
	"github.com/slotserve/slotserve/internal/clicklog"
	"github.com/slotserve/slotserve/internal/config"
	"github.com/slotserve/slotserve/internal/middleware"
	"github.com/slotserve/slotserve/internal/observability"
	"github.com/slotserve/slotserve/internal/reporting"
	"github.com/slotserve/slotserve/internal/rotation"
	"github.com/slotserve/slotserve/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	adStore, err := store.InitRedis(ctx, cfg.RedisAddr, cfg.KeyNamespace)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer adStore.Close()

	clicks, err := clicklog.New(cfg.LogDir, logger)
	if err != nil {
		return fmt.Errorf("init click log: %w", err)
	}

	metrics := observability.NewPrometheusRegistry()
	rotator := rotation.New(adStore, logger, metrics)
	reports := reporting.New(adStore, clicks, logger)

	srvDeps := api.NewServer(logger, adStore, rotator, clicks, reports, metrics, cfg)

	var handler http.Handler = srvDeps.Router()
	handler = middleware.WithRequestLogger(logger)(handler)
	handler = otelhttp.NewHandler(handler, "slotserve")

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Ad server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
