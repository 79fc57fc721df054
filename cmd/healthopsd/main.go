// Command healthopsd runs the health monitor as a standalone service. It
// serves liveness, readiness and detailed health on HTTP next to a
// Prometheus /metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/healthops/cache"
	"github.com/jonwraymond/healthops/config"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/monitor"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/store"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./healthops.yaml"), "path to the YAML configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthopsd: %v\n", err)
		os.Exit(1)
	}

	logger, err := newZapLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthopsd: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if warn := cfg.MonitorWarnings(); warn != nil {
		logger.Warn("monitor configuration warnings", zap.Error(warn))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("healthopsd stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	logger := observe.NewZapLogger(zl).With(observe.F("service", cfg.Service))
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = defaultShutdownTimeout
	}

	telemetry := cfg.Telemetry
	if telemetry.ServiceName == "" {
		telemetry.ServiceName = cfg.Service
	}
	obs, err := observe.NewObserver(ctx, telemetry, observe.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zl.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	runner, err := observe.RunnerFromObserver(obs)
	if err != nil {
		return fmt.Errorf("telemetry runner: %w", err)
	}
	instruments, err := observe.NewInstruments(obs.Meter())
	if err != nil {
		return fmt.Errorf("telemetry instruments: %w", err)
	}

	deps := monitor.Dependencies{
		Logger:      logger,
		Runner:      runner,
		Instruments: instruments,
	}
	senders := notify.Multi{notify.NewLogSender(logger)}

	if cfg.Database.DSN != "" {
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			// The database probe reports the outage; monitoring still starts.
			zl.Error("database unavailable at startup", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		} else {
			defer db.Close()
			deps.Database = db
			zl.Info("database connected", zap.String("driver", cfg.Database.Driver))
		}
	}

	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis)
		defer rc.Close()
		deps.Cache = rc
		if cfg.Notify.Channel != "" {
			senders = append(senders, notify.NewPubSubSender(rc, cfg.Notify.Channel))
		}
		if err := rc.Ping(ctx); err != nil {
			zl.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	dcfg := cfg.DispatcherConfig()
	dcfg.Logger = logger
	dcfg.Instruments = instruments
	dispatcher := notify.NewDispatcher(senders, dcfg)
	deps.Notifier = dispatcher

	orch := monitor.Reinitialize(cfg.Monitor, deps)
	orch.Start(ctx)

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, orch.Registry())
	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.Exporter == "prometheus" {
		mux.Handle("/metrics", promhttp.Handler())
	}
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case serveErr = <-serverErrors:
		zl.Error("http server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http server shutdown", zap.Error(err))
	}
	orch.Stop()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		zl.Warn("notification dispatcher close", zap.Error(err))
	}

	zl.Info("healthopsd stopped")
	return serveErr
}

func newZapLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
