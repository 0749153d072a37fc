// Package main is the entry point for the soilcast API server.
//
// It loads configuration, connects the sensor store (direct Postgres or the
// Supabase REST API), loads the per-parameter model artifacts, fits the
// scalers from a reference sample, builds the HTTP server with the core
// chassis (middleware, routing, health checks), and starts listening.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"

	"soilcast/internal/api/handlers"
	"soilcast/internal/config"
	"soilcast/internal/core"
	"soilcast/internal/db"
	"soilcast/internal/external"
	"soilcast/internal/forecasts"
	"soilcast/internal/metrics"
	"soilcast/internal/model"
	"soilcast/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("soilcast API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"sensor_source", cfg.Sensor.Source,
	)

	ctx := context.Background()
	clock := types.RealClock{}

	// Build the server chassis first so shutdown cleanups can be registered
	// as dependencies come up.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Sensor source selection.
	var source types.SensorSource
	switch cfg.Sensor.Source {
	case "supabase":
		source = external.NewSupabaseClient(
			&http.Client{Timeout: 30 * time.Second},
			external.SupabaseClientConfig{
				BaseURL: cfg.Sensor.SupabaseURL,
				APIKey:  cfg.Sensor.SupabaseKey,
			},
		)
	default:
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting database: %w", err)
		}
		srv.OnShutdown(func() error {
			pool.Close()
			return nil
		})
		srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
			ProbeName: "database",
			CheckFunc: pool.Ping,
		})
		source = db.NewReadingsRepo(pool)
	}

	// Telemetry backend selection.
	collector, err := newCollector(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing metrics backend: %w", err)
	}
	srv.Metrics = collector

	// Model registry: per-parameter artifacts load independently; a partial
	// load is an acceptable startup state.
	registry := model.NewRegistry(cfg.Models.Dir, logger, clock)
	loaded := registry.LoadAll()
	collector.RecordModelsLoaded(ctx, loaded)
	if loaded == 0 {
		logger.Warn("no model artifacts loaded; forecast requests will be rejected",
			"models_dir", cfg.Models.Dir,
		)
	}
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "models",
		CheckFunc: func(ctx context.Context) error {
			if !registry.IsReady() {
				return errors.New("no model artifacts loaded")
			}
			return nil
		},
	})

	// Forecast orchestration.
	scalers := forecasts.NewScalerStore(logger)
	svc := forecasts.NewService(
		source, scalers, registry, logger, clock,
		cfg.Sensor.FetchLimit, cfg.Sensor.ReferenceLimit,
	)

	// Best-effort initial scaler fit; lazy fitting covers a late store.
	fitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if fitted, err := svc.RefreshScalers(fitCtx); err != nil {
		logger.Warn("initial scaler fit failed; scalers will fit lazily", "error", err)
	} else {
		logger.Info("scalers fitted from reference sample", "fitted", fitted)
	}
	cancel()

	// Wire the forecast handler.
	forecastHandler := handlers.NewForecastHandler(
		svc,
		registry,
		srv.Validator,
		collector,
		logger,
		cfg.Sensor.HistoricalDefaultLimit,
	)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Route("/forecasts", forecastHandler.RegisterRoutes)
	})

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newCollector builds the configured telemetry backend.
func newCollector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metrics.Collector, error) {
	switch cfg.Metrics.Backend {
	case "cloudwatch":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Metrics.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client := cloudwatch.NewFromConfig(awsCfg)
		return metrics.NewCloudWatchCollector(client, cfg.Metrics.Namespace, logger), nil
	default:
		return metrics.NoopCollector{}, nil
	}
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
