package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"energy-ml/internal/api"
	"energy-ml/internal/config"
	"energy-ml/internal/data"
	"energy-ml/internal/events"
	"energy-ml/internal/inference"
	"energy-ml/internal/logging"
	"energy-ml/internal/training"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	fraudMgr := training.NewFraudManager(cfg.Artifacts.Dir, training.FraudSource(cfg.Fraud), cfg.Fraud.Forest, logger)
	energyMgr := training.NewEnergyManager(cfg.Artifacts.Dir, training.EnergySource(cfg.Energy), logger)

	cities, err := data.LoadCityTable(cfg.Energy.CitiesPath, data.DefaultLocation)
	if err != nil {
		return err
	}
	logger.Info("city table loaded", slog.String("path", cfg.Energy.CitiesPath), slog.Int("cities", cities.Len()))

	cache := data.NewConditionsCache(cfg.Weather.CacheTTL.Std())
	defer cache.Close()
	if cfg.Weather.APIKey == "" {
		logger.Warn("WEATHER_API_KEY is not set; energy estimates will fail")
	}
	weather := data.NewWeatherClient(data.WeatherOptions{
		APIKey:     cfg.Weather.APIKey,
		BaseURL:    cfg.Weather.BaseURL,
		Timeout:    cfg.Weather.Timeout.Std(),
		MaxRetries: cfg.Weather.MaxRetries,
		RetryWait:  cfg.Weather.InitialBackoff.Std(),
		Cache:      cache,
		Logger:     logger,
	})

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		logger.Info("publishing fraud assessments",
			slog.Any("brokers", cfg.Events.Brokers),
			slog.String("topic", cfg.Events.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", slog.Any("error", err))
		}
	}()

	if cfg.Server.WarmUp {
		warmUp(ctx, logger, fraudMgr, energyMgr)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewRouter(api.Deps{
		Fraud:        inference.NewFraudEngine(fraudMgr, publisher, logger),
		Energy:       inference.NewEnergyEngine(energyMgr, weather, cities, logger),
		FraudModels:  fraudMgr,
		EnergyModels: energyMgr,
		CORS:         cfg.CORS,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// warmUp readies both models concurrently. Failures are logged only: the
// managers retry on the first request that needs them.
func warmUp(ctx context.Context, logger *slog.Logger, fraud *training.FraudManager, energy *training.EnergyManager) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := fraud.Ready(gctx)
		return err
	})
	g.Go(func() error {
		_, err := energy.Ready(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("model warm-up failed", slog.Any("error", err))
		return
	}
	logger.Info("models ready")
}
