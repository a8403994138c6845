package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/csvstore"
	kafkaadapter "github.com/couchcryptid/mountain-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/mountainforecast"
	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/sqlitestore"
	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/observability"
	"github.com/couchcryptid/mountain-forecast-etl/internal/pipeline"
)

// app holds the wired components and the cleanups that release them.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    pipeline.DatasetStore
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// openStore returns the dataset backend selected by DATASET_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (pipeline.DatasetStore, func() error, error) {
	switch cfg.DatasetBackend {
	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendCSV:
		return csvstore.New(cfg.DataDir), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown dataset backend %q", cfg.DatasetBackend)
	}
}

// newApp wires the source, store, optional publisher and pipeline.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open dataset store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	client, err := mountainforecast.NewClient(cfg.BaseURL, cfg.UserAgent, cfg.FetchTimeout, cfg.RequestDelay, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var elevations mountainforecast.ElevationLister
	if cfg.AllElevations {
		elevations = mountainforecast.NewCachedElevations(client, cfg.ElevationCacheSize, metrics.ElevationCache)
		logger.Info("elevation discovery enabled", "cache_size", cfg.ElevationCacheSize)
	}
	source := mountainforecast.NewSource(client, mountainforecast.DirectoryFile{Path: cfg.URLsFile},
		cfg.PeakPaths, elevations, cfg.ForecastDays, logger)

	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		publisher = w
		a.closers = append(a.closers, w.Close)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	a.pipeline = pipeline.New(source, store, publisher, logger, metrics, pipeline.Options{
		ResolveMonths: cfg.ResolveMonthRollover,
		FailFast:      cfg.FailFast,
	})
	return a, nil
}
