// Package container wires a configuration into a ready set of services
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	domainservices "github.com/vsinha/forecast-recon/pkg/domain/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/config"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/excel"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/sqlite"
)

// Container holds the services shared by the CLI and the HTTP server
type Container struct {
	Config     *config.Config
	Logger     *slog.Logger
	Events     *events.InMemoryEventStore
	Repository *memory.DatasetRepository
	Cache      *services.QueryCache
	Datasets   *services.DatasetService
	Queries    *services.QueryService

	closers []func()
}

// New builds every service from cfg. No data is loaded; call Datasets.Reload.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	source, closer, err := NewSource(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.SupplyPolicy()
	if err != nil {
		return nil, err
	}
	normalizer := domainservices.NewNormalizer(domainservices.NormalizerConfig{
		SupplyPolicy:      policy,
		UnclassifiedLabel: cfg.Normalization.UnclassifiedLabel,
	})

	eventStore := events.NewInMemoryEventStore(logger)
	repo := memory.NewDatasetRepository(eventStore, logger)

	cache := services.NewQueryCache(cfg.Cache.MaxEntries)
	eventStore.Subscribe(cache, events.DatasetLoadedEvent)

	aggregator := services.NewAggregator(services.AggregatorConfig{
		ParallelThreshold: cfg.Aggregation.ParallelThreshold,
		Workers:           cfg.Aggregation.Workers,
	}, logger)

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Events:     eventStore,
		Repository: repo,
		Cache:      cache,
		Datasets:   services.NewDatasetService(source, normalizer, repo, eventStore, logger),
		Queries:    services.NewQueryService(repo, aggregator, cache, logger),
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	return c, nil
}

// Close releases database pools and waits for pending event handlers
func (c *Container) Close() {
	for _, closer := range c.closers {
		closer()
	}
	c.Events.Wait()
}

// NewSource builds the dataset source selected by cfg.Kind. The returned
// closer is nil for file based sources.
func NewSource(ctx context.Context, cfg config.SourceConfig) (repositories.DatasetSource, func(), error) {
	switch cfg.Kind {
	case config.SourceCSV, "":
		csvConfig := csv.Config{
			ForecastPath: cfg.ForecastPath,
			ActualPath:   cfg.ActualPath,
		}
		if cfg.ScenarioDir != "" {
			csvConfig = csv.ScenarioConfig(cfg.ScenarioDir)
		}
		csvConfig.Encoding = cfg.Encoding
		csvConfig.Delimiter = cfg.DelimiterRune()
		return csv.NewLoader(csvConfig), nil, nil

	case config.SourceXLSX:
		return excel.NewLoader(excel.Config{
			Path:          cfg.Path,
			ForecastSheet: cfg.ForecastTable,
			ActualSheet:   cfg.ActualTable,
		}), nil, nil

	case config.SourceSQLite:
		loader, err := sqlite.NewLoader(sqlite.Config{
			Path:          cfg.Path,
			ForecastTable: cfg.ForecastTable,
			ActualTable:   cfg.ActualTable,
		})
		if err != nil {
			return nil, nil, err
		}
		return loader, nil, nil

	case config.SourcePostgres:
		loader, err := postgres.NewLoader(ctx, postgres.Config{
			DSN:           cfg.DSN,
			ForecastTable: cfg.ForecastTable,
			ActualTable:   cfg.ActualTable,
		})
		if err != nil {
			return nil, nil, err
		}
		return loader, loader.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
