// Package recon is the embeddable entry point to the reconciliation engine.
package recon

import (
	"context"
	"log/slog"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	domainservices "github.com/vsinha/forecast-recon/pkg/domain/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/memory"
)

// EngineConfig holds configuration for an embedded engine.
// MaxCacheEntries limits the query cache (0 = default, < 0 = disabled).
type EngineConfig struct {
	SupplyPolicy      entities.SupplyPolicy
	UnclassifiedLabel string
	MaxCacheEntries   int
	Aggregation       services.AggregatorConfig
	Logger            *slog.Logger
}

// DefaultEngineConfig drops forecast rows without a supply and caches results
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SupplyPolicy:      entities.DropMissing,
		UnclassifiedLabel: "unclassified",
		Aggregation:       services.DefaultAggregatorConfig(),
	}
}

// Engine loads a dataset from a source and answers queries against it
type Engine struct {
	datasets *services.DatasetService
	queries  *services.QueryService
	cache    *services.QueryCache
}

// NewEngine creates an engine over source with the default configuration
func NewEngine(source repositories.DatasetSource) *Engine {
	return NewEngineWithConfig(source, DefaultEngineConfig())
}

// NewEngineWithConfig creates an engine over source
func NewEngineWithConfig(source repositories.DatasetSource, config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.UnclassifiedLabel == "" {
		config.UnclassifiedLabel = "unclassified"
	}

	repo := memory.NewDatasetRepository(nil, logger)
	normalizer := domainservices.NewNormalizer(domainservices.NormalizerConfig{
		SupplyPolicy:      config.SupplyPolicy,
		UnclassifiedLabel: config.UnclassifiedLabel,
	})
	cache := services.NewQueryCache(config.MaxCacheEntries)
	aggregator := services.NewAggregator(config.Aggregation, logger)

	return &Engine{
		datasets: services.NewDatasetService(source, normalizer, repo, nil, logger),
		queries:  services.NewQueryService(repo, aggregator, cache, logger),
		cache:    cache,
	}
}

// Load reads the source and installs the result as the current dataset.
// A failed load keeps the previous dataset.
func (e *Engine) Load(ctx context.Context) (*entities.Snapshot, error) {
	snapshot, err := e.datasets.Reload(ctx)
	if err != nil {
		return nil, err
	}
	e.cache.Invalidate()
	return snapshot, nil
}

// Query runs q against the current dataset
func (e *Engine) Query(ctx context.Context, q dto.Query) (*dto.QueryResult, error) {
	return e.queries.Execute(ctx, q)
}

// Catalog lists the filter options of the current dataset
func (e *Engine) Catalog(ctx context.Context, brands ...string) (*dto.Catalog, error) {
	return e.queries.Catalog(ctx, brands)
}

// StaticSource serves rows held in memory
type StaticSource struct {
	Name      string
	Forecasts []entities.RawForecastRow
	Actuals   []entities.RawActualRow
}

// Load returns a copy of the rows
func (s *StaticSource) Load(ctx context.Context) (*entities.RawDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &entities.RawDataset{
		Source:    s.Describe(),
		Forecasts: append([]entities.RawForecastRow(nil), s.Forecasts...),
		Actuals:   append([]entities.RawActualRow(nil), s.Actuals...),
	}, nil
}

// Describe names the source
func (s *StaticSource) Describe() string {
	if s.Name == "" {
		return "static"
	}
	return s.Name
}

// AddForecast appends a raw forecast row. An empty supply is stored as missing.
func (s *StaticSource) AddForecast(period, brand, series, supply, code, name, qty string) {
	row := entities.RawForecastRow{
		Row:         len(s.Forecasts) + 2,
		Period:      period,
		Brand:       brand,
		Series:      series,
		ItemCode:    code,
		ItemName:    name,
		ForecastQty: qty,
	}
	if supply != "" {
		row.Supply = &supply
	}
	s.Forecasts = append(s.Forecasts, row)
}

// AddActual appends a raw actual row
func (s *StaticSource) AddActual(period, code, qty string) {
	s.Actuals = append(s.Actuals, entities.RawActualRow{
		Row:       len(s.Actuals) + 2,
		Period:    period,
		ItemCode:  code,
		ActualQty: qty,
	})
}

var _ repositories.DatasetSource = (*StaticSource)(nil)
