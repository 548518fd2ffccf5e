package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
)

// QueryService runs reconciliation queries against the current dataset snapshot
type QueryService struct {
	repo       repositories.DatasetRepository
	aggregator *Aggregator
	cache      *QueryCache
	logger     *slog.Logger
}

// NewQueryService creates a new query service. cache may be nil.
func NewQueryService(
	repo repositories.DatasetRepository,
	aggregator *Aggregator,
	cache *QueryCache,
	logger *slog.Logger,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	if aggregator == nil {
		aggregator = NewAggregator(DefaultAggregatorConfig(), logger)
	}
	return &QueryService{
		repo:       repo,
		aggregator: aggregator,
		cache:      cache,
		logger:     logger,
	}
}

// Execute validates q and runs it:
// filter -> join -> metrics -> {aggregate, rank} -> insight.
// A query matching nothing returns an empty result; a missing dataset is a
// SourceUnavailableError.
func (s *QueryService) Execute(ctx context.Context, q dto.Query) (*dto.QueryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	fingerprint := q.Fingerprint()
	if cached, ok := s.cache.Get(snapshot.Version, fingerprint); ok {
		s.logger.Debug("query cache hit", "dataset_version", snapshot.Version, "fingerprint", fingerprint)
		return cached, nil
	}

	start := time.Now()
	result, err := s.run(ctx, snapshot, q)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	s.cache.Put(snapshot.Version, fingerprint, result)

	s.logger.Info("query executed",
		"dataset_version", snapshot.Version,
		"records", result.MatchedRecords,
		"unmatched_forecasts", result.UnmatchedForecasts,
		"buckets", result.MatchedBuckets,
		"orphan_actuals", len(result.OrphanActuals),
		"duration", time.Since(start),
	)
	return result, nil
}

// Records runs q and returns only the ranked, limited records
func (s *QueryService) Records(ctx context.Context, q dto.Query) ([]entities.ReconciledRecord, error) {
	result, err := s.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Catalog lists the filter options of the current dataset. Series are
// restricted to the given brands when any are given.
func (s *QueryService) Catalog(ctx context.Context, brands []string) (*dto.Catalog, error) {
	snapshot, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	catalog := BuildCatalog(snapshot.Dataset, brands)
	catalog.DatasetVersion = snapshot.Version
	return catalog, nil
}

func (s *QueryService) snapshot() (*entities.Snapshot, error) {
	snapshot, err := s.repo.Snapshot()
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDataLoaded) {
			return nil, apperrors.NewSourceUnavailableError("dataset", "repository", err)
		}
		return nil, fmt.Errorf("failed to read dataset snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *QueryService) run(ctx context.Context, snapshot *entities.Snapshot, q dto.Query) (*dto.QueryResult, error) {
	insight, err := NewInsightGenerator(InsightConfigFromQuery(q))
	if err != nil {
		return nil, err
	}

	dataset := snapshot.Dataset
	forecasts := FilterForecasts(dataset.Forecasts, q.Filter)
	actuals := FilterActuals(dataset.Actuals, q.Filter.Periods)

	joined := Join(forecasts, actuals)
	records := Search(ReconcileAll(joined.Rows), q.Search)
	SortRows(records, q.Sort)

	buckets, err := s.aggregator.Aggregate(ctx, records, q.GroupBy)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate records: %w", err)
	}
	SortRows(buckets, q.Sort)

	unmatched := 0
	for _, r := range records {
		if !r.Matched {
			unmatched++
		}
	}

	// Orphans are checked against every forecast in the queried periods, so
	// an actual is not reported just because brand or series filters hid its forecast.
	periodForecasts := FilterForecastsByPeriod(dataset.Forecasts, q.Filter.Periods)

	return &dto.QueryResult{
		DatasetVersion:     snapshot.Version,
		DataLoaded:         true,
		Query:              q.Clone(),
		Records:            Truncate(records, q.Limit),
		MatchedRecords:     len(records),
		UnmatchedForecasts: unmatched,
		Buckets:            Truncate(buckets, q.Limit),
		MatchedBuckets:     len(buckets),
		Insight:            SummarizeRows(insight, records),
		BucketInsight:      SummarizeRows(insight, buckets),
		OrphanActuals:      FindOrphanActuals(periodForecasts, actuals),
		Normalization:      snapshot.Report.Clone(),
	}, nil
}
