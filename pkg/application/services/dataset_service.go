package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	domainservices "github.com/vsinha/forecast-recon/pkg/domain/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
)

// DatasetService loads raw tables from a source, normalizes them and installs
// the result as the current snapshot
type DatasetService struct {
	source     repositories.DatasetSource
	normalizer *domainservices.Normalizer
	repo       repositories.DatasetRepository
	eventStore events.EventStore
	logger     *slog.Logger
}

// NewDatasetService creates a new dataset service. eventStore may be nil.
func NewDatasetService(
	source repositories.DatasetSource,
	normalizer *domainservices.Normalizer,
	repo repositories.DatasetRepository,
	eventStore events.EventStore,
	logger *slog.Logger,
) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		source:     source,
		normalizer: normalizer,
		repo:       repo,
		eventStore: eventStore,
		logger:     logger,
	}
}

// Reload reads the source again. On failure the previous snapshot stays current.
func (s *DatasetService) Reload(ctx context.Context) (*entities.Snapshot, error) {
	description := s.source.Describe()

	raw, err := s.source.Load(ctx)
	if err == nil && raw == nil {
		err = apperrors.NewSourceUnavailableError("dataset", description, errors.New("source returned no data"))
	}
	if err != nil {
		s.logger.Error("dataset load failed", "source", description, "error", err)
		s.publishFailure(description, err)
		return nil, fmt.Errorf("failed to load dataset from %s: %w", description, err)
	}

	dataset, report := s.normalizer.Normalize(raw)
	for _, rc := range report.CountsByReason() {
		s.logger.Warn("rows dropped",
			"table", rc.Table,
			"reason", rc.Reason,
			"count", rc.Count,
		)
	}

	source := raw.Source
	if source == "" {
		source = description
	}
	version, err := s.repo.Replace(source, dataset, report)
	if err != nil {
		return nil, fmt.Errorf("failed to store dataset: %w", err)
	}

	s.logger.Info("dataset loaded",
		"version", version,
		"source", source,
		"forecast_rows", report.ForecastKept,
		"actual_rows", report.ActualKept,
		"dropped_rows", len(report.Dropped),
	)
	return s.repo.Snapshot()
}

func (s *DatasetService) publishFailure(source string, cause error) {
	if s.eventStore == nil {
		return
	}
	event := events.NewDatasetLoadFailed(events.DatasetLoadFailed{Source: source, Error: cause.Error()})
	if _, err := s.eventStore.Publish(event); err != nil {
		s.logger.Warn("failed to publish dataset event", "event", event.Type, "error", err)
	}
}
