package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
)

// DatasetRepository keeps the current normalized dataset in memory.
// Every Replace installs a new immutable snapshot with a fresh version and
// publishes a dataset.loaded event.
type DatasetRepository struct {
	mu         sync.RWMutex
	current    *entities.Snapshot
	eventStore events.EventStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewDatasetRepository creates an empty repository. eventStore may be nil.
func NewDatasetRepository(eventStore events.EventStore, logger *slog.Logger) *DatasetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetRepository{
		eventStore: eventStore,
		logger:     logger,
		now:        time.Now,
	}
}

// Verify interface compliance
var _ repositories.DatasetRepository = (*DatasetRepository)(nil)

// Snapshot returns the current snapshot or ErrNoDataLoaded
func (r *DatasetRepository) Snapshot() (*entities.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.current == nil {
		return nil, apperrors.ErrNoDataLoaded
	}
	return r.current, nil
}

// Replace installs a new snapshot and returns its version
func (r *DatasetRepository) Replace(
	source string,
	dataset *entities.Dataset,
	report *entities.NormalizationReport,
) (string, error) {
	if dataset == nil {
		dataset = &entities.Dataset{}
	}
	if report == nil {
		report = &entities.NormalizationReport{}
	}

	snapshot := &entities.Snapshot{
		Version:  uuid.NewString(),
		Source:   source,
		LoadedAt: r.now(),
		Dataset:  dataset,
		Report:   report,
	}

	r.mu.Lock()
	previous := r.current
	r.current = snapshot
	r.mu.Unlock()

	loaded := events.DatasetLoaded{
		Version:      snapshot.Version,
		Source:       source,
		ForecastRows: len(dataset.Forecasts),
		ActualRows:   len(dataset.Actuals),
		DroppedRows:  len(report.Dropped),
		LoadedAt:     snapshot.LoadedAt,
	}
	if previous != nil {
		loaded.PreviousVersion = previous.Version
	}
	if r.eventStore != nil {
		if _, err := r.eventStore.Publish(events.NewDatasetLoaded(loaded)); err != nil {
			r.logger.Warn("failed to publish dataset event", "version", snapshot.Version, "error", err)
		}
	}

	return snapshot.Version, nil
}
