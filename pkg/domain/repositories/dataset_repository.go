package repositories

import (
	"context"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// DatasetSource loads both raw tables from some backing store (files, a database, ...).
// Encoding and locale handling belong to the source.
type DatasetSource interface {
	Load(ctx context.Context) (*entities.RawDataset, error)
	Describe() string
}

// DatasetRepository provides access to the current normalized dataset
type DatasetRepository interface {
	// Snapshot returns the current dataset or errors.ErrNoDataLoaded
	Snapshot() (*entities.Snapshot, error)
	// Replace installs a new dataset and returns its version
	Replace(source string, dataset *entities.Dataset, report *entities.NormalizationReport) (string, error)
}
