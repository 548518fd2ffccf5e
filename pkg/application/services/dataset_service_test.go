package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	domainservices "github.com/vsinha/forecast-recon/pkg/domain/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/memory"
)

type stubSource struct {
	raw *entities.RawDataset
	err error
}

func (s *stubSource) Load(ctx context.Context) (*entities.RawDataset, error) {
	return s.raw, s.err
}

func (s *stubSource) Describe() string {
	return "stub"
}

func supplyPtr(s string) *string { return &s }

func TestDatasetService_Reload(t *testing.T) {
	store := events.NewInMemoryEventStore(nil)
	repo := memory.NewDatasetRepository(store, nil)
	source := &stubSource{raw: &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{
			{Period: "2026-02", Brand: "A", Series: "T60", Supply: supplyPtr("X"), ItemCode: "C1", ItemName: "Chair", ForecastQty: "1000"},
			{Period: "2026-02", Brand: "A", Series: "107", Supply: supplyPtr("X"), ItemCode: "C2", ItemName: "Noise", ForecastQty: "5"},
		},
		Actuals: []entities.RawActualRow{{Period: "2026-02", ItemCode: "C1", ActualQty: "950"}},
	}}
	service := NewDatasetService(source, domainservices.NewNormalizer(domainservices.NormalizerConfig{}), repo, store, nil)

	snapshot, err := service.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "stub", snapshot.Source)
	assert.Len(t, snapshot.Dataset.Forecasts, 1)
	assert.Equal(t, 1, snapshot.Report.DroppedCount(apperrors.TableForecast))

	published := store.History(events.DatasetStream, 0)
	require.Len(t, published, 1)
	assert.Equal(t, events.DatasetLoadedEvent, published[0].Type)
}

func TestDatasetService_FailedReloadKeepsSnapshot(t *testing.T) {
	store := events.NewInMemoryEventStore(nil)
	repo := memory.NewDatasetRepository(store, nil)
	source := &stubSource{raw: &entities.RawDataset{}}
	service := NewDatasetService(source, domainservices.NewNormalizer(domainservices.NormalizerConfig{}), repo, store, nil)

	before, err := service.Reload(context.Background())
	require.NoError(t, err)

	source.err = apperrors.NewSourceUnavailableError(apperrors.TableActual, "stub", errors.New("gone"))
	_, err = service.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsSourceUnavailable(err))

	after, err := repo.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)

	published := store.History(events.DatasetStream, 1)
	require.Len(t, published, 1)
	assert.Equal(t, events.DatasetLoadFailedEvent, published[0].Type)
	failure, ok := events.PendingFailure(store)
	require.True(t, ok)
	assert.Contains(t, failure.Error, "gone")
}

func TestDatasetService_NilDatasetIsUnavailable(t *testing.T) {
	store := events.NewInMemoryEventStore(nil)
	repo := memory.NewDatasetRepository(store, nil)
	source := &stubSource{raw: &entities.RawDataset{
		Actuals: []entities.RawActualRow{{Period: "2026-02", ItemCode: "C1", ActualQty: "950"}},
	}}
	service := NewDatasetService(source, domainservices.NewNormalizer(domainservices.NormalizerConfig{}), repo, store, nil)

	before, err := service.Reload(context.Background())
	require.NoError(t, err)

	source.raw = nil
	snapshot, err := service.Reload(context.Background())
	assert.Nil(t, snapshot)
	if !apperrors.IsSourceUnavailable(err) {
		t.Errorf("expected source unavailable error, got %v", err)
	}

	after, err := repo.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.Dataset.Actuals, 1)

	latest, ok := store.Latest(events.DatasetStream)
	require.True(t, ok)
	assert.Equal(t, events.DatasetLoadFailedEvent, latest.Type)
	failure, ok := events.PendingFailure(store)
	require.True(t, ok)
	assert.Contains(t, failure.Error, "no data")
}
