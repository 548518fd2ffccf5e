package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	testhelpers "github.com/vsinha/forecast-recon/pkg/infrastructure/testing"
)

func furnitureRecords() []entities.ReconciledRecord {
	dataset := testhelpers.BuildFurnitureDataset()
	return ReconcileAll(Join(dataset.Forecasts, dataset.Actuals).Rows)
}

func newTestAggregator() *Aggregator {
	return NewAggregator(AggregatorConfig{}, nil)
}

func TestAggregate_SumInvariant(t *testing.T) {
	records := furnitureRecords()
	groupings := [][]entities.Dimension{
		{entities.DimensionBrand},
		{entities.DimensionBrand, entities.DimensionSeries},
		{entities.DimensionSupply},
		{entities.DimensionPeriod, entities.DimensionBrand},
		{entities.DimensionSeries, entities.DimensionSupply, entities.DimensionPeriod, entities.DimensionBrand},
	}

	for _, groupBy := range groupings {
		t.Run(fmt.Sprint(groupBy), func(t *testing.T) {
			buckets, err := newTestAggregator().Aggregate(context.Background(), records, groupBy)
			require.NoError(t, err)

			total := 0
			for _, b := range buckets {
				var forecast, actual entities.Quantity
				count := 0
				for _, r := range records {
					key, ok := bucketKeyFor(r.ForecastRecord, groupBy)
					if ok && key == b.Key {
						forecast += r.ForecastQty
						actual += r.ActualQty
						count++
					}
				}
				assert.Equal(t, forecast, b.ForecastQty, b.Label())
				assert.Equal(t, actual, b.ActualQty, b.Label())
				assert.Equal(t, count, b.RecordCount, b.Label())
				assert.Equal(t, actual-forecast, b.Difference, b.Label())
				assert.Equal(t, AchievementRate(actual, forecast), b.AchievementRate, b.Label())
				total += b.RecordCount
			}
			assert.Equal(t, len(records), total)
		})
	}
}

func TestAggregate_ByBrand(t *testing.T) {
	buckets, err := newTestAggregator().Aggregate(context.Background(), furnitureRecords(),
		[]entities.Dimension{entities.DimensionBrand})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, "A", buckets[0].Label())
	assert.Equal(t, entities.Quantity(1900), buckets[0].ForecastQty)
	assert.Equal(t, entities.Quantity(2400), buckets[0].ActualQty)
	assert.Equal(t, 126.3, buckets[0].AchievementRate)

	assert.Equal(t, "B", buckets[1].Label())
	assert.Equal(t, entities.Quantity(500), buckets[1].ForecastQty)
	assert.Equal(t, entities.Quantity(250), buckets[1].ActualQty)
	assert.Equal(t, entities.Quantity(-250), buckets[1].Difference)
	assert.Equal(t, entities.Quantity(250), buckets[1].AbsoluteError)
	assert.Equal(t, 50.0, buckets[1].AchievementRate)
}

func TestAggregate_RateFromSumsNotMeanOfRates(t *testing.T) {
	records := ReconcileAll([]JoinedRow{
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "X", "C1", "Chair", 1000), ActualQty: 900, Matched: true},
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "X", "C2", "Stool", 10), ActualQty: 20, Matched: true},
	})
	require.Equal(t, 90.0, records[0].AchievementRate)
	require.Equal(t, 200.0, records[1].AchievementRate)

	buckets, err := newTestAggregator().Aggregate(context.Background(), records,
		[]entities.Dimension{entities.DimensionSeries})
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	meanOfRates := (records[0].AchievementRate + records[1].AchievementRate) / 2
	assert.Equal(t, 91.1, buckets[0].AchievementRate)
	assert.NotEqual(t, meanOfRates, buckets[0].AchievementRate)
}

func TestAggregate_ZeroForecastBucket(t *testing.T) {
	buckets, err := newTestAggregator().Aggregate(context.Background(), furnitureRecords(),
		[]entities.Dimension{entities.DimensionSeries})
	require.NoError(t, err)

	var sofa entities.AggregateBucket
	for _, b := range buckets {
		if b.Key.Series == "S20" {
			sofa = b
		}
	}
	assert.Equal(t, entities.Quantity(500), sofa.ActualQty)
	assert.Equal(t, 0.0, sofa.AchievementRate)
}

func TestAggregate_FirstAppearanceOrder(t *testing.T) {
	buckets, err := newTestAggregator().Aggregate(context.Background(), furnitureRecords(),
		[]entities.Dimension{entities.DimensionSeries})
	require.NoError(t, err)

	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label()
	}
	assert.Equal(t, []string{"T60", "S20", "K10"}, labels)
}

func TestAggregate_SkipsMissingSupplyOnlyWhenGroupedBySupply(t *testing.T) {
	records := ReconcileAll([]JoinedRow{
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "X", "C1", "Chair", 100)},
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "", "C2", "Table", 50)},
	})

	bySupply, err := newTestAggregator().Aggregate(context.Background(), records,
		[]entities.Dimension{entities.DimensionSupply})
	require.NoError(t, err)
	require.Len(t, bySupply, 1)
	assert.Equal(t, entities.Quantity(100), bySupply[0].ForecastQty)

	byBrand, err := newTestAggregator().Aggregate(context.Background(), records,
		[]entities.Dimension{entities.DimensionBrand})
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, entities.Quantity(150), byBrand[0].ForecastQty)
}

func TestAggregate_EmptyInput(t *testing.T) {
	buckets, err := newTestAggregator().Aggregate(context.Background(), nil,
		[]entities.Dimension{entities.DimensionBrand})
	require.NoError(t, err)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestAggregate_InvalidGroupBy(t *testing.T) {
	for _, groupBy := range [][]entities.Dimension{
		nil,
		{"color"},
		{entities.DimensionBrand, entities.DimensionBrand},
	} {
		_, err := newTestAggregator().Aggregate(context.Background(), furnitureRecords(), groupBy)
		assert.True(t, apperrors.IsInvalidConfiguration(err), "%v: %v", groupBy, err)
	}
}

func TestAggregate_ParallelMatchesSerial(t *testing.T) {
	brands := []string{"A", "B", "C", "D"}
	series := []string{"T60", "S20", "K10"}
	rows := make([]JoinedRow, 0, 2000)
	for i := 0; i < 2000; i++ {
		f := testhelpers.Forecast(
			fmt.Sprintf("2026-%02d", i%12+1),
			brands[i%len(brands)],
			series[i%len(series)],
			"X",
			fmt.Sprintf("C%d", i),
			"Item",
			int64(i%97),
		)
		rows = append(rows, JoinedRow{Forecast: f, ActualQty: entities.Quantity(i % 89), Matched: true})
	}
	records := ReconcileAll(rows)
	groupBy := []entities.Dimension{entities.DimensionPeriod, entities.DimensionBrand, entities.DimensionSeries}

	serial, err := NewAggregator(AggregatorConfig{ParallelThreshold: 0}, nil).
		Aggregate(context.Background(), records, groupBy)
	require.NoError(t, err)

	parallel, err := NewAggregator(AggregatorConfig{ParallelThreshold: 1, Workers: 4}, nil).
		Aggregate(context.Background(), records, groupBy)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestAggregate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(AggregatorConfig{ParallelThreshold: 1, Workers: 2}, nil).
		Aggregate(ctx, furnitureRecords(), []entities.Dimension{entities.DimensionSeries})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_QuantityOverflow(t *testing.T) {
	records := ReconcileAll([]JoinedRow{
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "X", "C1", "Chair", 5e18)},
		{Forecast: testhelpers.Forecast("2026-02", "A", "T60", "X", "C2", "Table", 5e18)},
		{Forecast: testhelpers.Forecast("2026-02", "A", "S20", "X", "C3", "Sofa", 1)},
	})

	buckets, err := newTestAggregator().Aggregate(context.Background(), records,
		[]entities.Dimension{entities.DimensionBrand})
	require.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Nil(t, buckets)

	_, err = NewAggregator(AggregatorConfig{ParallelThreshold: 1, Workers: 2}, nil).
		Aggregate(context.Background(), records, []entities.Dimension{entities.DimensionSeries})
	assert.ErrorIs(t, err, ErrQuantityOverflow)
}
