package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// AggregatorConfig holds configuration for partition reduction
type AggregatorConfig struct {
	// ParallelThreshold is the record count from which partitions are reduced
	// concurrently (0 = always serial)
	ParallelThreshold int
	// Workers bounds the concurrent reducers (0 = GOMAXPROCS)
	Workers int
}

// DefaultAggregatorConfig returns the configuration used when none is given
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		ParallelThreshold: 50000,
		Workers:           runtime.GOMAXPROCS(0),
	}
}

// Aggregator groups reconciled records into buckets
type Aggregator struct {
	config AggregatorConfig
	logger *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(config AggregatorConfig, logger *slog.Logger) *Aggregator {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{config: config, logger: logger}
}

type partition struct {
	key     entities.BucketKey
	indices []int
}

// Aggregate partitions records by groupBy and sums forecast and actual per
// partition. Difference, absolute error and rate are derived from the sums.
// Buckets come out in first-appearance order of their key.
// When supply is grouped, records without a supply are left out.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	records []entities.ReconciledRecord,
	groupBy []entities.Dimension,
) ([]entities.AggregateBucket, error) {
	if err := dto.ValidateGroupBy(groupBy); err != nil {
		return nil, err
	}

	partitions := partitionRecords(records, groupBy)
	buckets := make([]entities.AggregateBucket, len(partitions))
	dims := append([]entities.Dimension(nil), groupBy...)

	if a.config.ParallelThreshold <= 0 || len(records) < a.config.ParallelThreshold || len(partitions) < 2 {
		for i, p := range partitions {
			bucket, err := reducePartition(records, p, dims)
			if err != nil {
				return nil, err
			}
			buckets[i] = bucket
		}
		return buckets, nil
	}

	a.logger.Debug("reducing partitions concurrently",
		"records", len(records),
		"partitions", len(partitions),
		"workers", a.config.Workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for i := range partitions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bucket, err := reducePartition(records, partitions[i], dims)
			if err != nil {
				return err
			}
			buckets[i] = bucket
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func partitionRecords(records []entities.ReconciledRecord, groupBy []entities.Dimension) []partition {
	index := make(map[entities.BucketKey]int)
	partitions := make([]partition, 0)

	for i, r := range records {
		key, ok := bucketKeyFor(r.ForecastRecord, groupBy)
		if !ok {
			continue
		}
		pos, exists := index[key]
		if !exists {
			pos = len(partitions)
			index[key] = pos
			partitions = append(partitions, partition{key: key})
		}
		partitions[pos].indices = append(partitions[pos].indices, i)
	}
	return partitions
}

func bucketKeyFor(f entities.ForecastRecord, groupBy []entities.Dimension) (entities.BucketKey, bool) {
	var key entities.BucketKey
	for _, d := range groupBy {
		value, present := f.DimensionValue(d)
		if !present {
			return entities.BucketKey{}, false
		}
		switch d {
		case entities.DimensionBrand:
			key.Brand = value
		case entities.DimensionSeries:
			key.Series = value
		case entities.DimensionSupply:
			key.Supply = value
		case entities.DimensionPeriod:
			key.Period = entities.Period(value)
		}
	}
	return key, true
}

func reducePartition(
	records []entities.ReconciledRecord,
	p partition,
	groupBy []entities.Dimension,
) (entities.AggregateBucket, error) {
	bucket := entities.AggregateBucket{
		Key:         p.key,
		GroupBy:     groupBy,
		RecordCount: len(p.indices),
	}
	var ok bool
	for _, i := range p.indices {
		if bucket.ForecastQty, ok = addQuantity(bucket.ForecastQty, records[i].ForecastQty); !ok {
			return entities.AggregateBucket{}, fmt.Errorf("bucket %q forecast: %w", bucket.Label(), ErrQuantityOverflow)
		}
		if bucket.ActualQty, ok = addQuantity(bucket.ActualQty, records[i].ActualQty); !ok {
			return entities.AggregateBucket{}, fmt.Errorf("bucket %q actual: %w", bucket.Label(), ErrQuantityOverflow)
		}
	}
	bucket.Difference = bucket.ActualQty - bucket.ForecastQty
	bucket.AbsoluteError = bucket.Difference.Abs()
	bucket.AchievementRate = AchievementRate(bucket.ActualQty, bucket.ForecastQty)
	return bucket, nil
}
