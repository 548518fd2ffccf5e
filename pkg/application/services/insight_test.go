package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

func newTestInsight(t *testing.T, policy entities.ZeroForecastPolicy) *InsightGenerator {
	t.Helper()
	g, err := NewInsightGenerator(InsightConfig{
		LowThreshold:  dto.DefaultLowThreshold,
		HighThreshold: dto.DefaultHighThreshold,
		TopK:          dto.DefaultTopK,
		ZeroForecast:  policy,
	})
	require.NoError(t, err)
	return g
}

func entryCodes(entries []dto.InsightEntry) []string {
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = string(e.Period) + "/" + string(e.ItemCode)
	}
	return codes
}

func TestInsight_ClassifyThresholds(t *testing.T) {
	g := newTestInsight(t, entities.ZeroForecastOver)

	tests := []struct {
		rate float64
		want entities.Classification
	}{
		{0, entities.UnderForecast},
		{89.9, entities.UnderForecast},
		{90, entities.InRange},
		{100, entities.InRange},
		{110, entities.InRange},
		{110.1, entities.OverForecast},
	}
	for _, tt := range tests {
		m := entities.Measures{ForecastQty: 1000, AchievementRate: tt.rate}
		assert.Equal(t, tt.want, g.Classify(m), "rate %v", tt.rate)
	}
}

func TestInsight_ZeroForecastPolicy(t *testing.T) {
	soldWithoutForecast := entities.Measures{ForecastQty: 0, ActualQty: 500}
	nothing := entities.Measures{}

	over := newTestInsight(t, entities.ZeroForecastOver)
	assert.Equal(t, entities.OverForecast, over.Classify(soldWithoutForecast))
	assert.Equal(t, entities.InRange, over.Classify(nothing))

	exclude := newTestInsight(t, entities.ZeroForecastExclude)
	assert.Equal(t, entities.Unclassified, exclude.Classify(soldWithoutForecast))
	assert.Equal(t, entities.Unclassified, exclude.Classify(nothing))
}

func TestInsight_Summary(t *testing.T) {
	summary := SummarizeRows(newTestInsight(t, entities.ZeroForecastOver), furnitureRecords())

	assert.Equal(t, 6, summary.EntityCount)
	assert.Equal(t, entities.Quantity(2400), summary.TotalForecast)
	assert.Equal(t, entities.Quantity(2650), summary.TotalActual)
	assert.Equal(t, entities.Quantity(250), summary.TotalDifference)
	assert.Equal(t, 110.4, summary.OverallRate)
	assert.Equal(t, 71.4, summary.MeanEntityRate)
	assert.NotEqual(t, summary.OverallRate, summary.MeanEntityRate)

	assert.Equal(t, map[entities.Classification]int{
		entities.UnderForecast: 2,
		entities.InRange:       2,
		entities.OverForecast:  2,
		entities.Unclassified:  0,
	}, summary.Counts)

	assert.Equal(t, []string{"2026-02/C3", "2026-02/C4-GRN", "2026-02/C1-RED", "2026-02/C2-BLUE", "2026-02/C5"},
		entryCodes(summary.LargestDiscrepancies))
	assert.Equal(t, []string{"2026-02/C4-GRN", "2026-02/C5"}, entryCodes(summary.UnderForecast))
	// a zero forecast with sales ranks ahead of any finite rate
	assert.Equal(t, []string{"2026-02/C3", "2026-02/C2-BLUE"}, entryCodes(summary.OverForecast))
}

func TestInsight_ExcludePolicyCountsUnclassified(t *testing.T) {
	summary := SummarizeRows(newTestInsight(t, entities.ZeroForecastExclude), furnitureRecords())

	assert.Equal(t, 1, summary.Counts[entities.Unclassified])
	assert.Equal(t, 1, summary.Counts[entities.OverForecast])
	assert.Equal(t, []string{"2026-02/C2-BLUE"}, entryCodes(summary.OverForecast))
}

func TestInsight_TopK(t *testing.T) {
	g, err := NewInsightGenerator(InsightConfig{LowThreshold: 90, HighThreshold: 110, TopK: 1})
	require.NoError(t, err)

	summary := SummarizeRows(g, furnitureRecords())
	assert.Len(t, summary.LargestDiscrepancies, 1)
	assert.Len(t, summary.UnderForecast, 1)
	assert.Len(t, summary.OverForecast, 1)

	g, err = NewInsightGenerator(InsightConfig{LowThreshold: 90, HighThreshold: 110, TopK: 0})
	require.NoError(t, err)
	summary = SummarizeRows(g, furnitureRecords())
	assert.NotNil(t, summary.LargestDiscrepancies)
	assert.Empty(t, summary.LargestDiscrepancies)
}

func TestInsight_EmptyInput(t *testing.T) {
	summary := SummarizeRows(newTestInsight(t, entities.ZeroForecastOver), []entities.ReconciledRecord{})

	assert.Zero(t, summary.EntityCount)
	assert.Zero(t, summary.OverallRate)
	assert.Zero(t, summary.MeanEntityRate)
	assert.Empty(t, summary.UnderForecast)
}

func TestInsight_Buckets(t *testing.T) {
	buckets := []entities.AggregateBucket{
		{Key: entities.BucketKey{Brand: "A"}, GroupBy: []entities.Dimension{entities.DimensionBrand}, ForecastQty: 1900, ActualQty: 2400, AchievementRate: 126.3},
		{Key: entities.BucketKey{Brand: "B"}, GroupBy: []entities.Dimension{entities.DimensionBrand}, ForecastQty: 500, ActualQty: 250, AchievementRate: 50},
	}

	summary := SummarizeRows(newTestInsight(t, entities.ZeroForecastOver), buckets)

	require.Len(t, summary.OverForecast, 1)
	assert.Equal(t, "A", summary.OverForecast[0].Label)
	require.Len(t, summary.UnderForecast, 1)
	assert.Equal(t, "B", summary.UnderForecast[0].Label)
}

func TestInsight_InvalidThresholds(t *testing.T) {
	for _, cfg := range []InsightConfig{
		{LowThreshold: -1, HighThreshold: 110},
		{LowThreshold: 120, HighThreshold: 110},
	} {
		_, err := NewInsightGenerator(cfg)
		assert.True(t, apperrors.IsInvalidConfiguration(err), "%+v", cfg)
	}
}
