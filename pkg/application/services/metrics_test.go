package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	testhelpers "github.com/vsinha/forecast-recon/pkg/infrastructure/testing"
)

func TestAchievementRate(t *testing.T) {
	tests := []struct {
		actual, forecast entities.Quantity
		want             float64
	}{
		{950, 1000, 95.0},
		{150, 100, 150.0},
		{0, 100, 0.0},
		{500, 0, 0.0},
		{0, 0, 0.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{1, 16, 6.3},
		{1, 400, 0.3},
		{250, 300, 83.3},
		{2650, 2400, 110.4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AchievementRate(tt.actual, tt.forecast), "%d/%d", tt.actual, tt.forecast)
	}
}

func TestReconcile_BasicScenario(t *testing.T) {
	row := JoinedRow{
		Forecast:  testhelpers.Forecast("2026-02", "A", "T60", "X", "C1", "Chair", 1000),
		ActualQty: 950,
		Matched:   true,
	}

	r := Reconcile(row)

	assert.Equal(t, entities.Quantity(950), r.ActualQty)
	assert.Equal(t, entities.Quantity(-50), r.Difference)
	assert.Equal(t, entities.Quantity(50), r.AbsoluteError)
	assert.Equal(t, 95.0, r.AchievementRate)
	assert.Equal(t, "Chair", r.ItemName)
	assert.True(t, r.Matched)
}

func TestReconcile_ZeroForecast(t *testing.T) {
	r := Reconcile(JoinedRow{
		Forecast:  testhelpers.Forecast("2026-02", "A", "S20", "Y", "C3", "Sofa", 0),
		ActualQty: 500,
		Matched:   true,
	})

	assert.Equal(t, 0.0, r.AchievementRate)
	assert.Equal(t, entities.Quantity(500), r.Difference)
	assert.Equal(t, entities.Quantity(500), r.AbsoluteError)
}

func TestReconcile_UnmatchedForecast(t *testing.T) {
	r := Reconcile(JoinedRow{
		Forecast: testhelpers.Forecast("2026-02", "B", "K10", "X", "C4", "Desk", 200),
	})

	assert.Equal(t, entities.Quantity(0), r.ActualQty)
	assert.Equal(t, entities.Quantity(-200), r.Difference)
	assert.Equal(t, 0.0, r.AchievementRate)
	assert.False(t, r.Matched)
}
