package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

func strPtr(s string) *string { return &s }

func forecastRow(series, supply string) entities.RawForecastRow {
	return entities.RawForecastRow{
		Period:      "2026-02",
		Brand:       "A",
		Series:      series,
		Supply:      strPtr(supply),
		ItemCode:    "C1",
		ItemName:    "Chair",
		ForecastQty: "1000",
	}
}

func TestNormalizer_TrimsTextFields(t *testing.T) {
	raw := &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{{
			Period:      " 2026-02 ",
			Brand:       "  A ",
			Series:      " T60\t",
			Supply:      strPtr(" X "),
			ItemCode:    " C1-RED ",
			ItemName:    " Chair ",
			ForecastQty: " 1,000 ",
		}},
		Actuals: []entities.RawActualRow{{Period: "2026-02", ItemCode: " C1-RED", ActualQty: "950.0"}},
	}

	dataset, report := NewNormalizer(NormalizerConfig{}).Normalize(raw)

	require.Len(t, dataset.Forecasts, 1)
	f := dataset.Forecasts[0]
	assert.Equal(t, entities.Period("2026-02"), f.Period)
	assert.Equal(t, "A", f.Brand)
	assert.Equal(t, "T60", f.Series)
	assert.Equal(t, "X", f.Supply)
	assert.True(t, f.HasSupply)
	assert.Equal(t, entities.ItemCode("C1-RED"), f.ItemCode)
	assert.Equal(t, "Chair", f.ItemName)
	assert.Equal(t, entities.Quantity(1000), f.ForecastQty)

	require.Len(t, dataset.Actuals, 1)
	assert.Equal(t, entities.ItemCode("C1-RED"), dataset.Actuals[0].ItemCode)
	assert.Equal(t, entities.Quantity(950), dataset.Actuals[0].ActualQty)
	assert.Empty(t, report.Dropped)
}

func TestNormalizer_NoiseSeries(t *testing.T) {
	raw := &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{
			forecastRow("107", "X"),
			forecastRow("1", "X"),
			forecastRow("T60", "X"),
			forecastRow("T", "X"),
		},
	}

	dataset, report := NewNormalizer(NormalizerConfig{}).Normalize(raw)

	require.Len(t, dataset.Forecasts, 1)
	assert.Equal(t, "T60", dataset.Forecasts[0].Series)
	assert.Equal(t, 3, report.DroppedCount(apperrors.TableForecast))
	for _, d := range report.Dropped {
		assert.Equal(t, apperrors.ReasonNoiseSeries, d.Reason)
	}
}

func TestNormalizer_MissingMandatoryFields(t *testing.T) {
	noBrand := forecastRow("T60", "X")
	noBrand.Brand = "  "
	noCode := forecastRow("T60", "X")
	noCode.ItemCode = ""
	noSeries := forecastRow("", "X")
	badQty := forecastRow("T60", "X")
	badQty.ForecastQty = "-5"
	badPeriod := forecastRow("T60", "X")
	badPeriod.Period = "Feb"

	raw := &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{noBrand, noCode, noSeries, badQty, badPeriod},
		Actuals: []entities.RawActualRow{
			{Period: "2026-02", ItemCode: "", ActualQty: "1"},
			{Period: "2026-02", ItemCode: "C1", ActualQty: "1.5"},
			{Period: "2026-02", ItemCode: "C1", ActualQty: "3"},
		},
	}

	dataset, report := NewNormalizer(NormalizerConfig{}).Normalize(raw)

	assert.Empty(t, dataset.Forecasts)
	assert.Len(t, dataset.Actuals, 1)
	assert.Equal(t, 5, report.DroppedCount(apperrors.TableForecast))
	assert.Equal(t, 2, report.DroppedCount(apperrors.TableActual))
	assert.Equal(t, 5, report.ForecastRows)
	assert.Equal(t, 0, report.ForecastKept)

	fields := make([]string, 0, len(report.Dropped))
	for _, d := range report.Dropped {
		fields = append(fields, d.Table+"."+d.Field)
	}
	assert.Equal(t, []string{
		"forecast.brand",
		"forecast.item_code",
		"forecast.series",
		"forecast.forecast_qty",
		"forecast.period",
		"actual.item_code",
		"actual.actual_qty",
	}, fields)
}

func TestNormalizer_SupplyPolicies(t *testing.T) {
	missing := forecastRow("T60", "")
	missing.Supply = nil
	blank := forecastRow("T60", "   ")
	raw := &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{forecastRow("T60", "X"), missing, blank},
	}

	tests := []struct {
		name       string
		policy     entities.SupplyPolicy
		wantKept   int
		wantSupply []string
		wantHas    []bool
	}{
		{"drop", entities.DropMissing, 1, []string{"X"}, []bool{true}},
		{"label", entities.LabelAsUnclassified, 3, []string{"X", "미분류", "미분류"}, []bool{true, true, true}},
		{"retain", entities.RetainAsNull, 3, []string{"X", "", ""}, []bool{true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(NormalizerConfig{SupplyPolicy: tt.policy, UnclassifiedLabel: "미분류"})
			dataset, report := n.Normalize(raw)

			require.Len(t, dataset.Forecasts, tt.wantKept)
			for i, f := range dataset.Forecasts {
				assert.Equal(t, tt.wantSupply[i], f.Supply)
				assert.Equal(t, tt.wantHas[i], f.HasSupply)
			}
			assert.Equal(t, len(raw.Forecasts)-tt.wantKept, report.DroppedCount(apperrors.TableForecast))
		})
	}
}

func TestNormalizer_DefaultUnclassifiedLabel(t *testing.T) {
	row := forecastRow("T60", "")
	dataset, report := NewNormalizer(NormalizerConfig{SupplyPolicy: entities.LabelAsUnclassified}).
		Normalize(&entities.RawDataset{Forecasts: []entities.RawForecastRow{row}})

	require.Len(t, dataset.Forecasts, 1)
	assert.Equal(t, DefaultUnclassifiedLabel, dataset.Forecasts[0].Supply)
	assert.Equal(t, 1, report.SupplyLabelled)
}

func TestNormalizer_DoesNotModifyInput(t *testing.T) {
	row := forecastRow(" T60 ", " X ")
	raw := &entities.RawDataset{Forecasts: []entities.RawForecastRow{row}}

	NewNormalizer(NormalizerConfig{}).Normalize(raw)

	assert.Equal(t, " T60 ", raw.Forecasts[0].Series)
	assert.Equal(t, " X ", *raw.Forecasts[0].Supply)
}

func TestNormalizer_NilDataset(t *testing.T) {
	dataset, report := NewNormalizer(NormalizerConfig{}).Normalize(nil)
	assert.Empty(t, dataset.Forecasts)
	assert.Empty(t, dataset.Actuals)
	assert.Zero(t, report.ForecastRows)
}

func TestIsNoiseSeries(t *testing.T) {
	assert.True(t, IsNoiseSeries("107"))
	assert.True(t, IsNoiseSeries("1"))
	assert.True(t, IsNoiseSeries(""))
	assert.True(t, IsNoiseSeries("가"))
	assert.False(t, IsNoiseSeries("T60"))
	assert.False(t, IsNoiseSeries("소파"))
	assert.False(t, IsNoiseSeries("60T"))
}

func TestParsePeriod(t *testing.T) {
	for _, in := range []string{"2026-02", "2026-2", "202602", "2026.02", "2026/2", "2026-02-15"} {
		p, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, entities.Period("2026-02"), p, in)
	}

	for _, in := range []string{"", "Feb 2026", "2026-13", "26-02"} {
		_, err := ParsePeriod(in)
		assert.Error(t, err, in)
	}
}

func TestParseQuantity(t *testing.T) {
	valid := map[string]entities.Quantity{
		"0":     0,
		"950":   950,
		"1,000": 1000,
		"950.0": 950,
		" 12 ":  12,
		"1e3":   1000,
	}
	for in, want := range valid {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "-1", "1.5", "abc", "NaN", "-2.0",
		"9223372036854775808", "9223372036854775808.0", "9.3e18", "1e19"} {
		got, err := ParseQuantity(in)
		assert.Error(t, err, in)
		assert.Zero(t, got, in)
	}

	got, err := ParseQuantity("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(math.MaxInt64), got)
}

func TestNormalizer_DropsRowsPastTableTotal(t *testing.T) {
	big := forecastRow("T60", "X")
	big.ForecastQty = "5000000000000000000"
	raw := &entities.RawDataset{
		Forecasts: []entities.RawForecastRow{big, big, forecastRow("S20", "X")},
		Actuals: []entities.RawActualRow{
			{Period: "2026-02", ItemCode: "C1", ActualQty: "5000000000000000000"},
			{Period: "2026-02", ItemCode: "C1", ActualQty: "5000000000000000000"},
		},
	}

	dataset, report := NewNormalizer(NormalizerConfig{}).Normalize(raw)

	require.Len(t, dataset.Forecasts, 2)
	assert.Equal(t, entities.Quantity(5e18), dataset.Forecasts[0].ForecastQty)
	assert.Equal(t, entities.Quantity(1000), dataset.Forecasts[1].ForecastQty)
	require.Len(t, dataset.Actuals, 1)

	require.Len(t, report.Dropped, 2)
	for _, d := range report.Dropped {
		assert.Equal(t, apperrors.ReasonQuantityTotal, d.Reason)
		assert.Equal(t, 2, d.Row)
	}
	assert.Equal(t, 1, report.DroppedCount(apperrors.TableForecast))
	assert.Equal(t, 1, report.DroppedCount(apperrors.TableActual))
}
