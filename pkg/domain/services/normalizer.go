package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

// DefaultUnclassifiedLabel is the supply label used by LabelAsUnclassified
const DefaultUnclassifiedLabel = "unclassified"

// NormalizerConfig holds the row cleaning policy
type NormalizerConfig struct {
	SupplyPolicy      entities.SupplyPolicy
	UnclassifiedLabel string
}

// Normalizer cleans raw forecast and actual rows.
// It never fails on a bad row; the row is dropped and recorded in the report.
type Normalizer struct {
	config NormalizerConfig
}

// NewNormalizer creates a new normalizer with the given policy
func NewNormalizer(config NormalizerConfig) *Normalizer {
	if config.UnclassifiedLabel == "" {
		config.UnclassifiedLabel = DefaultUnclassifiedLabel
	}
	return &Normalizer{config: config}
}

// Normalize cleans both tables. The input is not modified.
func (n *Normalizer) Normalize(raw *entities.RawDataset) (*entities.Dataset, *entities.NormalizationReport) {
	dataset := &entities.Dataset{}
	report := &entities.NormalizationReport{}
	if raw == nil {
		return dataset, report
	}

	report.ForecastRows = len(raw.Forecasts)
	report.ActualRows = len(raw.Actuals)
	dataset.Forecasts = make([]entities.ForecastRecord, 0, len(raw.Forecasts))
	dataset.Actuals = make([]entities.ActualRecord, 0, len(raw.Actuals))

	// Each table's kept quantities must sum within int64 so every bucket,
	// join total and insight total derived from them is exact.
	var forecastTotal, actualTotal entities.Quantity

	for i, row := range raw.Forecasts {
		rowNum := row.Row
		if rowNum == 0 {
			rowNum = i + 1
		}
		record, dropped := n.normalizeForecast(row, rowNum, report)
		if dropped == nil && !addWithinBudget(&forecastTotal, record.ForecastQty) {
			dropped = quantityTotalExceeded(apperrors.TableForecast, "forecast_qty", rowNum, record.ForecastQty)
		}
		if dropped != nil {
			report.Dropped = append(report.Dropped, *dropped)
			continue
		}
		dataset.Forecasts = append(dataset.Forecasts, record)
	}

	for i, row := range raw.Actuals {
		rowNum := row.Row
		if rowNum == 0 {
			rowNum = i + 1
		}
		record, dropped := normalizeActual(row, rowNum)
		if dropped == nil && !addWithinBudget(&actualTotal, record.ActualQty) {
			dropped = quantityTotalExceeded(apperrors.TableActual, "actual_qty", rowNum, record.ActualQty)
		}
		if dropped != nil {
			report.Dropped = append(report.Dropped, *dropped)
			continue
		}
		dataset.Actuals = append(dataset.Actuals, record)
	}

	report.ForecastKept = len(dataset.Forecasts)
	report.ActualKept = len(dataset.Actuals)
	return dataset, report
}

// addWithinBudget adds qty to total unless the sum would overflow int64
func addWithinBudget(total *entities.Quantity, qty entities.Quantity) bool {
	if qty > math.MaxInt64-*total {
		return false
	}
	*total += qty
	return true
}

func quantityTotalExceeded(table string, field string, rowNum int, qty entities.Quantity) *apperrors.MalformedRowError {
	return &apperrors.MalformedRowError{
		Table:  table,
		Row:    rowNum,
		Field:  field,
		Reason: apperrors.ReasonQuantityTotal,
		Value:  strconv.FormatInt(int64(qty), 10),
	}
}

func (n *Normalizer) normalizeForecast(
	row entities.RawForecastRow,
	rowNum int,
	report *entities.NormalizationReport,
) (entities.ForecastRecord, *apperrors.MalformedRowError) {
	malformed := func(field, reason, value string) *apperrors.MalformedRowError {
		return &apperrors.MalformedRowError{
			Table:  apperrors.TableForecast,
			Row:    rowNum,
			Field:  field,
			Reason: reason,
			Value:  value,
		}
	}

	brand := strings.TrimSpace(row.Brand)
	series := strings.TrimSpace(row.Series)
	itemCode := strings.TrimSpace(row.ItemCode)
	itemName := strings.TrimSpace(row.ItemName)

	switch {
	case series == "":
		return entities.ForecastRecord{}, malformed("series", apperrors.ReasonMissingField, "")
	case brand == "":
		return entities.ForecastRecord{}, malformed("brand", apperrors.ReasonMissingField, "")
	case itemCode == "":
		return entities.ForecastRecord{}, malformed("item_code", apperrors.ReasonMissingField, "")
	}

	if IsNoiseSeries(series) {
		return entities.ForecastRecord{}, malformed("series", apperrors.ReasonNoiseSeries, series)
	}

	period, err := ParsePeriod(row.Period)
	if err != nil {
		return entities.ForecastRecord{}, malformed("period", apperrors.ReasonInvalidPeriod, row.Period)
	}

	qty, err := ParseQuantity(row.ForecastQty)
	if err != nil {
		return entities.ForecastRecord{}, malformed("forecast_qty", apperrors.ReasonInvalidQuantity, row.ForecastQty)
	}

	record := entities.ForecastRecord{
		Period:      period,
		Brand:       brand,
		Series:      series,
		ItemCode:    entities.ItemCode(itemCode),
		ItemName:    itemName,
		ForecastQty: qty,
	}

	supply := ""
	if row.Supply != nil {
		supply = strings.TrimSpace(*row.Supply)
	}
	if supply != "" {
		record.Supply = supply
		record.HasSupply = true
		return record, nil
	}

	switch n.config.SupplyPolicy {
	case entities.LabelAsUnclassified:
		record.Supply = n.config.UnclassifiedLabel
		record.HasSupply = true
		report.SupplyLabelled++
	case entities.RetainAsNull:
		report.SupplyRetained++
	default:
		return entities.ForecastRecord{}, malformed("supply", apperrors.ReasonMissingSupply, "")
	}
	return record, nil
}

func normalizeActual(row entities.RawActualRow, rowNum int) (entities.ActualRecord, *apperrors.MalformedRowError) {
	malformed := func(field, reason, value string) *apperrors.MalformedRowError {
		return &apperrors.MalformedRowError{
			Table:  apperrors.TableActual,
			Row:    rowNum,
			Field:  field,
			Reason: reason,
			Value:  value,
		}
	}

	itemCode := strings.TrimSpace(row.ItemCode)
	if itemCode == "" {
		return entities.ActualRecord{}, malformed("item_code", apperrors.ReasonMissingField, "")
	}

	period, err := ParsePeriod(row.Period)
	if err != nil {
		return entities.ActualRecord{}, malformed("period", apperrors.ReasonInvalidPeriod, row.Period)
	}

	qty, err := ParseQuantity(row.ActualQty)
	if err != nil {
		return entities.ActualRecord{}, malformed("actual_qty", apperrors.ReasonInvalidQuantity, row.ActualQty)
	}

	return entities.ActualRecord{
		Period:    period,
		ItemCode:  entities.ItemCode(itemCode),
		ActualQty: qty,
	}, nil
}

// IsNoiseSeries reports whether a series label is a data-entry artefact:
// purely numeric, or shorter than two characters.
func IsNoiseSeries(series string) bool {
	series = strings.TrimSpace(series)
	if utf8.RuneCountInString(series) < 2 {
		return true
	}
	for _, r := range series {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var periodLayouts = []string{
	"2006-01",
	"2006-1",
	"200601",
	"2006.01",
	"2006.1",
	"2006/01",
	"2006/1",
	"2006-01-02",
}

// ParsePeriod converts the accepted month spellings to canonical YYYY-MM
func ParsePeriod(s string) (entities.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty period")
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return entities.Period(t.Format("2006-01")), nil
		}
	}
	return "", fmt.Errorf("invalid period: %s (expected YYYY-MM)", s)
}

// ParseQuantity parses a non-negative integer quantity. Thousands separators
// and integral float spellings such as "950.0" are accepted.
func ParseQuantity(s string) (entities.Quantity, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative quantity: %d", v)
		}
		return entities.Quantity(v), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity: %s", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f >= 1<<63 {
		return 0, fmt.Errorf("invalid quantity: %s", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative quantity: %s", s)
	}
	return entities.Quantity(int64(f)), nil
}
