package dto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

// SortKey selects the metric rows and buckets are ordered by
type SortKey string

const (
	SortForecastDesc   SortKey = "forecast_desc"
	SortActualDesc     SortKey = "actual_desc"
	SortAbsErrorDesc   SortKey = "abs_error_desc"
	SortDifferenceDesc SortKey = "difference_desc"
	SortRateDesc       SortKey = "rate_desc"
	SortRateAsc        SortKey = "rate_asc"
)

// SortKeys lists every supported sort key
var SortKeys = []SortKey{
	SortForecastDesc,
	SortActualDesc,
	SortAbsErrorDesc,
	SortDifferenceDesc,
	SortRateDesc,
	SortRateAsc,
}

// Valid reports whether k is a supported sort key
func (k SortKey) Valid() bool {
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// ParseSortKey parses a sort key name
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", apperrors.NewInvalidConfigurationError("sort", s, "unknown sort key")
	}
	return k, nil
}

// Defaults for the insight thresholds and list sizes
const (
	DefaultLowThreshold  = 90.0
	DefaultHighThreshold = 110.0
	DefaultTopK          = 5
)

// Filter restricts the forecast rows a query looks at.
// Empty sets mean "no restriction"; values within a set are OR-combined.
type Filter struct {
	Periods  []entities.Period `json:"periods,omitempty"`
	Brands   []string          `json:"brands,omitempty"`
	Series   []string          `json:"series,omitempty"`
	Supplies []string          `json:"supplies,omitempty"`
}

// Query is the complete, immutable configuration of one reconciliation query.
// Nothing in the pipeline reads state outside of it.
type Query struct {
	Filter        Filter                      `json:"filter"`
	Search        string                      `json:"search,omitempty"`
	Sort          SortKey                     `json:"sort"`
	Limit         int                         `json:"limit,omitempty"`
	GroupBy       []entities.Dimension        `json:"group_by"`
	LowThreshold  float64                     `json:"low_threshold"`
	HighThreshold float64                     `json:"high_threshold"`
	TopK          int                         `json:"top_k"`
	ZeroForecast  entities.ZeroForecastPolicy `json:"zero_forecast"`
}

// DefaultQuery returns a query over all data, sorted by forecast, grouped by brand and series
func DefaultQuery() Query {
	return Query{
		Sort:          SortForecastDesc,
		GroupBy:       []entities.Dimension{entities.DimensionBrand, entities.DimensionSeries},
		LowThreshold:  DefaultLowThreshold,
		HighThreshold: DefaultHighThreshold,
		TopK:          DefaultTopK,
		ZeroForecast:  entities.ZeroForecastOver,
	}
}

// Clone returns a copy of q whose slices are not shared with q
func (q Query) Clone() Query {
	q.Filter.Periods = slices.Clone(q.Filter.Periods)
	q.Filter.Brands = slices.Clone(q.Filter.Brands)
	q.Filter.Series = slices.Clone(q.Filter.Series)
	q.Filter.Supplies = slices.Clone(q.Filter.Supplies)
	q.GroupBy = slices.Clone(q.GroupBy)
	return q
}

// Validate rejects a query before any computation starts
func (q Query) Validate() error {
	if !q.Sort.Valid() {
		return apperrors.NewInvalidConfigurationError("sort", q.Sort, "unknown sort key")
	}
	if q.Limit < 0 {
		return apperrors.NewInvalidConfigurationError("limit", q.Limit, "must be >= 0")
	}
	if q.TopK < 0 {
		return apperrors.NewInvalidConfigurationError("top_k", q.TopK, "must be >= 0")
	}
	if err := ValidateGroupBy(q.GroupBy); err != nil {
		return err
	}
	if err := ValidateThresholds(q.LowThreshold, q.HighThreshold); err != nil {
		return err
	}
	switch q.ZeroForecast {
	case entities.ZeroForecastOver, entities.ZeroForecastExclude:
	default:
		return apperrors.NewInvalidConfigurationError("zero_forecast", q.ZeroForecast, "unknown policy")
	}
	return nil
}

// ValidateGroupBy requires a non-empty set of known, distinct dimensions
func ValidateGroupBy(groupBy []entities.Dimension) error {
	if len(groupBy) == 0 {
		return apperrors.NewInvalidConfigurationError("group_by", "", "at least one dimension is required")
	}
	seen := make(map[entities.Dimension]bool, len(groupBy))
	for _, d := range groupBy {
		if !d.Valid() {
			return apperrors.NewInvalidConfigurationError("group_by", d, "unknown dimension")
		}
		if seen[d] {
			return apperrors.NewInvalidConfigurationError("group_by", d, "duplicate dimension")
		}
		seen[d] = true
	}
	return nil
}

// ValidateThresholds requires finite, non-negative thresholds with low <= high
func ValidateThresholds(low, high float64) error {
	for _, t := range []struct {
		field string
		value float64
	}{{"low_threshold", low}, {"high_threshold", high}} {
		if math.IsNaN(t.value) || math.IsInf(t.value, 0) || t.value < 0 {
			return apperrors.NewInvalidConfigurationError(t.field, t.value, "must be a finite value >= 0")
		}
	}
	if low > high {
		return apperrors.NewInvalidConfigurationError("low_threshold", low, fmt.Sprintf("must not exceed high_threshold (%v)", high))
	}
	return nil
}

// Fingerprint returns a stable hash of the query. Filter sets are compared as
// sets, so their order does not change the fingerprint.
func (q Query) Fingerprint() string {
	canonical := q
	canonical.Filter = Filter{
		Periods:  sortedPeriods(q.Filter.Periods),
		Brands:   sortedStrings(q.Filter.Brands),
		Series:   sortedStrings(q.Filter.Series),
		Supplies: sortedStrings(q.Filter.Supplies),
	}
	// Validated queries hold only JSON-safe values
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func sortedPeriods(values []entities.Period) []entities.Period {
	if len(values) == 0 {
		return nil
	}
	out := append([]entities.Period(nil), values...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
