package entities

import (
	"slices"
	"sort"

	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

// NormalizationReport accounts for every input row: kept, coerced or dropped
type NormalizationReport struct {
	ForecastRows   int                           `json:"forecast_rows"`
	ActualRows     int                           `json:"actual_rows"`
	ForecastKept   int                           `json:"forecast_kept"`
	ActualKept     int                           `json:"actual_kept"`
	SupplyLabelled int                           `json:"supply_labelled"`
	SupplyRetained int                           `json:"supply_retained"`
	Dropped        []apperrors.MalformedRowError `json:"dropped"`
}

// Clone returns a copy that does not share the dropped-row list
func (r *NormalizationReport) Clone() *NormalizationReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Dropped = slices.Clone(r.Dropped)
	return &c
}

// DroppedCount returns the number of dropped rows for a table
func (r *NormalizationReport) DroppedCount(table string) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Dropped {
		if d.Table == table {
			n++
		}
	}
	return n
}

// ReasonCount is the number of dropped rows for one (table, reason) pair
type ReasonCount struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// CountsByReason summarizes dropped rows, ordered by table then reason
func (r *NormalizationReport) CountsByReason() []ReasonCount {
	if r == nil {
		return nil
	}
	type key struct{ table, reason string }
	counts := make(map[key]int)
	for _, d := range r.Dropped {
		counts[key{d.Table, d.Reason}]++
	}
	result := make([]ReasonCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, ReasonCount{Table: k.table, Reason: k.reason, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Table != result[j].Table {
			return result[i].Table < result[j].Table
		}
		return result[i].Reason < result[j].Reason
	})
	return result
}
