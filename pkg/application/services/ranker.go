package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// Rankable is anything that carries the reconciliation metrics and can be
// searched: reconciled rows and aggregate buckets.
type Rankable interface {
	Measures() entities.Measures
	SearchFields() []string
}

// RankSpec controls search, ordering and truncation
type RankSpec struct {
	Sort  dto.SortKey
	Query string
	Limit int
}

// Rank filters rows by the free-text query, sorts them by the sort key and
// truncates to the limit (0 means no limit). The input slice is not modified.
// Ties keep input order.
func Rank[T Rankable](rows []T, spec RankSpec) []T {
	out := Search(rows, spec.Query)
	SortRows(out, spec.Sort)
	return Truncate(out, spec.Limit)
}

// Search returns the rows whose search fields contain query, ignoring case.
// An empty query matches everything. The result is a new slice.
func Search[T Rankable](rows []T, query string) []T {
	out := make([]T, 0, len(rows))
	query = strings.TrimSpace(query)
	if query == "" {
		return append(out, rows...)
	}

	fold := cases.Fold()
	needle := fold.String(query)
	for _, row := range rows {
		for _, field := range row.SearchFields() {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// SortRows sorts rows in place by key. Unknown keys leave the order untouched.
func SortRows[T Rankable](rows []T, key dto.SortKey) {
	less := lessFunc(key)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i].Measures(), rows[j].Measures())
	})
}

// Truncate returns at most limit rows; limit <= 0 keeps all
func Truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func lessFunc(key dto.SortKey) func(a, b entities.Measures) bool {
	switch key {
	case dto.SortForecastDesc:
		return func(a, b entities.Measures) bool { return a.ForecastQty > b.ForecastQty }
	case dto.SortActualDesc:
		return func(a, b entities.Measures) bool { return a.ActualQty > b.ActualQty }
	case dto.SortAbsErrorDesc:
		return func(a, b entities.Measures) bool { return a.AbsoluteError > b.AbsoluteError }
	case dto.SortDifferenceDesc:
		return func(a, b entities.Measures) bool { return a.Difference > b.Difference }
	case dto.SortRateDesc:
		return func(a, b entities.Measures) bool { return a.AchievementRate > b.AchievementRate }
	case dto.SortRateAsc:
		return func(a, b entities.Measures) bool { return a.AchievementRate < b.AchievementRate }
	default:
		return nil
	}
}
