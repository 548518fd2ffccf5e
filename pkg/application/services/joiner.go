package services

import (
	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// JoinKey is the (period, item code) pair forecasts and actuals are matched on
type JoinKey struct {
	Period   entities.Period
	ItemCode entities.ItemCode
}

// JoinedRow is a forecast row with its summed actual quantity
type JoinedRow struct {
	Forecast  entities.ForecastRecord
	ActualQty entities.Quantity
	Matched   bool
}

// JoinResult is the outcome of a left join of forecasts onto actuals
type JoinResult struct {
	Rows      []JoinedRow
	Matched   int
	Unmatched int
}

type actualTotal struct {
	qty  entities.Quantity
	rows int
}

// sumActuals reduces actual rows to one quantity per join key, keeping first-seen order
func sumActuals(actuals []entities.ActualRecord) (map[JoinKey]*actualTotal, []JoinKey) {
	totals := make(map[JoinKey]*actualTotal, len(actuals))
	order := make([]JoinKey, 0, len(actuals))
	for _, a := range actuals {
		key := JoinKey{Period: a.Period, ItemCode: a.ItemCode}
		t, ok := totals[key]
		if !ok {
			t = &actualTotal{}
			totals[key] = t
			order = append(order, key)
		}
		t.qty += a.ActualQty
		t.rows++
	}
	return totals, order
}

// Join left-joins forecasts onto actuals by (period, item code).
// Actual rows sharing a key are summed first, so the output holds exactly one
// row per forecast row, in input order. Unmatched forecasts get actual 0.
func Join(forecasts []entities.ForecastRecord, actuals []entities.ActualRecord) *JoinResult {
	totals, _ := sumActuals(actuals)

	result := &JoinResult{Rows: make([]JoinedRow, len(forecasts))}
	for i, f := range forecasts {
		row := JoinedRow{Forecast: f}
		if t, ok := totals[JoinKey{Period: f.Period, ItemCode: f.ItemCode}]; ok {
			row.ActualQty = t.qty
			row.Matched = true
			result.Matched++
		} else {
			result.Unmatched++
		}
		result.Rows[i] = row
	}
	return result
}

// FindOrphanActuals returns the summed actual keys that no forecast row
// references, in first-seen order
func FindOrphanActuals(forecasts []entities.ForecastRecord, actuals []entities.ActualRecord) []dto.OrphanActual {
	known := make(map[JoinKey]bool, len(forecasts))
	for _, f := range forecasts {
		known[JoinKey{Period: f.Period, ItemCode: f.ItemCode}] = true
	}

	totals, order := sumActuals(actuals)
	orphans := make([]dto.OrphanActual, 0)
	for _, key := range order {
		if known[key] {
			continue
		}
		t := totals[key]
		orphans = append(orphans, dto.OrphanActual{
			Period:    key.Period,
			ItemCode:  key.ItemCode,
			ActualQty: t.qty,
			Rows:      t.rows,
		})
	}
	return orphans
}
