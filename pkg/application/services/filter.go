package services

import (
	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

type stringSet map[string]bool

func newStringSet(values []string) stringSet {
	if len(values) == 0 {
		return nil
	}
	set := make(stringSet, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// allows reports whether v passes; a nil set allows everything
func (s stringSet) allows(v string) bool {
	return s == nil || s[v]
}

func periodSet(periods []entities.Period) stringSet {
	values := make([]string, len(periods))
	for i, p := range periods {
		values[i] = string(p)
	}
	return newStringSet(values)
}

// FilterForecasts keeps the forecast rows matching every non-empty criterion.
// Rows without a supply never match a non-empty supply filter.
func FilterForecasts(forecasts []entities.ForecastRecord, filter dto.Filter) []entities.ForecastRecord {
	periods := periodSet(filter.Periods)
	brands := newStringSet(filter.Brands)
	series := newStringSet(filter.Series)
	supplies := newStringSet(filter.Supplies)

	out := make([]entities.ForecastRecord, 0, len(forecasts))
	for _, f := range forecasts {
		if !periods.allows(string(f.Period)) || !brands.allows(f.Brand) || !series.allows(f.Series) {
			continue
		}
		if supplies != nil && (!f.HasSupply || !supplies[f.Supply]) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FilterForecastsByPeriod keeps the forecast rows of the given periods
func FilterForecastsByPeriod(forecasts []entities.ForecastRecord, periods []entities.Period) []entities.ForecastRecord {
	return FilterForecasts(forecasts, dto.Filter{Periods: periods})
}

// FilterActuals keeps the actual rows of the given periods (all when empty)
func FilterActuals(actuals []entities.ActualRecord, periods []entities.Period) []entities.ActualRecord {
	set := periodSet(periods)
	out := make([]entities.ActualRecord, 0, len(actuals))
	for _, a := range actuals {
		if set.allows(string(a.Period)) {
			out = append(out, a)
		}
	}
	return out
}
