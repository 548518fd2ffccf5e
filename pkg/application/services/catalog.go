package services

import (
	"sort"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// BuildCatalog collects the distinct filter values of a dataset.
// Periods are newest first; brands, series and supplies are sorted.
// When brands is non-empty, series only lists series of those brands.
func BuildCatalog(dataset *entities.Dataset, brands []string) *dto.Catalog {
	catalog := &dto.Catalog{
		Periods:  []entities.Period{},
		Brands:   []string{},
		Series:   []string{},
		Supplies: []string{},
	}
	if dataset == nil {
		return catalog
	}

	selected := newStringSet(brands)
	periods := make(map[entities.Period]bool)
	brandSet := make(map[string]bool)
	seriesSet := make(map[string]bool)
	supplySet := make(map[string]bool)

	for _, f := range dataset.Forecasts {
		periods[f.Period] = true
		brandSet[f.Brand] = true
		if selected.allows(f.Brand) {
			seriesSet[f.Series] = true
		}
		if f.HasSupply {
			supplySet[f.Supply] = true
		} else {
			catalog.HasNullSupply = true
		}
	}

	for p := range periods {
		catalog.Periods = append(catalog.Periods, p)
	}
	sort.Slice(catalog.Periods, func(i, j int) bool { return catalog.Periods[i] > catalog.Periods[j] })

	catalog.Brands = sortedKeys(brandSet)
	catalog.Series = sortedKeys(seriesSet)
	catalog.Supplies = sortedKeys(supplySet)
	return catalog
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
