package testing

import (
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/memory"
)

// Forecast builds a cleaned forecast record with a supply channel
func Forecast(period, brand, series, supply, code, name string, qty int64) entities.ForecastRecord {
	return entities.ForecastRecord{
		Period:      entities.Period(period),
		Brand:       brand,
		Series:      series,
		Supply:      supply,
		HasSupply:   supply != "",
		ItemCode:    entities.ItemCode(code),
		ItemName:    name,
		ForecastQty: entities.Quantity(qty),
	}
}

// Actual builds a cleaned actual record
func Actual(period, code string, qty int64) entities.ActualRecord {
	return entities.ActualRecord{
		Period:    entities.Period(period),
		ItemCode:  entities.ItemCode(code),
		ActualQty: entities.Quantity(qty),
	}
}

// BuildFurnitureDataset builds a small two-brand scenario:
//
//	2026-02 A/T60/X C1-RED  Chair 1000 -> 950 (actuals split 500 + 450)
//	2026-02 A/T60/X C2-BLUE Table  100 -> 150
//	2026-02 A/S20/Y C3      Sofa     0 -> 500
//	2026-02 B/K10/X C4-GRN  Desk   200 -> none
//	2026-02 B/K10/Y C5      Lamp   300 -> 250
//	2026-01 A/T60/X C1-RED  Chair  800 -> 800
//
// plus an orphan actual for C9 in 2026-02.
func BuildFurnitureDataset() *entities.Dataset {
	return &entities.Dataset{
		Forecasts: []entities.ForecastRecord{
			Forecast("2026-02", "A", "T60", "X", "C1-RED", "Chair", 1000),
			Forecast("2026-02", "A", "T60", "X", "C2-BLUE", "Table", 100),
			Forecast("2026-02", "A", "S20", "Y", "C3", "Sofa", 0),
			Forecast("2026-02", "B", "K10", "X", "C4-GRN", "Desk", 200),
			Forecast("2026-02", "B", "K10", "Y", "C5", "Lamp", 300),
			Forecast("2026-01", "A", "T60", "X", "C1-RED", "Chair", 800),
		},
		Actuals: []entities.ActualRecord{
			Actual("2026-02", "C1-RED", 500),
			Actual("2026-02", "C2-BLUE", 150),
			Actual("2026-02", "C3", 500),
			Actual("2026-02", "C1-RED", 450),
			Actual("2026-02", "C5", 250),
			Actual("2026-02", "C9", 70),
			Actual("2026-01", "C1-RED", 800),
		},
	}
}

// BuildFurnitureRepository returns a repository holding BuildFurnitureDataset
func BuildFurnitureRepository() *memory.DatasetRepository {
	repo := memory.NewDatasetRepository(nil, nil)
	if _, err := repo.Replace("furniture", BuildFurnitureDataset(), &entities.NormalizationReport{}); err != nil {
		panic(err)
	}
	return repo
}
