package entities

// ForecastRecord is one cleaned row of the forecast table.
// Rows are unique by (Period, ItemCode) only by convention; duplicates are kept.
type ForecastRecord struct {
	Period      Period   `json:"period"`
	Brand       string   `json:"brand"`
	Series      string   `json:"series"`
	Supply      string   `json:"supply"`
	HasSupply   bool     `json:"has_supply"`
	ItemCode    ItemCode `json:"item_code"`
	ItemName    string   `json:"item_name"`
	ForecastQty Quantity `json:"forecast_qty"`
}

// DimensionValue returns the record's value for d. The boolean is false when
// the value is absent (only possible for supply under RetainAsNull).
func (f ForecastRecord) DimensionValue(d Dimension) (string, bool) {
	switch d {
	case DimensionBrand:
		return f.Brand, true
	case DimensionSeries:
		return f.Series, true
	case DimensionSupply:
		return f.Supply, f.HasSupply
	case DimensionPeriod:
		return string(f.Period), true
	default:
		return "", false
	}
}

// ActualRecord is one cleaned row of the actual-results table
type ActualRecord struct {
	Period    Period   `json:"period"`
	ItemCode  ItemCode `json:"item_code"`
	ActualQty Quantity `json:"actual_qty"`
}

// RawForecastRow is a forecast row as produced by a loader, before cleaning.
// Supply is nil when the source cell is missing (NULL / empty).
type RawForecastRow struct {
	Row         int
	Period      string
	Brand       string
	Series      string
	Supply      *string
	ItemCode    string
	ItemName    string
	ForecastQty string
}

// RawActualRow is an actual row as produced by a loader, before cleaning
type RawActualRow struct {
	Row       int
	Period    string
	ItemCode  string
	ActualQty string
}

// RawDataset is the loader contract: both tables as in-memory rows
type RawDataset struct {
	Source    string
	Forecasts []RawForecastRow
	Actuals   []RawActualRow
}

// Dataset holds the cleaned forecast and actual tables
type Dataset struct {
	Forecasts []ForecastRecord
	Actuals   []ActualRecord
}
