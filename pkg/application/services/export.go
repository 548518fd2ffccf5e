package services

import (
	"strconv"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// ExportColumns is the fixed column order of exported tables
var ExportColumns = []string{
	"period",
	"brand",
	"series",
	"supply",
	"item_code",
	"item_name",
	"forecast_qty",
	"actual_qty",
	"difference",
	"absolute_error",
	"achievement_rate",
}

// ItemPartColumns are appended when the item code decorator is enabled
var ItemPartColumns = []string{"code", "color"}

// ExportOptions controls the optional item code decorator columns
type ExportOptions struct {
	IncludeItemParts bool
	Delimiter        string
	DefaultColor     string
}

// Export flattens reconciled records into a table with a stable header.
// Rates are written with exactly one decimal.
func Export(records []entities.ReconciledRecord, opts ExportOptions) *dto.ExportTable {
	header := append([]string(nil), ExportColumns...)
	if opts.IncludeItemParts {
		header = append(header, ItemPartColumns...)
	}

	table := &dto.ExportTable{
		Header: header,
		Rows:   make([][]string, 0, len(records)),
	}
	for _, r := range records {
		row := make([]string, 0, len(header))
		row = append(row,
			string(r.Period),
			r.Brand,
			r.Series,
			r.Supply,
			string(r.ItemCode),
			r.ItemName,
			formatQuantity(r.ForecastQty),
			formatQuantity(r.ActualQty),
			formatQuantity(r.Difference),
			formatQuantity(r.AbsoluteError),
			FormatRate(r.AchievementRate),
		)
		if opts.IncludeItemParts {
			parts := entities.DecomposeItemCode(r.ItemCode, opts.Delimiter, opts.DefaultColor)
			row = append(row, parts.Code, parts.Color)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// FormatRate renders a rate with one decimal, e.g. "95.0"
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

func formatQuantity(q entities.Quantity) string {
	return strconv.FormatInt(int64(q), 10)
}
