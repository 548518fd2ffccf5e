package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// Sheet names of the xlsx export
const (
	SheetRecords = "records"
	SheetBuckets = "buckets"
	SheetSummary = "summary"
)

// numericColumns are written as numbers so spreadsheet formulas work on them
var numericColumns = map[string]bool{
	"forecast_qty":     true,
	"actual_qty":       true,
	"difference":       true,
	"absolute_error":   true,
	"achievement_rate": true,
}

// WriteXLSX writes a workbook with the export table, the buckets and the summary
func WriteXLSX(w io.Writer, result *dto.QueryResult, table *dto.ExportTable) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeTableSheet(f, SheetRecords, headerStyle, table); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetBuckets); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeTableSheet(f, SheetBuckets, headerStyle, bucketTable(result.Buckets)); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeTableSheet(f, SheetSummary, headerStyle, summaryTable(result)); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, headerStyle int, table *dto.ExportTable) error {
	for i, header := range table.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", header, err)
		}
	}

	for r, row := range table.Rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(table.Header[c], value)); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	for i := range table.Header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 15); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func cellValue(column, value string) any {
	if !numericColumns[column] {
		return value
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

func bucketTable(buckets []entities.AggregateBucket) *dto.ExportTable {
	table := &dto.ExportTable{
		Header: []string{"group", "record_count", "forecast_qty", "actual_qty", "difference", "absolute_error", "achievement_rate"},
		Rows:   make([][]string, 0, len(buckets)),
	}
	for _, b := range buckets {
		table.Rows = append(table.Rows, []string{
			b.Label(),
			strconv.Itoa(b.RecordCount),
			strconv.FormatInt(int64(b.ForecastQty), 10),
			strconv.FormatInt(int64(b.ActualQty), 10),
			strconv.FormatInt(int64(b.Difference), 10),
			strconv.FormatInt(int64(b.AbsoluteError), 10),
			services.FormatRate(b.AchievementRate),
		})
	}
	return table
}

func summaryTable(result *dto.QueryResult) *dto.ExportTable {
	s := result.Insight
	return &dto.ExportTable{
		Header: []string{"metric", "value"},
		Rows: [][]string{
			{"dataset_version", result.DatasetVersion},
			{"records", strconv.Itoa(result.MatchedRecords)},
			{"unmatched_forecasts", strconv.Itoa(result.UnmatchedForecasts)},
			{"orphan_actuals", strconv.Itoa(len(result.OrphanActuals))},
			{"total_forecast", strconv.FormatInt(int64(s.TotalForecast), 10)},
			{"total_actual", strconv.FormatInt(int64(s.TotalActual), 10)},
			{"overall_rate", services.FormatRate(s.OverallRate)},
			{"mean_item_rate", services.FormatRate(s.MeanEntityRate)},
			{"under_forecast", strconv.Itoa(s.Counts[entities.UnderForecast])},
			{"in_range", strconv.Itoa(s.Counts[entities.InRange])},
			{"over_forecast", strconv.Itoa(s.Counts[entities.OverForecast])},
			{"unclassified", strconv.Itoa(s.Counts[entities.Unclassified])},
		},
	}
}
