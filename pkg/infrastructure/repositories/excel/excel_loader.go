package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/tabular"
)

// Default sheet names
const (
	DefaultForecastSheet = "forecast"
	DefaultActualSheet   = "actual"
)

// Config holds the workbook path and sheet names
type Config struct {
	Path          string
	ForecastSheet string
	ActualSheet   string
}

// Loader reads both tables from one xlsx workbook
type Loader struct {
	config Config
}

// NewLoader creates a new workbook loader
func NewLoader(config Config) *Loader {
	if config.ForecastSheet == "" {
		config.ForecastSheet = DefaultForecastSheet
	}
	if config.ActualSheet == "" {
		config.ActualSheet = DefaultActualSheet
	}
	return &Loader{config: config}
}

// Verify interface compliance
var _ repositories.DatasetSource = (*Loader)(nil)

// Describe names the source in logs and errors
func (l *Loader) Describe() string {
	return fmt.Sprintf("xlsx:%s[%s,%s]", l.config.Path, l.config.ForecastSheet, l.config.ActualSheet)
}

// Load reads the forecast and actual sheets
func (l *Loader) Load(ctx context.Context) (*entities.RawDataset, error) {
	f, err := excelize.OpenFile(l.config.Path)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(apperrors.TableForecast, l.config.Path,
			fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	forecastRecords, err := l.sheetRows(f, apperrors.TableForecast, l.config.ForecastSheet)
	if err != nil {
		return nil, err
	}
	forecasts, err := tabular.ForecastRows(l.sheetSource(l.config.ForecastSheet), forecastRecords)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	actualRecords, err := l.sheetRows(f, apperrors.TableActual, l.config.ActualSheet)
	if err != nil {
		return nil, err
	}
	actuals, err := tabular.ActualRows(l.sheetSource(l.config.ActualSheet), actualRecords)
	if err != nil {
		return nil, err
	}

	return &entities.RawDataset{
		Source:    l.Describe(),
		Forecasts: forecasts,
		Actuals:   actuals,
	}, nil
}

func (l *Loader) sheetSource(sheet string) string {
	return fmt.Sprintf("%s[%s]", l.config.Path, sheet)
}

func (l *Loader) sheetRows(f *excelize.File, table, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewSourceUnavailableError(table, l.sheetSource(sheet), fmt.Errorf("sheet not found"))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, l.sheetSource(sheet),
			fmt.Errorf("failed to get rows: %w", err))
	}
	return rows, nil
}
