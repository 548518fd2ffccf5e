package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/tabular"
)

// Scenario directory file names
const (
	ForecastFile = "forecast.csv"
	ActualFile   = "actual.csv"
)

// Config holds the file locations and decoding settings of a CSV source
type Config struct {
	ForecastPath string
	ActualPath   string
	Encoding     string
	Delimiter    rune
}

// ScenarioConfig returns a config for a directory holding forecast.csv and actual.csv
func ScenarioConfig(dir string) Config {
	return Config{
		ForecastPath: filepath.Join(dir, ForecastFile),
		ActualPath:   filepath.Join(dir, ActualFile),
	}
}

// Loader handles loading forecast and actual tables from CSV files
type Loader struct {
	config Config
}

// NewLoader creates a new CSV loader
func NewLoader(config Config) *Loader {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &Loader{config: config}
}

// Verify interface compliance
var _ repositories.DatasetSource = (*Loader)(nil)

// Describe names the source in logs and errors
func (l *Loader) Describe() string {
	return fmt.Sprintf("csv:%s,%s", l.config.ForecastPath, l.config.ActualPath)
}

// Load reads both tables
func (l *Loader) Load(ctx context.Context) (*entities.RawDataset, error) {
	forecasts, err := l.LoadForecasts(l.config.ForecastPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	actuals, err := l.LoadActuals(l.config.ActualPath)
	if err != nil {
		return nil, err
	}
	return &entities.RawDataset{
		Source:    l.Describe(),
		Forecasts: forecasts,
		Actuals:   actuals,
	}, nil
}

// LoadForecasts loads raw forecast rows from a CSV file
func (l *Loader) LoadForecasts(filename string) ([]entities.RawForecastRow, error) {
	records, err := l.readAll(apperrors.TableForecast, filename)
	if err != nil {
		return nil, err
	}
	return tabular.ForecastRows(filename, records)
}

// LoadActuals loads raw actual rows from a CSV file
func (l *Loader) LoadActuals(filename string) ([]entities.RawActualRow, error) {
	records, err := l.readAll(apperrors.TableActual, filename)
	if err != nil {
		return nil, err
	}
	return tabular.ActualRows(filename, records)
}

func (l *Loader) readAll(table, filename string) ([][]string, error) {
	enc, err := tabular.LookupEncoding(l.config.Encoding)
	if err != nil {
		return nil, apperrors.NewInvalidConfigurationError("source.encoding", l.config.Encoding, err.Error())
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, filename, fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	reader := csv.NewReader(tabular.NewDecodingReader(file, enc))
	reader.Comma = l.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, filename, fmt.Errorf("failed to read CSV: %w", err))
	}
	return records, nil
}
