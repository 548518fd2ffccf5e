package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/domain/repositories"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/tabular"
)

// Default table names
const (
	DefaultForecastTable = "forecast"
	DefaultActualTable   = "actual"
)

// Config holds the database file and table names
type Config struct {
	Path          string
	ForecastTable string
	ActualTable   string
}

// Loader reads both tables from a SQLite database opened read-only
type Loader struct {
	config Config
}

// NewLoader creates a new SQLite loader. Table names must be plain identifiers.
func NewLoader(config Config) (*Loader, error) {
	if config.ForecastTable == "" {
		config.ForecastTable = DefaultForecastTable
	}
	if config.ActualTable == "" {
		config.ActualTable = DefaultActualTable
	}
	if err := tabular.ValidateTableName("source.forecast_table", config.ForecastTable); err != nil {
		return nil, err
	}
	if err := tabular.ValidateTableName("source.actual_table", config.ActualTable); err != nil {
		return nil, err
	}
	return &Loader{config: config}, nil
}

// Verify interface compliance
var _ repositories.DatasetSource = (*Loader)(nil)

// Describe names the source in logs and errors
func (l *Loader) Describe() string {
	return fmt.Sprintf("sqlite:%s", l.config.Path)
}

// Load reads the forecast and actual tables
func (l *Loader) Load(ctx context.Context) (*entities.RawDataset, error) {
	if _, err := os.Stat(l.config.Path); err != nil {
		return nil, apperrors.NewSourceUnavailableError(apperrors.TableForecast, l.config.Path, err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", l.config.Path))
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(apperrors.TableForecast, l.config.Path,
			fmt.Errorf("failed to open database: %w", err))
	}
	defer db.Close()

	forecastRecords, err := l.readTable(ctx, db, apperrors.TableForecast, l.config.ForecastTable)
	if err != nil {
		return nil, err
	}
	forecasts, err := tabular.ForecastRows(l.tableSource(l.config.ForecastTable), forecastRecords)
	if err != nil {
		return nil, err
	}

	actualRecords, err := l.readTable(ctx, db, apperrors.TableActual, l.config.ActualTable)
	if err != nil {
		return nil, err
	}
	actuals, err := tabular.ActualRows(l.tableSource(l.config.ActualTable), actualRecords)
	if err != nil {
		return nil, err
	}

	return &entities.RawDataset{
		Source:    l.Describe(),
		Forecasts: forecasts,
		Actuals:   actuals,
	}, nil
}

func (l *Loader) tableSource(table string) string {
	return fmt.Sprintf("%s:%s", l.config.Path, table)
}

// readTable returns the column names followed by every row as strings
func (l *Loader) readTable(ctx context.Context, db *sql.DB, table, name string) ([][]string, error) {
	source := l.tableSource(name)

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", name))
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, source, fmt.Errorf("failed to query table: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, source, fmt.Errorf("failed to read columns: %w", err))
	}

	records := [][]string{columns}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, apperrors.NewSourceUnavailableError(table, source, fmt.Errorf("failed to scan row: %w", err))
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = tabular.CellString(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, source, fmt.Errorf("failed to iterate rows: %w", err))
	}
	return records, nil
}
