package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

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

// Config holds the connection string and table names
type Config struct {
	DSN           string
	ForecastTable string
	ActualTable   string
}

// Loader reads both tables from PostgreSQL through a connection pool
type Loader struct {
	config Config
	pool   *pgxpool.Pool
}

// NewLoader parses the DSN and creates the pool. Connections are made lazily.
func NewLoader(ctx context.Context, config Config) (*Loader, error) {
	if config.DSN == "" {
		return nil, apperrors.NewInvalidConfigurationError("source.dsn", "", "DSN is required for the postgres source")
	}
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

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, apperrors.NewInvalidConfigurationError("source.dsn", "<redacted>", fmt.Sprintf("failed to parse database config: %v", err))
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &Loader{config: config, pool: pool}, nil
}

// Verify interface compliance
var _ repositories.DatasetSource = (*Loader)(nil)

// Close closes the connection pool
func (l *Loader) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// Describe names the source without exposing credentials
func (l *Loader) Describe() string {
	cfg := l.pool.Config().ConnConfig
	return fmt.Sprintf("postgres:%s/%s", cfg.Host, cfg.Database)
}

// Load reads the forecast and actual tables
func (l *Loader) Load(ctx context.Context) (*entities.RawDataset, error) {
	forecastRecords, err := l.readTable(ctx, apperrors.TableForecast, l.config.ForecastTable)
	if err != nil {
		return nil, err
	}
	forecasts, err := tabular.ForecastRows(l.config.ForecastTable, forecastRecords)
	if err != nil {
		return nil, err
	}

	actualRecords, err := l.readTable(ctx, apperrors.TableActual, l.config.ActualTable)
	if err != nil {
		return nil, err
	}
	actuals, err := tabular.ActualRows(l.config.ActualTable, actualRecords)
	if err != nil {
		return nil, err
	}

	return &entities.RawDataset{
		Source:    l.Describe(),
		Forecasts: forecasts,
		Actuals:   actuals,
	}, nil
}

func (l *Loader) readTable(ctx context.Context, table, name string) ([][]string, error) {
	rows, err := l.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s", name))
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, name, fmt.Errorf("failed to query table: %w", err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.Name
	}

	records := [][]string{header}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.NewSourceUnavailableError(table, name, fmt.Errorf("failed to scan row: %w", err))
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = tabular.CellString(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError(table, name, fmt.Errorf("failed to iterate rows: %w", err))
	}
	return records, nil
}
