// Package config loads engine settings from a YAML file, a .env file and
// RECON_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/logging"
)

// Source kinds
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Config is the complete engine configuration
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Normalization NormalizationConfig `yaml:"normalization"`
	Insight       InsightConfig       `yaml:"insight"`
	Cache         CacheConfig         `yaml:"cache"`
	Aggregation   AggregationConfig   `yaml:"aggregation"`
	Server        ServerConfig        `yaml:"server"`
	Log           logging.Config      `yaml:"log"`
}

// SourceConfig selects where the two raw tables come from
type SourceConfig struct {
	Kind          string `yaml:"kind"`
	ScenarioDir   string `yaml:"scenario_dir"`
	ForecastPath  string `yaml:"forecast_path"`
	ActualPath    string `yaml:"actual_path"`
	Encoding      string `yaml:"encoding"`
	Delimiter     string `yaml:"delimiter"`
	Path          string `yaml:"path"`
	DSN           string `yaml:"dsn"`
	ForecastTable string `yaml:"forecast_table"`
	ActualTable   string `yaml:"actual_table"`
}

// NormalizationConfig holds the row cleaning policy and item code decorator
type NormalizationConfig struct {
	SupplyPolicy      string `yaml:"supply_policy"`
	UnclassifiedLabel string `yaml:"unclassified_label"`
	ItemDelimiter     string `yaml:"item_delimiter"`
	DefaultColor      string `yaml:"default_color"`
}

// InsightConfig holds the query defaults for classification
type InsightConfig struct {
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`
	TopK          int     `yaml:"top_k"`
	ZeroForecast  string  `yaml:"zero_forecast"`
}

// CacheConfig bounds the query cache; negative disables it
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// AggregationConfig tunes concurrent partition reduction
type AggregationConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold"`
	Workers           int `yaml:"workers"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	Gzip      bool    `yaml:"gzip"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:      SourceCSV,
			Encoding:  "utf-8",
			Delimiter: ",",
		},
		Normalization: NormalizationConfig{
			SupplyPolicy:      entities.DropMissing.String(),
			UnclassifiedLabel: "unclassified",
			ItemDelimiter:     entities.DefaultItemDelimiter,
			DefaultColor:      "default",
		},
		Insight: InsightConfig{
			LowThreshold:  dto.DefaultLowThreshold,
			HighThreshold: dto.DefaultHighThreshold,
			TopK:          dto.DefaultTopK,
			ZeroForecast:  entities.ZeroForecastOver.String(),
		},
		Cache: CacheConfig{MaxEntries: 128},
		Aggregation: AggregationConfig{
			ParallelThreshold: 50000,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 20,
			RateBurst: 40,
			Gzip:      true,
		},
		Log: logging.Config{Level: "info", Format: "json"},
	}
}

// Load reads the configuration and validates it
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, the YAML file at path (optional),
// a .env file in the working directory (optional) and the environment.
// The result is not validated so callers can layer flags on top.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides values from RECON_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, apperrors.NewInvalidConfigurationError(key, v, "not a number"))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, apperrors.NewInvalidConfigurationError(key, v, "not an integer"))
				return
			}
			*dst = n
		}
	}

	str("RECON_SOURCE_KIND", &c.Source.Kind)
	str("RECON_SCENARIO_DIR", &c.Source.ScenarioDir)
	str("RECON_FORECAST_PATH", &c.Source.ForecastPath)
	str("RECON_ACTUAL_PATH", &c.Source.ActualPath)
	str("RECON_SOURCE_PATH", &c.Source.Path)
	str("RECON_ENCODING", &c.Source.Encoding)
	str("DATABASE_URL", &c.Source.DSN)
	str("RECON_DATABASE_URL", &c.Source.DSN)
	str("RECON_SUPPLY_POLICY", &c.Normalization.SupplyPolicy)
	str("RECON_UNCLASSIFIED_LABEL", &c.Normalization.UnclassifiedLabel)
	num("RECON_LOW_THRESHOLD", &c.Insight.LowThreshold)
	num("RECON_HIGH_THRESHOLD", &c.Insight.HighThreshold)
	integer("RECON_TOP_K", &c.Insight.TopK)
	str("RECON_ZERO_FORECAST", &c.Insight.ZeroForecast)
	integer("RECON_CACHE_ENTRIES", &c.Cache.MaxEntries)
	integer("RECON_PARALLEL_THRESHOLD", &c.Aggregation.ParallelThreshold)
	str("RECON_SERVER_ADDR", &c.Server.Addr)
	num("RECON_RATE_LIMIT", &c.Server.RateLimit)
	integer("RECON_RATE_BURST", &c.Server.RateBurst)
	str("RECON_LOG_LEVEL", &c.Log.Level)
	str("RECON_LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.ScenarioDir == "" && (c.Source.ForecastPath == "" || c.Source.ActualPath == "") {
			return apperrors.NewInvalidConfigurationError("source", c.Source.Kind,
				"csv source needs scenario_dir or both forecast_path and actual_path")
		}
		if len([]rune(c.Source.Delimiter)) > 1 {
			return apperrors.NewInvalidConfigurationError("source.delimiter", c.Source.Delimiter, "must be a single character")
		}
	case SourceXLSX, SourceSQLite:
		if c.Source.Path == "" {
			return apperrors.NewInvalidConfigurationError("source.path", "", c.Source.Kind+" source needs a path")
		}
	case SourcePostgres:
		if c.Source.DSN == "" {
			return apperrors.NewInvalidConfigurationError("source.dsn", "", "postgres source needs a DSN")
		}
	default:
		return apperrors.NewInvalidConfigurationError("source.kind", c.Source.Kind, "expected csv, xlsx, sqlite or postgres")
	}

	if _, err := c.SupplyPolicy(); err != nil {
		return apperrors.NewInvalidConfigurationError("normalization.supply_policy", c.Normalization.SupplyPolicy, err.Error())
	}
	if _, err := c.ZeroForecastPolicy(); err != nil {
		return apperrors.NewInvalidConfigurationError("insight.zero_forecast", c.Insight.ZeroForecast, err.Error())
	}
	if err := dto.ValidateThresholds(c.Insight.LowThreshold, c.Insight.HighThreshold); err != nil {
		return err
	}
	if c.Insight.TopK < 0 {
		return apperrors.NewInvalidConfigurationError("insight.top_k", c.Insight.TopK, "must be >= 0")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return apperrors.NewInvalidConfigurationError("server.rate_limit", c.Server.RateLimit, "must be >= 0")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return apperrors.NewInvalidConfigurationError("log.level", c.Log.Level, err.Error())
	}
	return nil
}

// SupplyPolicy returns the parsed supply policy
func (c *Config) SupplyPolicy() (entities.SupplyPolicy, error) {
	return entities.ParseSupplyPolicy(c.Normalization.SupplyPolicy)
}

// ZeroForecastPolicy returns the parsed zero-forecast policy
func (c *Config) ZeroForecastPolicy() (entities.ZeroForecastPolicy, error) {
	return entities.ParseZeroForecastPolicy(c.Insight.ZeroForecast)
}

// DelimiterRune returns the CSV delimiter, ',' when unset
func (c SourceConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}

// DefaultQuery returns a query carrying the configured insight defaults
func (c *Config) DefaultQuery() dto.Query {
	q := dto.DefaultQuery()
	q.LowThreshold = c.Insight.LowThreshold
	q.HighThreshold = c.Insight.HighThreshold
	q.TopK = c.Insight.TopK
	if policy, err := c.ZeroForecastPolicy(); err == nil {
		q.ZeroForecast = policy
	}
	return q
}
