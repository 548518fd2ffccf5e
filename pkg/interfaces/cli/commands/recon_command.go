package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	domainservices "github.com/vsinha/forecast-recon/pkg/domain/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/config"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/container"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/logging"
	"github.com/vsinha/forecast-recon/pkg/interfaces/cli/output"
)

// Unset marks numeric flags that should fall back to the config file
const Unset = -1

// Config holds configuration for the reconciliation command.
// Empty strings and Unset numbers keep the value from the config file.
type Config struct {
	ConfigFile string

	// Source
	Source       string
	ScenarioDir  string
	ForecastFile string
	ActualFile   string
	SourcePath   string
	DSN          string
	Encoding     string
	SupplyPolicy string

	// Query
	Periods       string
	Brands        string
	Series        string
	Supplies      string
	Search        string
	Sort          string
	Limit         int
	GroupBy       string
	LowThreshold  float64
	HighThreshold float64
	TopK          int
	ZeroForecast  string

	// Output
	Catalog   bool
	ItemParts bool
	OutputDir string
	Format    string
	NoBOM     bool
	LogLevel  string
	Verbose   bool
	Help      bool
}

// ReconCommand loads a dataset once and runs a single query against it
type ReconCommand struct {
	config Config
	out    io.Writer
}

// NewReconCommand creates a new reconciliation command with the given configuration
func NewReconCommand(config Config) *ReconCommand {
	return &ReconCommand{config: config, out: os.Stdout}
}

// Execute runs the reconciliation command
func (c *ReconCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	appConfig, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	query, err := c.buildQuery(appConfig)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	// Library logs go to stderr so stdout stays clean for json output
	logger, err := logging.New(appConfig.Log, os.Stderr)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		c.printHeader(appConfig)
	}

	app, err := container.New(ctx, appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to set up services: %w", err)
	}
	defer app.Close()

	if c.config.Verbose {
		fmt.Fprintln(c.out, "📂 Loading forecast and actual tables...")
	}
	loadStart := time.Now()
	snapshot, err := app.Datasets.Reload(ctx)
	if err != nil {
		return fmt.Errorf("error loading dataset: %w", err)
	}
	if c.config.Verbose {
		report := snapshot.Report
		fmt.Fprintf(c.out, "✅ Data loaded in %v:\n", time.Since(loadStart))
		fmt.Fprintf(c.out, "  Forecast rows: %d kept of %d\n", report.ForecastKept, report.ForecastRows)
		fmt.Fprintf(c.out, "  Actual rows: %d kept of %d\n", report.ActualKept, report.ActualRows)
		fmt.Fprintf(c.out, "  Dropped rows: %d\n\n", len(report.Dropped))
	}

	if c.config.Catalog {
		catalog, err := app.Queries.Catalog(ctx, query.Filter.Brands)
		if err != nil {
			return fmt.Errorf("error building catalog: %w", err)
		}
		return c.printCatalog(catalog)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.out, "🔄 Running reconciliation query...")
	}
	start := time.Now()
	result, err := app.Queries.Execute(ctx, query)
	if err != nil {
		return fmt.Errorf("error running query: %w", err)
	}
	queryTime := time.Since(start)

	if c.config.Verbose {
		fmt.Fprintf(c.out, "✅ Query completed in %v\n\n", queryTime)
	}

	format := c.config.Format
	if format == "" {
		format = output.FormatText
	}
	err = output.Generate(result, output.Config{
		Format:    format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		QueryTime: queryTime,
		Export: services.ExportOptions{
			IncludeItemParts: c.config.ItemParts,
			Delimiter:        appConfig.Normalization.ItemDelimiter,
			DefaultColor:     appConfig.Normalization.DefaultColor,
		},
		CSVBOM: !c.config.NoBOM,
		Stdout: c.out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.out, "🏁 Reconciliation complete!")
	}
	return nil
}

// loadConfig reads the config file and applies the source flags on top
func (c *ReconCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.Read(c.config.ConfigFile)
	if err != nil {
		return nil, err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Source.Kind, c.config.Source)
	override(&cfg.Source.ScenarioDir, c.config.ScenarioDir)
	override(&cfg.Source.ForecastPath, c.config.ForecastFile)
	override(&cfg.Source.ActualPath, c.config.ActualFile)
	override(&cfg.Source.Path, c.config.SourcePath)
	override(&cfg.Source.DSN, c.config.DSN)
	override(&cfg.Source.Encoding, c.config.Encoding)
	override(&cfg.Normalization.SupplyPolicy, c.config.SupplyPolicy)
	override(&cfg.Insight.ZeroForecast, c.config.ZeroForecast)
	override(&cfg.Log.Level, c.config.LogLevel)
	if c.config.LowThreshold != Unset {
		cfg.Insight.LowThreshold = c.config.LowThreshold
	}
	if c.config.HighThreshold != Unset {
		cfg.Insight.HighThreshold = c.config.HighThreshold
	}
	if c.config.TopK != Unset {
		cfg.Insight.TopK = c.config.TopK
	}
	if c.config.Source == "" && (c.config.ScenarioDir != "" || c.config.ForecastFile != "") {
		cfg.Source.Kind = config.SourceCSV
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildQuery turns the query flags into a validated query
func (c *ReconCommand) buildQuery(cfg *config.Config) (dto.Query, error) {
	q := cfg.DefaultQuery()

	for _, raw := range splitList(c.config.Periods) {
		period, err := domainservices.ParsePeriod(raw)
		if err != nil {
			return dto.Query{}, fmt.Errorf("-period: %w", err)
		}
		q.Filter.Periods = append(q.Filter.Periods, period)
	}
	q.Filter.Brands = splitList(c.config.Brands)
	q.Filter.Series = splitList(c.config.Series)
	q.Filter.Supplies = splitList(c.config.Supplies)
	q.Search = c.config.Search

	if c.config.Sort != "" {
		key, err := dto.ParseSortKey(c.config.Sort)
		if err != nil {
			return dto.Query{}, err
		}
		q.Sort = key
	}
	if c.config.GroupBy != "" {
		dims, err := entities.ParseDimensions(c.config.GroupBy)
		if err != nil {
			return dto.Query{}, err
		}
		q.GroupBy = dims
	}
	if c.config.Limit > 0 {
		q.Limit = c.config.Limit
	}

	if err := q.Validate(); err != nil {
		return dto.Query{}, err
	}
	return q, nil
}

func splitList(s string) []string {
	var values []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func (c *ReconCommand) printCatalog(catalog *dto.Catalog) error {
	if c.config.Format == output.FormatJSON {
		return output.WriteJSON(c.out, catalog)
	}
	periods := make([]string, len(catalog.Periods))
	for i, p := range catalog.Periods {
		periods[i] = string(p)
	}
	fmt.Fprintf(c.out, "🗂️  Catalog (dataset %s)\n", catalog.DatasetVersion)
	fmt.Fprintf(c.out, "  Periods:  %s\n", strings.Join(periods, ", "))
	fmt.Fprintf(c.out, "  Brands:   %s\n", strings.Join(catalog.Brands, ", "))
	fmt.Fprintf(c.out, "  Series:   %s\n", strings.Join(catalog.Series, ", "))
	fmt.Fprintf(c.out, "  Supplies: %s\n", strings.Join(catalog.Supplies, ", "))
	if catalog.HasNullSupply {
		fmt.Fprintln(c.out, "  Some rows have no supply channel")
	}
	return nil
}

// printHeader prints the command header information
func (c *ReconCommand) printHeader(cfg *config.Config) {
	fmt.Fprintf(c.out, "🚀 Forecast Reconciliation CLI\n")
	fmt.Fprintf(c.out, "Source: %s\n", cfg.Source.Kind)
	switch {
	case cfg.Source.ScenarioDir != "":
		fmt.Fprintf(c.out, "  Scenario: %s\n", cfg.Source.ScenarioDir)
	case cfg.Source.ForecastPath != "":
		fmt.Fprintf(c.out, "  Forecast: %s\n", cfg.Source.ForecastPath)
		fmt.Fprintf(c.out, "  Actual: %s\n", cfg.Source.ActualPath)
	case cfg.Source.Path != "":
		fmt.Fprintf(c.out, "  Path: %s\n", cfg.Source.Path)
	}
	fmt.Fprintf(c.out, "Supply policy: %s\n", cfg.Normalization.SupplyPolicy)
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

// showHelp displays the help message
func (c *ReconCommand) showHelp() {
	fmt.Fprintf(c.out, `Forecast Reconciliation CLI - compare demand forecasts with actual orders

USAGE:
    recon -scenario <directory> [query options]     # forecast.csv + actual.csv
    recon -forecast <file> -actual <file> ...       # individual CSV files
    recon -source sqlite -path recon.db ...         # xlsx, sqlite or postgres source
    recon -config recon.yaml ...                    # settings from a YAML file
    recon generate -output <dir>                    # write a sample scenario

SOURCE OPTIONS:
    -config <file>          YAML configuration file (RECON_* variables and .env also apply)
    -scenario <dir>         Directory with forecast.csv and actual.csv
    -forecast <file>        Forecast CSV file
    -actual <file>          Actual CSV file
    -source <kind>          csv, xlsx, sqlite or postgres
    -path <file>            Workbook or SQLite database
    -dsn <url>              PostgreSQL connection string
    -encoding <name>        CSV encoding: utf-8, euc-kr, cp949, windows-1251, latin1
    -supply-policy <p>      DropMissing, LabelAsUnclassified or RetainAsNull

QUERY OPTIONS:
    -period <list>          Periods to include, e.g. 2026-01,2026-02
    -brand <list>           Brands to include
    -series <list>          Series to include
    -supply <list>          Supply channels to include
    -search <text>          Case-insensitive match on item code, name or series
    -sort <key>             forecast_desc, actual_desc, abs_error_desc,
                            difference_desc, rate_desc, rate_asc
    -limit <n>              Maximum records and buckets to show
    -group-by <list>        Dimensions: brand, series, supply, period (default: brand,series)
    -low <pct>              Under-forecast threshold (default: 90)
    -high <pct>             Over-forecast threshold (default: 110)
    -top <n>                Entities per insight list (default: 5)
    -zero-forecast <p>      Over or Exclude
    -catalog                List the available filter values and exit

OUTPUT OPTIONS:
    -format <fmt>           text, json, csv, xlsx, html (default: text)
    -output <dir>           Output directory (required for csv, xlsx and html)
    -item-parts             Add code and color columns to exports
    -no-bom                 Write CSV without a UTF-8 byte order mark
    -log-level <level>      debug, info, warn or error
    -verbose                Enable verbose output
    -help                   Show this help message

EXAMPLES:
    recon -scenario scenarios/furniture -period 2026-02 -verbose
    recon -scenario scenarios/furniture -brand A -group-by supply -sort rate_asc
    recon -scenario scenarios/furniture -search chair -format csv -output results/
    recon -source sqlite -path recon.db -format html -output report/
`)
}
