package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/vsinha/forecast-recon/pkg/interfaces/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "generate" {
		if err := runGenerate(ctx, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Command line flags
	var (
		configFile   = flag.String("config", "", "Path to a YAML config file (optional)")
		source       = flag.String("source", "", "Source kind: csv, xlsx, sqlite, postgres")
		scenarioDir  = flag.String("scenario", "", "Directory containing forecast.csv and actual.csv")
		forecastFile = flag.String("forecast", "", "Path to the forecast CSV file")
		actualFile   = flag.String("actual", "", "Path to the actual CSV file")
		sourcePath   = flag.String("path", "", "Path to the xlsx workbook or sqlite database")
		dsn          = flag.String("dsn", "", "PostgreSQL connection string")
		encoding     = flag.String("encoding", "", "Source text encoding, e.g. utf-8, euc-kr, cp949")
		supplyPolicy = flag.String("supply-policy", "", "Rows without supply: DropMissing, LabelAsUnclassified or RetainAsNull")

		periods      = flag.String("periods", "", "Comma separated periods, e.g. 2026-01,2026.2")
		brands       = flag.String("brands", "", "Comma separated brands")
		series       = flag.String("series", "", "Comma separated series")
		supplies     = flag.String("supplies", "", "Comma separated supply channels")
		search       = flag.String("search", "", "Case-insensitive text search")
		sortKey      = flag.String("sort", "", "Sort key: forecast_desc, actual_desc, abs_error_desc, difference_desc, rate_desc, rate_asc")
		limit        = flag.Int("limit", 0, "Maximum records and buckets to show (0 = all)")
		groupBy      = flag.String("group-by", "", "Comma separated dimensions: brand, series, supply, period")
		low          = flag.Float64("low", commands.Unset, "Lower achievement threshold in percent")
		high         = flag.Float64("high", commands.Unset, "Upper achievement threshold in percent")
		topK         = flag.Int("top", commands.Unset, "Entries per insight list")
		zeroForecast = flag.String("zero-forecast", "", "Zero forecast handling: Over or Exclude")

		catalog   = flag.Bool("catalog", false, "List filter options instead of running a query")
		itemParts = flag.Bool("item-parts", false, "Add code and color columns to exports")
		outputDir = flag.String("output", "", "Output directory for results (required for csv, xlsx, html)")
		format    = flag.String("format", "text", "Output format: text, json, csv, xlsx, html")
		noBOM     = flag.Bool("no-bom", false, "Omit the UTF-8 byte order mark in CSV exports")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
		verbose   = flag.Bool("verbose", false, "Enable verbose output")
		help      = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	config := commands.Config{
		ConfigFile:    *configFile,
		Source:        *source,
		ScenarioDir:   *scenarioDir,
		ForecastFile:  *forecastFile,
		ActualFile:    *actualFile,
		SourcePath:    *sourcePath,
		DSN:           *dsn,
		Encoding:      *encoding,
		SupplyPolicy:  *supplyPolicy,
		Periods:       *periods,
		Brands:        *brands,
		Series:        *series,
		Supplies:      *supplies,
		Search:        *search,
		Sort:          *sortKey,
		Limit:         *limit,
		GroupBy:       *groupBy,
		LowThreshold:  *low,
		HighThreshold: *high,
		TopK:          *topK,
		ZeroForecast:  *zeroForecast,
		Catalog:       *catalog,
		ItemParts:     *itemParts,
		OutputDir:     *outputDir,
		Format:        *format,
		NoBOM:         *noBOM,
		LogLevel:      *logLevel,
		Verbose:       *verbose,
		Help:          *help,
	}

	cmd := commands.NewReconCommand(config)
	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		items         = fs.Int("items", 40, "Item codes per period")
		brands        = fs.Int("brands", 3, "Number of brands")
		series        = fs.Int("series", 4, "Series per brand")
		periods       = fs.Int("periods", 3, "Consecutive months to generate")
		start         = fs.String("start", "", "First month, YYYY-MM (default: current month)")
		missingSupply = fs.Float64("missing-supply", 0.05, "Share of forecast rows with an empty supply")
		unmatched     = fs.Float64("unmatched", 0.1, "Share of forecast rows without any actual")
		orphans       = fs.Int("orphans", 2, "Actual rows per period with no forecast")
		noise         = fs.Int("noise", 1, "Junk forecast rows per period")
		encoding      = fs.String("encoding", "utf-8", "Output encoding, e.g. utf-8 or euc-kr")
		outputDir     = fs.String("output", "", "Output directory for forecast.csv and actual.csv")
		seed          = fs.Int64("seed", 0, "Random seed (0 = time based)")
		verbose       = fs.Bool("verbose", false, "Enable verbose output")
		help          = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewGenerateCommand(commands.GenerateConfig{
		Items:         *items,
		Brands:        *brands,
		Series:        *series,
		Periods:       *periods,
		StartPeriod:   *start,
		MissingSupply: *missingSupply,
		Unmatched:     *unmatched,
		Orphans:       *orphans,
		NoiseRows:     *noise,
		Encoding:      *encoding,
		OutputDir:     *outputDir,
		Seed:          *seed,
		Verbose:       *verbose,
		Help:          *help,
	})
	return cmd.Execute(ctx)
}
