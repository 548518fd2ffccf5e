package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	csvrepo "github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/tabular"
)

// GenerateConfig holds configuration for sample data generation
type GenerateConfig struct {
	Items         int     // Item codes per period
	Brands        int     // Number of brands
	Series        int     // Series per brand
	Periods       int     // Consecutive months to generate
	StartPeriod   string  // First month, YYYY-MM
	MissingSupply float64 // Share of forecast rows with an empty supply
	Unmatched     float64 // Share of forecast rows without any actual
	Orphans       int     // Actual rows per period with no forecast
	NoiseRows     int     // Junk forecast rows per period (numeric series, bad quantities)
	Encoding      string  // Output encoding, e.g. utf-8 or euc-kr
	OutputDir     string  // Output directory for forecast.csv and actual.csv
	Seed          int64   // Random seed for reproducible generation
	Help          bool
	Verbose       bool
}

// GenerateCommand writes a sample forecast/actual scenario
type GenerateCommand struct {
	config GenerateConfig
	faker  *gofakeit.Faker
	out    io.Writer
}

var supplies = []string{"direct", "dealer", "online", "export"}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.StartPeriod == "" {
		config.StartPeriod = time.Now().Format("2006-01")
	}
	return &GenerateCommand{
		config: config,
		faker:  gofakeit.New(seed),
		out:    os.Stdout,
	}
}

type sampleItem struct {
	brand  string
	series string
	supply string
	code   string
	name   string
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if err := cmd.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	enc, err := tabular.LookupEncoding(cmd.config.Encoding)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01", cmd.config.StartPeriod)
	if err != nil {
		return fmt.Errorf("invalid start period %q: %w", cmd.config.StartPeriod, err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "🔧 Generating %d items x %d periods (%d brands, %d series each)\n",
			cmd.config.Items, cmd.config.Periods, cmd.config.Brands, cmd.config.Series)
		fmt.Fprintf(cmd.out, "📁 Output directory: %s\n", cmd.config.OutputDir)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	items := cmd.generateItems()
	forecast := [][]string{{"period", "brand", "series", "supply", "item_code", "item_name", "forecast_qty"}}
	actual := [][]string{{"period", "item_code", "actual_qty"}}

	for p := 0; p < cmd.config.Periods; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		period := start.AddDate(0, p, 0).Format("2006-01")
		f, a := cmd.generatePeriod(period, items)
		forecast = append(forecast, f...)
		actual = append(actual, a...)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "📦 Writing %s (%d rows)...\n", csvrepo.ForecastFile, len(forecast)-1)
	}
	if err := writeCSVFile(filepath.Join(cmd.config.OutputDir, csvrepo.ForecastFile), enc, forecast); err != nil {
		return fmt.Errorf("failed to write forecasts: %w", err)
	}
	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "📋 Writing %s (%d rows)...\n", csvrepo.ActualFile, len(actual)-1)
	}
	if err := writeCSVFile(filepath.Join(cmd.config.OutputDir, csvrepo.ActualFile), enc, actual); err != nil {
		return fmt.Errorf("failed to write actuals: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

func (cmd *GenerateCommand) validate() error {
	switch {
	case cmd.config.OutputDir == "":
		return fmt.Errorf("-output is required")
	case cmd.config.Items <= 0 || cmd.config.Brands <= 0 || cmd.config.Series <= 0 || cmd.config.Periods <= 0:
		return fmt.Errorf("items, brands, series and periods must be positive")
	case cmd.config.MissingSupply < 0 || cmd.config.MissingSupply > 1:
		return fmt.Errorf("missing-supply must be between 0 and 1")
	case cmd.config.Unmatched < 0 || cmd.config.Unmatched > 1:
		return fmt.Errorf("unmatched must be between 0 and 1")
	}
	return nil
}

// generateItems builds the item master shared by every period
func (cmd *GenerateCommand) generateItems() []sampleItem {
	f := cmd.faker
	brands := make([]string, cmd.config.Brands)
	for i := range brands {
		brands[i] = f.Company()
	}
	series := make(map[string][]string, len(brands))
	for _, b := range brands {
		for s := 0; s < cmd.config.Series; s++ {
			series[b] = append(series[b], strings.ToUpper(f.Lexify("??"))+f.Numerify("##"))
		}
	}

	seen := make(map[string]bool, cmd.config.Items)
	items := make([]sampleItem, 0, cmd.config.Items)
	for len(items) < cmd.config.Items {
		code := strings.ToUpper(f.Lexify("???")) + f.Numerify("####")
		if f.Number(1, 10) <= 7 {
			code += "-" + strings.ToUpper(f.Color())
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		brand := f.RandomString(brands)
		items = append(items, sampleItem{
			brand:  brand,
			series: f.RandomString(series[brand]),
			supply: f.RandomString(supplies),
			code:   code,
			name:   titleWord(f.Adjective()) + " " + titleWord(f.Noun()),
		})
	}
	return items
}

func (cmd *GenerateCommand) generatePeriod(period string, items []sampleItem) (forecast, actual [][]string) {
	f := cmd.faker
	for _, item := range items {
		qty := f.Number(0, 2000)
		supply := item.supply
		if f.Float64Range(0, 1) < cmd.config.MissingSupply {
			supply = ""
		}
		forecast = append(forecast, []string{period, item.brand, item.series, supply, item.code, item.name, strconv.Itoa(qty)})

		if f.Float64Range(0, 1) < cmd.config.Unmatched {
			continue
		}
		sold := int(math.Round(float64(qty) * f.Float64Range(0.3, 1.6)))
		if qty == 0 {
			sold = f.Number(0, 50)
		}
		// Actuals often arrive split across several order lines
		if sold > 1 && f.Bool() {
			first := f.Number(1, sold)
			actual = append(actual, []string{period, item.code, strconv.Itoa(first)})
			sold -= first
		}
		actual = append(actual, []string{period, item.code, strconv.Itoa(sold)})
	}

	for i := 0; i < cmd.config.Orphans; i++ {
		code := strings.ToUpper(f.Lexify("ZZ?")) + f.Numerify("####")
		actual = append(actual, []string{period, code, strconv.Itoa(f.Number(1, 300))})
	}

	for i := 0; i < cmd.config.NoiseRows; i++ {
		item := items[f.Number(0, len(items)-1)]
		if f.Bool() {
			forecast = append(forecast, []string{period, item.brand, f.Numerify("###"), item.supply, item.code, item.name, "10"})
		} else {
			forecast = append(forecast, []string{period, item.brand, item.series, item.supply, item.code, item.name, "n/a"})
		}
	}
	return forecast, actual
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeCSVFile(path string, enc encoding.Encoding, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := transform.NewWriter(file, enc.NewEncoder())
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return err
	}
	if err := w.Close(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// printHelp displays the help message
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintf(cmd.out, `Generate a sample forecast/actual scenario

USAGE:
    recon generate -output <dir> [options]

OPTIONS:
    -output <dir>            Output directory (required)
    -items <n>               Item codes per period (default: 200)
    -brands <n>              Number of brands (default: 4)
    -series <n>              Series per brand (default: 5)
    -periods <n>             Consecutive months (default: 3)
    -start <YYYY-MM>         First month (default: current month)
    -missing-supply <f>      Share of rows with an empty supply (default: 0.05)
    -unmatched <f>           Share of rows without actuals (default: 0.1)
    -orphans <n>             Actual rows per period without a forecast (default: 3)
    -noise <n>               Junk forecast rows per period (default: 2)
    -encoding <name>         utf-8 or euc-kr (default: utf-8)
    -seed <n>                Random seed for reproducible output
    -verbose                 Enable verbose output

EXAMPLES:
    recon generate -output scenarios/sample -items 500 -periods 6 -seed 42
    recon -scenario scenarios/sample -period 2026-02
`)
}
