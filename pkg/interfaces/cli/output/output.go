package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Formats lists every supported output format
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatXLSX, FormatHTML}

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	QueryTime time.Duration
	Export    services.ExportOptions
	// CSVBOM prefixes CSV output with a UTF-8 byte order mark so spreadsheet
	// tools detect the encoding
	CSVBOM bool
	Stdout io.Writer
}

// Generate renders result in the configured format. Text and JSON go to
// stdout unless an output directory is set; csv, xlsx and html need one.
func Generate(result *dto.QueryResult, config Config) error {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}

	switch config.Format {
	case FormatText, "":
		return emit(config, FormatText, func(w io.Writer) error {
			return WriteText(w, result, TextOptions{Export: config.Export, QueryTime: config.QueryTime})
		})
	case FormatJSON:
		return emit(config, FormatJSON, func(w io.Writer) error {
			return WriteJSON(w, result)
		})
	case FormatCSV:
		table := services.Export(result.Records, config.Export)
		return emitFile(config, result, FormatCSV, func(w io.Writer) error {
			return WriteCSV(w, table, config.CSVBOM)
		})
	case FormatXLSX:
		table := services.Export(result.Records, config.Export)
		return emitFile(config, result, FormatXLSX, func(w io.Writer) error {
			return WriteXLSX(w, result, table)
		})
	case FormatHTML:
		return emitFile(config, result, FormatHTML, func(w io.Writer) error {
			return WriteHTML(w, result, HTMLOptions{Export: config.Export, QueryTime: config.QueryTime})
		})
	default:
		return fmt.Errorf("unsupported output format: %s (expected one of %s)", config.Format, strings.Join(Formats, ", "))
	}
}

// FileName names an output file after the queried period, e.g. analysis_2026-02.csv
func FileName(result *dto.QueryResult, format string) string {
	return fmt.Sprintf("analysis_%s.%s", periodLabel(result, "_"), format)
}

func emit(config Config, format string, write func(io.Writer) error) error {
	if config.OutputDir == "" {
		return write(config.Stdout)
	}
	filename := filepath.Join(config.OutputDir, "recon_results."+format)
	if format == FormatText {
		filename = filepath.Join(config.OutputDir, "recon_results.txt")
	}
	return writeFile(config, filename, write)
}

func emitFile(config Config, result *dto.QueryResult, format string, write func(io.Writer) error) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for %s format", format)
	}
	return writeFile(config, filepath.Join(config.OutputDir, FileName(result, format)), write)
}

func writeFile(config Config, filename string, write func(io.Writer) error) error {
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}

	if config.Verbose {
		fmt.Fprintf(config.Stdout, "💾 Results saved to: %s\n", filename)
	}
	return nil
}

// periodLabel names the queried periods; "all" when the query has no period filter
func periodLabel(result *dto.QueryResult, sep string) string {
	if result == nil || len(result.Query.Filter.Periods) == 0 {
		return "all"
	}
	parts := make([]string, len(result.Query.Filter.Periods))
	for i, p := range result.Query.Filter.Periods {
		parts[i] = string(p)
	}
	return strings.Join(parts, sep)
}
