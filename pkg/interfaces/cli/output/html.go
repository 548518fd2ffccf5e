package output

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"qty":    qty,
	"signed": signedQty,
	"rate":   services.FormatRate,
}).ParseFS(templateFS, "templates/report.html"))

// HTMLOptions controls the HTML report
type HTMLOptions struct {
	Export    services.ExportOptions
	QueryTime time.Duration
}

// KeyItem is a record decorated with its code and color for display
type KeyItem struct {
	entities.ReconciledRecord
	Parts entities.ItemParts
}

// TemplateData contains all data for rendering the HTML template
type TemplateData struct {
	*dto.QueryResult
	Title       string
	KeyItems    []KeyItem
	Chart       template.HTML
	QueryTime   string
	GeneratedAt string
	Under       int
	InRange     int
	Over        int
	Excluded    int
}

// WriteHTML renders a self-contained HTML report with a bucket rate chart
func WriteHTML(w io.Writer, result *dto.QueryResult, opts HTMLOptions) error {
	bars, err := BucketBars(result.Buckets, insightConfig(result))
	if err != nil {
		return fmt.Errorf("failed to classify buckets: %w", err)
	}
	chart := NewRateChart(bars, result.Query.HighThreshold)

	delimiter := opts.Export.Delimiter
	if delimiter == "" {
		delimiter = entities.DefaultItemDelimiter
	}
	k := min(result.Query.TopK, len(result.Records))
	keyItems := make([]KeyItem, k)
	for i, r := range result.Records[:k] {
		keyItems[i] = KeyItem{
			ReconciledRecord: r,
			Parts:            entities.DecomposeItemCode(r.ItemCode, delimiter, opts.Export.DefaultColor),
		}
	}

	counts := result.Insight.Counts
	data := &TemplateData{
		QueryResult: result,
		Title:       fmt.Sprintf("Forecast vs Actual Report (%s)", periodLabel(result, ", ")),
		KeyItems:    keyItems,
		Chart:       template.HTML(chart.GenerateSVG(bars, result.Query.LowThreshold, result.Query.HighThreshold)),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Under:       counts[entities.UnderForecast],
		InRange:     counts[entities.InRange],
		Over:        counts[entities.OverForecast],
		Excluded:    counts[entities.Unclassified],
	}
	if opts.QueryTime > 0 {
		data.QueryTime = opts.QueryTime.String()
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
