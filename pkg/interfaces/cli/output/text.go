package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// TextOptions controls the human readable report
type TextOptions struct {
	Export    services.ExportOptions
	QueryTime time.Duration
}

var printer = message.NewPrinter(language.English)

// qty formats a quantity with thousands separators
func qty(q entities.Quantity) string {
	return printer.Sprintf("%d", int64(q))
}

func signedQty(q entities.Quantity) string {
	if q > 0 {
		return "+" + qty(q)
	}
	return qty(q)
}

// WriteText renders the result as a prose summary followed by the record,
// bucket and orphan tables
func WriteText(w io.Writer, result *dto.QueryResult, opts TextOptions) error {
	tw := &textWriter{w: w}

	title := fmt.Sprintf("📊 Forecast vs Actual Report (%s)", periodLabel(result, ", "))
	tw.printf("%s\n%s\n\n", title, strings.Repeat("=", 48))
	tw.printf("Dataset version: %s\n", result.DatasetVersion)
	tw.printf("Records: %d (%d without actuals)\n", result.MatchedRecords, result.UnmatchedForecasts)
	tw.printf("Buckets: %d\n", result.MatchedBuckets)
	if opts.QueryTime > 0 {
		tw.printf("Query time: %v\n", opts.QueryTime)
	}
	tw.printf("\n")

	if result.Empty() {
		tw.printf("No forecast rows match the current filters.\n")
		return tw.err
	}

	writeSummary(tw, result.Insight)
	writeKeyItems(tw, result, opts.Export)
	writeInsightList(tw, "⚠️  Largest discrepancies", result.Insight.LargestDiscrepancies)
	writeInsightList(tw, "📉 Under-forecast", result.Insight.UnderForecast)
	writeInsightList(tw, "📈 Over-forecast", result.Insight.OverForecast)
	writeRecords(tw, result.Records)
	writeBuckets(tw, result.Buckets)
	writeOrphans(tw, result.OrphanActuals)
	writeNormalization(tw, result.Normalization)
	return tw.err
}

func writeSummary(tw *textWriter, s dto.InsightSummary) {
	tw.printf("💡 Summary\n")
	tw.printf("1. Totals: forecast %s, actual %s (difference %s).\n",
		qty(s.TotalForecast), qty(s.TotalActual), signedQty(s.TotalDifference))
	tw.printf("2. Achievement: %s%% overall (total actual / total forecast); %s%% mean per item (unweighted).\n",
		services.FormatRate(s.OverallRate), services.FormatRate(s.MeanEntityRate))
	switch {
	case s.TotalForecast == 0:
		tw.printf("   No forecast volume in scope.\n")
	case s.OverallRate < s.LowThreshold:
		tw.printf("   Actuals trail the forecast; check supply plans.\n")
	case s.OverallRate > s.HighThreshold:
		tw.printf("   Actuals exceed the forecast; check for shortages.\n")
	default:
		tw.printf("   Actuals are on target.\n")
	}
	tw.printf("3. Classification (under < %s%% <= in range <= %s%% < over): under %d, in range %d, over %d, unclassified %d.\n\n",
		services.FormatRate(s.LowThreshold), services.FormatRate(s.HighThreshold),
		s.Counts[entities.UnderForecast], s.Counts[entities.InRange],
		s.Counts[entities.OverForecast], s.Counts[entities.Unclassified])
}

// writeKeyItems describes the first records in display order, decorated with
// the item code parts
func writeKeyItems(tw *textWriter, result *dto.QueryResult, export services.ExportOptions) {
	k := min(result.Query.TopK, len(result.Records))
	if k == 0 {
		return
	}
	delimiter := export.Delimiter
	if delimiter == "" {
		delimiter = entities.DefaultItemDelimiter
	}

	tw.printf("🔍 Key items (top %d)\n", k)
	for i, r := range result.Records[:k] {
		parts := entities.DecomposeItemCode(r.ItemCode, delimiter, export.DefaultColor)
		tw.printf("%d. %s (%s)\n", i+1, r.ItemName, r.Series)
		tw.printf("   • code %s | color %s\n", parts.Code, parts.Color)
		tw.printf("   • forecast %s vs actual %s (%s%%)\n",
			qty(r.ForecastQty), qty(r.ActualQty), services.FormatRate(r.AchievementRate))
	}
	tw.printf("\n")
}

func writeInsightList(tw *textWriter, title string, entries []dto.InsightEntry) {
	if len(entries) == 0 {
		return
	}
	tw.printf("%s:\n", title)
	for i, e := range entries {
		label := e.Label
		if e.ItemCode != "" {
			label = fmt.Sprintf("%s [%s]", e.Label, e.ItemCode)
		}
		tw.printf("  %d. %-30s forecast %10s  actual %10s  diff %10s  rate %6s%%\n",
			i+1, label, qty(e.ForecastQty), qty(e.ActualQty), signedQty(e.Difference),
			services.FormatRate(e.AchievementRate))
	}
	tw.printf("\n")
}

func writeRecords(tw *textWriter, records []entities.ReconciledRecord) {
	if len(records) == 0 {
		return
	}
	tw.printf("📋 Records:\n")
	tw.printf("%-8s %-10s %-10s %-8s %-15s %-20s %10s %10s %10s %8s\n",
		"Period", "Brand", "Series", "Supply", "Item Code", "Item Name", "Forecast", "Actual", "Diff", "Rate")
	tw.printf("%-8s %-10s %-10s %-8s %-15s %-20s %10s %10s %10s %8s\n",
		"--------", "----------", "----------", "--------", "---------------", "--------------------",
		"----------", "----------", "----------", "--------")
	for _, r := range records {
		tw.printf("%-8s %-10s %-10s %-8s %-15s %-20s %10s %10s %10s %8s\n",
			r.Period, r.Brand, r.Series, r.Supply, r.ItemCode, r.ItemName,
			qty(r.ForecastQty), qty(r.ActualQty), signedQty(r.Difference),
			services.FormatRate(r.AchievementRate))
	}
	tw.printf("\n")
}

func writeBuckets(tw *textWriter, buckets []entities.AggregateBucket) {
	if len(buckets) == 0 {
		return
	}
	tw.printf("📦 Buckets:\n")
	tw.printf("%-30s %8s %10s %10s %10s %8s\n", "Group", "Rows", "Forecast", "Actual", "Diff", "Rate")
	tw.printf("%-30s %8s %10s %10s %10s %8s\n",
		"------------------------------", "--------", "----------", "----------", "----------", "--------")
	for _, b := range buckets {
		tw.printf("%-30s %8d %10s %10s %10s %8s\n",
			b.Label(), b.RecordCount, qty(b.ForecastQty), qty(b.ActualQty), signedQty(b.Difference),
			services.FormatRate(b.AchievementRate))
	}
	tw.printf("\n")
}

func writeOrphans(tw *textWriter, orphans []dto.OrphanActual) {
	if len(orphans) == 0 {
		return
	}
	tw.printf("🔗 Actuals without a forecast: %d\n", len(orphans))
	for _, o := range orphans {
		tw.printf("  %-8s %-15s %10s (%d rows)\n", o.Period, o.ItemCode, qty(o.ActualQty), o.Rows)
	}
	tw.printf("\n")
}

func writeNormalization(tw *textWriter, report *entities.NormalizationReport) {
	if report == nil || len(report.Dropped) == 0 {
		return
	}
	tw.printf("🧹 Dropped rows: %d\n", len(report.Dropped))
	for _, rc := range report.CountsByReason() {
		tw.printf("  %-8s %-40s %d\n", rc.Table, rc.Reason, rc.Count)
	}
	tw.printf("\n")
}

// textWriter keeps the first write error so the report reads top to bottom
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}
