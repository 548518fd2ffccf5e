package output

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// RateChart is a horizontal bar chart of achievement rates with the
// classification thresholds drawn as vertical guides
type RateChart struct {
	Width       int
	MarginLeft  int
	MarginTop   int
	MarginRight int
	RowHeight   int
	MaxRate     float64
}

// RateBar is one bar in the chart
type RateBar struct {
	Label          string
	Rate           float64
	ForecastQty    entities.Quantity
	ActualQty      entities.Quantity
	Classification entities.Classification
}

// NewRateChart sizes a chart for the given bars. The scale always shows the
// high threshold with some headroom.
func NewRateChart(bars []RateBar, highThreshold float64) *RateChart {
	maxRate := highThreshold * 1.2
	for _, b := range bars {
		if b.Rate > maxRate {
			maxRate = b.Rate
		}
	}
	return &RateChart{
		Width:       900,
		MarginLeft:  220,
		MarginTop:   40,
		MarginRight: 80,
		RowHeight:   26,
		MaxRate:     math.Ceil(maxRate/10) * 10,
	}
}

// BucketBars classifies buckets for charting
func BucketBars(buckets []entities.AggregateBucket, config services.InsightConfig) ([]RateBar, error) {
	generator, err := services.NewInsightGenerator(config)
	if err != nil {
		return nil, err
	}
	bars := make([]RateBar, len(buckets))
	for i, b := range buckets {
		bars[i] = RateBar{
			Label:          b.Label(),
			Rate:           b.AchievementRate,
			ForecastQty:    b.ForecastQty,
			ActualQty:      b.ActualQty,
			Classification: generator.Classify(b.Measures()),
		}
	}
	return bars, nil
}

// GenerateSVG renders the bars as an SVG document
func (rc *RateChart) GenerateSVG(bars []RateBar, low, high float64) string {
	height := rc.MarginTop + len(bars)*rc.RowHeight + 40
	var svg strings.Builder

	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, rc.Width, height)
	svg.WriteString(`<style>`)
	svg.WriteString(`.label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.value { font-family: Arial, sans-serif; font-size: 11px; fill: #555; }`)
	svg.WriteString(`.guide { stroke: #999; stroke-width: 1; stroke-dasharray: 4 3; }`)
	svg.WriteString(`</style>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, rc.Width, height)

	if len(bars) == 0 {
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="label">No buckets to chart</text>`, rc.MarginLeft, rc.MarginTop)
		svg.WriteString(`</svg>`)
		return svg.String()
	}

	bottom := rc.MarginTop + len(bars)*rc.RowHeight
	for _, guide := range []float64{low, 100, high} {
		x := rc.x(guide)
		fmt.Fprintf(&svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="guide"/>`, x, rc.MarginTop-10, x, bottom)
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="value" text-anchor="middle">%s%%</text>`,
			x, rc.MarginTop-14, services.FormatRate(guide))
	}

	for i, bar := range bars {
		y := rc.MarginTop + i*rc.RowHeight
		width := rc.x(bar.Rate) - rc.MarginLeft
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="label" text-anchor="end">%s</text>`,
			rc.MarginLeft-8, y+rc.RowHeight/2+4, html.EscapeString(bar.Label))
		fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s">`,
			rc.MarginLeft, y+4, width, rc.RowHeight-8, barColor(bar.Classification))
		fmt.Fprintf(&svg, `<title>%s: forecast %d, actual %d</title></rect>`,
			html.EscapeString(bar.Label), bar.ForecastQty, bar.ActualQty)
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="value">%s%%</text>`,
			rc.MarginLeft+width+6, y+rc.RowHeight/2+4, services.FormatRate(bar.Rate))
	}

	svg.WriteString(`</svg>`)
	return svg.String()
}

// x maps a rate onto the horizontal axis
func (rc *RateChart) x(rate float64) int {
	plot := float64(rc.Width - rc.MarginLeft - rc.MarginRight)
	if rc.MaxRate <= 0 {
		return rc.MarginLeft
	}
	clamped := math.Max(0, math.Min(rate, rc.MaxRate))
	return rc.MarginLeft + int(math.Round(clamped/rc.MaxRate*plot))
}

func barColor(c entities.Classification) string {
	switch c {
	case entities.UnderForecast:
		return "#d9534f"
	case entities.OverForecast:
		return "#f0ad4e"
	case entities.InRange:
		return "#5cb85c"
	default:
		return "#999999"
	}
}

// insightConfig rebuilds the classification settings a result was computed with
func insightConfig(result *dto.QueryResult) services.InsightConfig {
	return services.InsightConfigFromQuery(result.Query)
}
