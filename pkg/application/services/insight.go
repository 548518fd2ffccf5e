package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// Summarizable is a Rankable that can identify itself in insight lists
type Summarizable interface {
	Rankable
	Ref() entities.EntityRef
}

// InsightConfig holds classification thresholds and list sizes
type InsightConfig struct {
	LowThreshold  float64
	HighThreshold float64
	TopK          int
	ZeroForecast  entities.ZeroForecastPolicy
}

// InsightConfigFromQuery extracts the insight settings of a query
func InsightConfigFromQuery(q dto.Query) InsightConfig {
	return InsightConfig{
		LowThreshold:  q.LowThreshold,
		HighThreshold: q.HighThreshold,
		TopK:          q.TopK,
		ZeroForecast:  q.ZeroForecast,
	}
}

// InsightGenerator classifies entities and builds summaries
type InsightGenerator struct {
	config InsightConfig
}

// NewInsightGenerator creates a new insight generator
func NewInsightGenerator(config InsightConfig) (*InsightGenerator, error) {
	if err := dto.ValidateThresholds(config.LowThreshold, config.HighThreshold); err != nil {
		return nil, err
	}
	if config.TopK < 0 {
		config.TopK = 0
	}
	return &InsightGenerator{config: config}, nil
}

// Classify places one entity relative to the thresholds:
// under < low <= in range <= high < over
func (g *InsightGenerator) Classify(m entities.Measures) entities.Classification {
	if m.ForecastQty == 0 {
		if g.config.ZeroForecast == entities.ZeroForecastExclude {
			return entities.Unclassified
		}
		if m.ActualQty > 0 {
			return entities.OverForecast
		}
		return entities.InRange
	}
	switch {
	case m.AchievementRate < g.config.LowThreshold:
		return entities.UnderForecast
	case m.AchievementRate > g.config.HighThreshold:
		return entities.OverForecast
	default:
		return entities.InRange
	}
}

// SummarizeRows builds the summary of any rankable rows
func SummarizeRows[T Summarizable](g *InsightGenerator, rows []T) dto.InsightSummary {
	entries := make([]dto.InsightEntry, len(rows))
	for i, row := range rows {
		m := row.Measures()
		entries[i] = dto.InsightEntry{
			EntityRef:      row.Ref(),
			Measures:       m,
			Classification: g.Classify(m),
		}
	}
	return g.Summarize(entries)
}

// Summarize computes totals, classification counts and the ranked lists.
// Entries must already carry their classification.
func (g *InsightGenerator) Summarize(entries []dto.InsightEntry) dto.InsightSummary {
	summary := dto.InsightSummary{
		EntityCount:   len(entries),
		LowThreshold:  g.config.LowThreshold,
		HighThreshold: g.config.HighThreshold,
		Counts: map[entities.Classification]int{
			entities.UnderForecast: 0,
			entities.InRange:       0,
			entities.OverForecast:  0,
			entities.Unclassified:  0,
		},
	}

	rateSum := decimal.Zero
	var under, over []dto.InsightEntry
	for _, e := range entries {
		summary.TotalForecast += e.ForecastQty
		summary.TotalActual += e.ActualQty
		rateSum = rateSum.Add(decimal.NewFromFloat(e.AchievementRate))
		summary.Counts[e.Classification]++

		switch e.Classification {
		case entities.UnderForecast:
			under = append(under, e)
		case entities.OverForecast:
			over = append(over, e)
		}
	}
	summary.TotalDifference = summary.TotalActual - summary.TotalForecast
	summary.OverallRate = AchievementRate(summary.TotalActual, summary.TotalForecast)
	if len(entries) > 0 {
		summary.MeanEntityRate = rateSum.Div(decimal.NewFromInt(int64(len(entries)))).Round(1).InexactFloat64()
	}

	largest := append([]dto.InsightEntry(nil), entries...)
	sort.SliceStable(largest, func(i, j int) bool {
		return largest[i].AbsoluteError > largest[j].AbsoluteError
	})
	sort.SliceStable(under, func(i, j int) bool {
		return under[i].AchievementRate < under[j].AchievementRate
	})
	sort.SliceStable(over, func(i, j int) bool {
		return overRank(over[i].Measures) > overRank(over[j].Measures)
	})

	summary.LargestDiscrepancies = topK(largest, g.config.TopK)
	summary.UnderForecast = topK(under, g.config.TopK)
	summary.OverForecast = topK(over, g.config.TopK)
	return summary
}

// overRank orders over-forecast entities; a zero forecast with sales is the most extreme
func overRank(m entities.Measures) float64 {
	if m.ForecastQty == 0 {
		return math.Inf(1)
	}
	return m.AchievementRate
}

func topK(entries []dto.InsightEntry, k int) []dto.InsightEntry {
	n := min(max(k, 0), len(entries))
	out := make([]dto.InsightEntry, n)
	copy(out, entries[:n])
	return out
}
