package main

import (
	"context"
	"fmt"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/logging"
	"github.com/vsinha/forecast-recon/pkg/recon"
)

func main() {
	ctx := context.Background()

	// Forecasts and actuals for one month of a small furniture catalog
	source := &recon.StaticSource{Name: "example"}
	source.AddForecast("2026-03", "Nordhaus", "T60", "dealer", "C1-RED", "Dining chair", "1,000")
	source.AddForecast("2026-03", "Nordhaus", "T60", "dealer", "C2-OAK", "Dining table", "250")
	source.AddForecast("2026-03", "Lumen", "K10", "online", "L7", "Floor lamp", "400")
	source.AddActual("2026-03", "C1-RED", "620")
	source.AddActual("2026-03", "C1-RED", "410")
	source.AddActual("2026-03", "L7", "180")
	source.AddActual("2026-03", "X9", "35")

	config := recon.DefaultEngineConfig()
	config.Logger = logging.Discard()
	engine := recon.NewEngineWithConfig(source, config)

	fmt.Println("📥 Loading forecast and actual rows...")
	snapshot, err := engine.Load(ctx)
	if err != nil {
		fmt.Printf("❌ Load failed: %v\n", err)
		return
	}
	fmt.Printf("  Dataset version: %s\n", snapshot.Version)
	fmt.Println()

	q := dto.DefaultQuery()
	q.GroupBy = []entities.Dimension{entities.DimensionBrand}
	result, err := engine.Query(ctx, q)
	if err != nil {
		fmt.Printf("❌ Query failed: %v\n", err)
		return
	}

	fmt.Println("📊 Records:")
	for _, r := range result.Records {
		status := "matched"
		if !r.Matched {
			status = "no actuals"
		}
		fmt.Printf("  %s %s: forecast %d, actual %d, rate %.1f%% (%s)\n",
			r.Period, r.ItemCode, r.ForecastQty, r.ActualQty, r.AchievementRate, status)
	}
	fmt.Println()

	fmt.Println("🏷️  By brand:")
	for _, b := range result.Buckets {
		fmt.Printf("  %s: %.1f%% of forecast across %d items\n", b.Key.Brand, b.AchievementRate, b.RecordCount)
	}
	fmt.Println()

	summary := result.Insight
	fmt.Printf("📈 Overall achievement %.1f%%, mean per item %.1f%%\n", summary.OverallRate, summary.MeanEntityRate)
	for _, e := range summary.UnderForecast {
		fmt.Printf("  ⚠️  Under forecast: %s (%.1f%%)\n", e.Label, e.AchievementRate)
	}
	for _, o := range result.OrphanActuals {
		fmt.Printf("  🔗 Sold without a forecast: %s %s (%d)\n", o.Period, o.ItemCode, o.ActualQty)
	}
}
