package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/repositories/csv"
)

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	forecast := "ym,brand,series,supply,combo,name,forecast\n" +
		"2026-02,A,T60,X,C1-RED,Chair,1000\n" +
		"2026-02,A,T60,X,C2-BLUE,Table,100\n" +
		"2026-02,B,K10,Y,C5,Lamp,300\n" +
		"2026-02,B,7,Y,C6,Noise,10\n"
	actual := "ym,combo,actual\n" +
		"2026-02,C1-RED,500\n" +
		"2026-02,C1-RED,450\n" +
		"2026-02,C2-BLUE,150\n" +
		"2026-02,C9,70\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, csv.ForecastFile), []byte(forecast), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, csv.ActualFile), []byte(actual), 0o644))
	return dir
}

func baseConfig(dir string) Config {
	return Config{
		ScenarioDir:   dir,
		LowThreshold:  Unset,
		HighThreshold: Unset,
		TopK:          Unset,
		LogLevel:      "error",
	}
}

func TestReconCommand_JSON(t *testing.T) {
	config := baseConfig(writeScenario(t))
	config.Format = "json"
	config.GroupBy = "brand"

	var out bytes.Buffer
	cmd := NewReconCommand(config)
	cmd.out = &out
	require.NoError(t, cmd.Execute(context.Background()))

	var result dto.QueryResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 3, result.MatchedRecords)
	assert.Equal(t, 1, result.UnmatchedForecasts)
	require.Len(t, result.Buckets, 2)
	assert.Equal(t, "A", result.Buckets[0].Key.Brand)
	assert.Equal(t, 100.0, result.Buckets[0].AchievementRate)
	require.Len(t, result.OrphanActuals, 1)
	assert.Equal(t, 1, result.Normalization.DroppedCount("forecast"))
}

func TestReconCommand_TextWithFilters(t *testing.T) {
	config := baseConfig(writeScenario(t))
	config.Brands = "A"
	config.Search = "chair"
	config.Periods = "2026.2"

	var out bytes.Buffer
	cmd := NewReconCommand(config)
	cmd.out = &out
	require.NoError(t, cmd.Execute(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Forecast vs Actual Report (2026-02)")
	assert.Contains(t, text, "Records: 1 (0 without actuals)")
	assert.Contains(t, text, "code C1 | color RED")
}

func TestReconCommand_CSVExport(t *testing.T) {
	config := baseConfig(writeScenario(t))
	config.Format = "csv"
	config.OutputDir = t.TempDir()
	config.Periods = "2026-02"
	config.ItemParts = true
	config.NoBOM = true

	cmd := NewReconCommand(config)
	cmd.out = &bytes.Buffer{}
	require.NoError(t, cmd.Execute(context.Background()))

	data, err := os.ReadFile(filepath.Join(config.OutputDir, "analysis_2026-02.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "period,brand"))
	assert.True(t, strings.HasSuffix(lines[1], ",C1,RED"))
}

func TestReconCommand_Catalog(t *testing.T) {
	config := baseConfig(writeScenario(t))
	config.Catalog = true
	config.Format = "json"

	var out bytes.Buffer
	cmd := NewReconCommand(config)
	cmd.out = &out
	require.NoError(t, cmd.Execute(context.Background()))

	var catalog dto.Catalog
	require.NoError(t, json.Unmarshal(out.Bytes(), &catalog))
	assert.Equal(t, []string{"A", "B"}, catalog.Brands)
	assert.Equal(t, []string{"K10", "T60"}, catalog.Series)
}

func TestReconCommand_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no source", func(c *Config) { c.ScenarioDir = "" }},
		{"bad sort", func(c *Config) { c.Sort = "alphabetical" }},
		{"bad group by", func(c *Config) { c.GroupBy = "color" }},
		{"bad period", func(c *Config) { c.Periods = "February" }},
		{"inverted thresholds", func(c *Config) { c.LowThreshold = 120; c.HighThreshold = 80 }},
		{"bad supply policy", func(c *Config) { c.SupplyPolicy = "keep" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := baseConfig(writeScenario(t))
			tt.mutate(&config)
			cmd := NewReconCommand(config)
			cmd.out = &bytes.Buffer{}
			if err := cmd.Execute(context.Background()); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerateCommand(GenerateConfig{
		Items:       20,
		Brands:      2,
		Series:      3,
		Periods:     2,
		StartPeriod: "2026-01",
		Unmatched:   0.2,
		Orphans:     2,
		NoiseRows:   1,
		OutputDir:   dir,
		Seed:        42,
	})
	gen.out = &bytes.Buffer{}
	require.NoError(t, gen.Execute(context.Background()))

	config := baseConfig(dir)
	config.Format = "json"
	var out bytes.Buffer
	cmd := NewReconCommand(config)
	cmd.out = &out
	require.NoError(t, cmd.Execute(context.Background()))

	var result dto.QueryResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.LessOrEqual(t, result.MatchedRecords, 40)
	assert.Equal(t, 4, len(result.OrphanActuals))
	assert.Equal(t, 2, result.Normalization.DroppedCount("forecast"))
}

func TestGenerateCommand_Reproducible(t *testing.T) {
	run := func() []byte {
		dir := t.TempDir()
		gen := NewGenerateCommand(GenerateConfig{
			Items: 5, Brands: 1, Series: 1, Periods: 1, StartPeriod: "2026-03", OutputDir: dir, Seed: 7,
		})
		gen.out = &bytes.Buffer{}
		require.NoError(t, gen.Execute(context.Background()))
		data, err := os.ReadFile(filepath.Join(dir, csv.ForecastFile))
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, run(), run())
}

func TestGenerateCommand_Validation(t *testing.T) {
	gen := NewGenerateCommand(GenerateConfig{Items: 5, Brands: 1, Series: 1, Periods: 1})
	gen.out = &bytes.Buffer{}
	assert.Error(t, gen.Execute(context.Background()), "output directory is required")
}
