package dto

import (
	"maps"
	"slices"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

// OrphanActual is an actual key with no forecast row in the queried periods.
// Orphans never enter the reconciled view; they are reported for transparency.
type OrphanActual struct {
	Period    entities.Period   `json:"period"`
	ItemCode  entities.ItemCode `json:"item_code"`
	ActualQty entities.Quantity `json:"actual_qty"`
	Rows      int               `json:"rows"`
}

// InsightEntry is one entity in an insight ranking
type InsightEntry struct {
	entities.EntityRef
	entities.Measures
	Classification entities.Classification `json:"classification"`
}

// InsightSummary is the structured narrative of a result set.
// Rendering it as prose is left to the output layer.
type InsightSummary struct {
	EntityCount          int                             `json:"entity_count"`
	TotalForecast        entities.Quantity               `json:"total_forecast"`
	TotalActual          entities.Quantity               `json:"total_actual"`
	TotalDifference      entities.Quantity               `json:"total_difference"`
	OverallRate          float64                         `json:"overall_rate"`
	MeanEntityRate       float64                         `json:"mean_entity_rate"`
	LowThreshold         float64                         `json:"low_threshold"`
	HighThreshold        float64                         `json:"high_threshold"`
	Counts               map[entities.Classification]int `json:"counts"`
	LargestDiscrepancies []InsightEntry                  `json:"largest_discrepancies"`
	UnderForecast        []InsightEntry                  `json:"under_forecast"`
	OverForecast         []InsightEntry                  `json:"over_forecast"`
}

// QueryResult is everything one query produces.
// Records and Buckets are truncated to the query limit; MatchedRecords,
// MatchedBuckets and both insights cover everything before truncation.
type QueryResult struct {
	DatasetVersion     string                        `json:"dataset_version"`
	DataLoaded         bool                          `json:"data_loaded"`
	Query              Query                         `json:"query"`
	Records            []entities.ReconciledRecord   `json:"records"`
	MatchedRecords     int                           `json:"matched_records"`
	UnmatchedForecasts int                           `json:"unmatched_forecasts"`
	Buckets            []entities.AggregateBucket    `json:"buckets"`
	MatchedBuckets     int                           `json:"matched_buckets"`
	Insight            InsightSummary                `json:"insight"`
	BucketInsight      InsightSummary                `json:"bucket_insight"`
	OrphanActuals      []OrphanActual                `json:"orphan_actuals"`
	Normalization      *entities.NormalizationReport `json:"normalization"`
}

// Clone returns a deep copy of the result. Nil and empty slices keep their
// distinction so both encode to the same JSON.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Query = r.Query.Clone()
	c.Records = slices.Clone(r.Records)
	c.Buckets = slices.Clone(r.Buckets)
	for i := range c.Buckets {
		c.Buckets[i].GroupBy = slices.Clone(c.Buckets[i].GroupBy)
	}
	c.Insight = r.Insight.Clone()
	c.BucketInsight = r.BucketInsight.Clone()
	c.OrphanActuals = slices.Clone(r.OrphanActuals)
	c.Normalization = r.Normalization.Clone()
	return &c
}

// Clone returns a copy of the summary that shares no maps or slices with it
func (s InsightSummary) Clone() InsightSummary {
	s.Counts = maps.Clone(s.Counts)
	s.LargestDiscrepancies = slices.Clone(s.LargestDiscrepancies)
	s.UnderForecast = slices.Clone(s.UnderForecast)
	s.OverForecast = slices.Clone(s.OverForecast)
	return s
}

// Empty reports whether the query matched no forecast rows.
// A result is only produced when data is loaded, so Empty never means "no data".
func (r *QueryResult) Empty() bool {
	return r == nil || r.MatchedRecords == 0
}

// Catalog lists the filter options present in the loaded data
type Catalog struct {
	DatasetVersion string            `json:"dataset_version"`
	Periods        []entities.Period `json:"periods"`
	Brands         []string          `json:"brands"`
	Series         []string          `json:"series"`
	Supplies       []string          `json:"supplies"`
	HasNullSupply  bool              `json:"has_null_supply"`
}

// ExportTable is the flat, stable-column rendering of reconciled records
type ExportTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}
