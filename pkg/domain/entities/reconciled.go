package entities

import "strings"

// Measures is the metric set shared by reconciled rows and aggregate buckets
type Measures struct {
	ForecastQty     Quantity `json:"forecast_qty"`
	ActualQty       Quantity `json:"actual_qty"`
	Difference      Quantity `json:"difference"`
	AbsoluteError   Quantity `json:"absolute_error"`
	AchievementRate float64  `json:"achievement_rate"`
}

// ReconciledRecord is one forecast row enriched with its matched (or
// zero-defaulted) actual quantity and the derived metrics.
type ReconciledRecord struct {
	ForecastRecord
	ActualQty       Quantity `json:"actual_qty"`
	Matched         bool     `json:"matched"`
	Difference      Quantity `json:"difference"`
	AbsoluteError   Quantity `json:"absolute_error"`
	AchievementRate float64  `json:"achievement_rate"`
}

// Measures returns the record's metrics
func (r ReconciledRecord) Measures() Measures {
	return Measures{
		ForecastQty:     r.ForecastQty,
		ActualQty:       r.ActualQty,
		Difference:      r.Difference,
		AbsoluteError:   r.AbsoluteError,
		AchievementRate: r.AchievementRate,
	}
}

// SearchFields returns the fields free-text search looks at
func (r ReconciledRecord) SearchFields() []string {
	return []string{string(r.ItemCode), r.ItemName, r.Series}
}

// Ref identifies the record in insight lists
func (r ReconciledRecord) Ref() EntityRef {
	return EntityRef{
		Label:    r.ItemName,
		Period:   r.Period,
		ItemCode: r.ItemCode,
		ItemName: r.ItemName,
		Series:   r.Series,
	}
}

// EntityRef describes a ranked entity (an item row or a bucket) for summaries
type EntityRef struct {
	Label    string   `json:"label"`
	Period   Period   `json:"period,omitempty"`
	ItemCode ItemCode `json:"item_code,omitempty"`
	ItemName string   `json:"item_name,omitempty"`
	Series   string   `json:"series,omitempty"`
}

// BucketKey holds the values of the grouped dimensions; ungrouped ones stay empty
type BucketKey struct {
	Brand  string `json:"brand,omitempty"`
	Series string `json:"series,omitempty"`
	Supply string `json:"supply,omitempty"`
	Period Period `json:"period,omitempty"`
}

// Value returns the key's value for d
func (k BucketKey) Value(d Dimension) string {
	switch d {
	case DimensionBrand:
		return k.Brand
	case DimensionSeries:
		return k.Series
	case DimensionSupply:
		return k.Supply
	case DimensionPeriod:
		return string(k.Period)
	default:
		return ""
	}
}

// AggregateBucket is a group-by partition's summed metrics.
// AchievementRate is always derived from the sums, never averaged.
type AggregateBucket struct {
	Key             BucketKey   `json:"key"`
	GroupBy         []Dimension `json:"group_by"`
	ForecastQty     Quantity    `json:"forecast_qty"`
	ActualQty       Quantity    `json:"actual_qty"`
	Difference      Quantity    `json:"difference"`
	AbsoluteError   Quantity    `json:"absolute_error"`
	AchievementRate float64     `json:"achievement_rate"`
	RecordCount     int         `json:"record_count"`
}

// Label joins the grouped dimension values, e.g. "A / T60"
func (b AggregateBucket) Label() string {
	parts := make([]string, 0, len(b.GroupBy))
	for _, d := range b.GroupBy {
		parts = append(parts, b.Key.Value(d))
	}
	return strings.Join(parts, " / ")
}

// Measures returns the bucket's metrics
func (b AggregateBucket) Measures() Measures {
	return Measures{
		ForecastQty:     b.ForecastQty,
		ActualQty:       b.ActualQty,
		Difference:      b.Difference,
		AbsoluteError:   b.AbsoluteError,
		AchievementRate: b.AchievementRate,
	}
}

// SearchFields returns the grouped dimension values
func (b AggregateBucket) SearchFields() []string {
	fields := make([]string, 0, len(b.GroupBy))
	for _, d := range b.GroupBy {
		fields = append(fields, b.Key.Value(d))
	}
	return fields
}

// Ref identifies the bucket in insight lists
func (b AggregateBucket) Ref() EntityRef {
	return EntityRef{
		Label:  b.Label(),
		Period: b.Key.Period,
		Series: b.Key.Series,
	}
}
