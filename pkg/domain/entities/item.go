package entities

import (
	"fmt"
	"strings"
)

// Period represents a reporting month in canonical YYYY-MM form
type Period string

// ItemCode identifies a sellable unit; together with Period it is the join key
type ItemCode string

// Quantity represents an integer quantity of units
type Quantity int64

// Abs returns the absolute value of the quantity
func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Dimension names an axis forecast data can be filtered or grouped by
type Dimension string

const (
	DimensionBrand  Dimension = "brand"
	DimensionSeries Dimension = "series"
	DimensionSupply Dimension = "supply"
	DimensionPeriod Dimension = "period"
)

// AllDimensions lists the groupable dimensions in canonical order
var AllDimensions = []Dimension{DimensionBrand, DimensionSeries, DimensionSupply, DimensionPeriod}

// Valid reports whether d is one of the known dimensions
func (d Dimension) Valid() bool {
	switch d {
	case DimensionBrand, DimensionSeries, DimensionSupply, DimensionPeriod:
		return true
	default:
		return false
	}
}

// ParseDimension parses a dimension name (case-insensitive)
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown dimension: %q (expected brand, series, supply or period)", s)
	}
	return d, nil
}

// ParseDimensions parses a comma separated dimension list such as "brand,series"
func ParseDimensions(s string) ([]Dimension, error) {
	var dims []Dimension
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseDimension(part)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, nil
}
