package entities

import (
	"fmt"
	"strings"
)

// SupplyPolicy decides what happens to forecast rows without a supply channel
type SupplyPolicy int

const (
	// DropMissing removes rows with a missing supply channel
	DropMissing SupplyPolicy = iota
	// LabelAsUnclassified replaces a missing supply with a literal label
	// that is then treated like any other channel
	LabelAsUnclassified
	// RetainAsNull keeps the row with no supply; it shows up in row views
	// but is left out of supply-level aggregates and supply filters
	RetainAsNull
)

// String method for SupplyPolicy enum
func (p SupplyPolicy) String() string {
	switch p {
	case DropMissing:
		return "DropMissing"
	case LabelAsUnclassified:
		return "LabelAsUnclassified"
	case RetainAsNull:
		return "RetainAsNull"
	default:
		return "Unknown"
	}
}

// ParseSupplyPolicy parses a policy name; dashes and underscores are ignored
func ParseSupplyPolicy(s string) (SupplyPolicy, error) {
	switch normalizeEnum(s) {
	case "dropmissing", "drop":
		return DropMissing, nil
	case "labelasunclassified", "label", "unclassified":
		return LabelAsUnclassified, nil
	case "retainasnull", "retain", "null":
		return RetainAsNull, nil
	default:
		return DropMissing, fmt.Errorf("invalid supply policy: %s (expected: DropMissing, LabelAsUnclassified, or RetainAsNull)", s)
	}
}

func (p SupplyPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *SupplyPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseSupplyPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ZeroForecastPolicy decides how entities with a zero forecast are classified
type ZeroForecastPolicy int

const (
	// ZeroForecastOver classifies forecast=0, actual>0 as over-forecast and
	// forecast=0, actual=0 as in range
	ZeroForecastOver ZeroForecastPolicy = iota
	// ZeroForecastExclude leaves every forecast=0 entity unclassified
	ZeroForecastExclude
)

// String method for ZeroForecastPolicy enum
func (p ZeroForecastPolicy) String() string {
	switch p {
	case ZeroForecastOver:
		return "Over"
	case ZeroForecastExclude:
		return "Exclude"
	default:
		return "Unknown"
	}
}

// ParseZeroForecastPolicy parses "over" or "exclude"
func ParseZeroForecastPolicy(s string) (ZeroForecastPolicy, error) {
	switch normalizeEnum(s) {
	case "over", "zeroforecastover":
		return ZeroForecastOver, nil
	case "exclude", "zeroforecastexclude":
		return ZeroForecastExclude, nil
	default:
		return ZeroForecastOver, fmt.Errorf("invalid zero forecast policy: %s (expected: Over or Exclude)", s)
	}
}

func (p ZeroForecastPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ZeroForecastPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseZeroForecastPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Classification is the forecast-accuracy bucket of an entity
type Classification string

const (
	UnderForecast Classification = "under_forecast"
	InRange       Classification = "in_range"
	OverForecast  Classification = "over_forecast"
	Unclassified  Classification = "unclassified"
)

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}
