// Package tabular maps loosely named source columns onto the forecast and
// actual schemas shared by every loader.
package tabular

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
	apperrors "github.com/vsinha/forecast-recon/pkg/domain/errors"
)

// Canonical column names
const (
	ColPeriod      = "period"
	ColBrand       = "brand"
	ColSeries      = "series"
	ColSupply      = "supply"
	ColItemCode    = "item_code"
	ColItemName    = "item_name"
	ColForecastQty = "forecast_qty"
	ColActualQty   = "actual_qty"
)

// ForecastColumns and ActualColumns are the required columns per table.
// Supply is optional: without the column every row has a missing supply.
var (
	ForecastColumns = []string{ColPeriod, ColBrand, ColSeries, ColItemCode, ColItemName, ColForecastQty}
	ActualColumns   = []string{ColPeriod, ColItemCode, ColActualQty}
)

// columnAliases lists the other spellings seen in exported sheets
var columnAliases = map[string][]string{
	ColPeriod:      {"ym", "month", "기간", "년월"},
	ColBrand:       {"브랜드"},
	ColSeries:      {"시리즈"},
	ColSupply:      {"channel", "supply_type", "공급"},
	ColItemCode:    {"combo", "itemcode", "단품코드"},
	ColItemName:    {"name", "itemname", "품목명"},
	ColForecastQty: {"forecast", "forecastqty", "예측"},
	ColActualQty:   {"actual", "actualqty", "실적"},
}

var aliases = buildAliases()

func buildAliases() map[string]string {
	index := make(map[string]string)
	for canonical, names := range columnAliases {
		index[canonical] = canonical
		for _, name := range names {
			index[name] = canonical
		}
	}
	return index
}

// CanonicalColumn maps a source header to its canonical name. Unknown
// headers are returned lower-cased and trimmed.
func CanonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	if canonical, ok := aliases[h]; ok {
		return canonical
	}
	if canonical, ok := aliases[strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)]; ok {
		return canonical
	}
	return h
}

// Header is the resolved position of every canonical column in a source row
type Header map[string]int

// ResolveHeader maps a header row onto the required columns. A missing
// required column makes the whole table unavailable.
func ResolveHeader(table, source string, header []string, required []string) (Header, error) {
	resolved := make(Header, len(header))
	for i, h := range header {
		name := CanonicalColumn(h)
		if _, dup := resolved[name]; !dup {
			resolved[name] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := resolved[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSourceUnavailableError(table, source,
			fmt.Errorf("missing required columns %s", strings.Join(missing, ", ")))
	}
	return resolved, nil
}

// value returns the cell for col, or "" and false when the row is too short
func (h Header) value(row []string, col string) (string, bool) {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// ForecastRow builds a raw forecast row. An absent or blank supply cell
// becomes a nil Supply.
func (h Header) ForecastRow(rowNum int, row []string) entities.RawForecastRow {
	get := func(col string) string {
		v, _ := h.value(row, col)
		return v
	}
	raw := entities.RawForecastRow{
		Row:         rowNum,
		Period:      get(ColPeriod),
		Brand:       get(ColBrand),
		Series:      get(ColSeries),
		ItemCode:    get(ColItemCode),
		ItemName:    get(ColItemName),
		ForecastQty: get(ColForecastQty),
	}
	if supply, ok := h.value(row, ColSupply); ok && strings.TrimSpace(supply) != "" {
		raw.Supply = &supply
	}
	return raw
}

// ActualRow builds a raw actual row
func (h Header) ActualRow(rowNum int, row []string) entities.RawActualRow {
	get := func(col string) string {
		v, _ := h.value(row, col)
		return v
	}
	return entities.RawActualRow{
		Row:       rowNum,
		Period:    get(ColPeriod),
		ItemCode:  get(ColItemCode),
		ActualQty: get(ColActualQty),
	}
}

// ForecastRows converts a header plus data rows into raw forecast rows.
// Row numbers are 1-based data rows, so the header is row 0.
func ForecastRows(source string, records [][]string) ([]entities.RawForecastRow, error) {
	if len(records) == 0 {
		return nil, apperrors.NewSourceUnavailableError(apperrors.TableForecast, source, fmt.Errorf("no header row"))
	}
	header, err := ResolveHeader(apperrors.TableForecast, source, records[0], ForecastColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]entities.RawForecastRow, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, header.ForecastRow(i+1, record))
	}
	return rows, nil
}

// ActualRows converts a header plus data rows into raw actual rows
func ActualRows(source string, records [][]string) ([]entities.RawActualRow, error) {
	if len(records) == 0 {
		return nil, apperrors.NewSourceUnavailableError(apperrors.TableActual, source, fmt.Errorf("no header row"))
	}
	header, err := ResolveHeader(apperrors.TableActual, source, records[0], ActualColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]entities.RawActualRow, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, header.ActualRow(i+1, record))
	}
	return rows, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName accepts plain or schema-qualified SQL identifiers only,
// since table names are interpolated into queries
func ValidateTableName(field, name string) error {
	if !identifierPattern.MatchString(name) {
		return apperrors.NewInvalidConfigurationError(field, name, "must be a plain SQL identifier")
	}
	return nil
}

// CellString renders a database value as a cell; NULL becomes ""
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02")
	case driver.Valuer:
		value, err := x.Value()
		if err != nil {
			return ""
		}
		return CellString(value)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
