// Package errors defines the error taxonomy of the reconciliation engine.
//
// Row level problems (MalformedRowError) are recovered: the row is dropped and
// counted. Source and configuration problems abort a query and are surfaced to
// the caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Table names used in error reports
const (
	TableForecast = "forecast"
	TableActual   = "actual"
)

// Reasons a row can be dropped by the normalizer
const (
	ReasonMissingField    = "missing_field"
	ReasonNoiseSeries     = "noise_series"
	ReasonMissingSupply   = "missing_supply"
	ReasonInvalidPeriod   = "invalid_period"
	ReasonInvalidQuantity = "invalid_quantity"
	ReasonQuantityTotal   = "quantity_total_overflow"
)

// ErrNoDataLoaded is returned when a query runs before any dataset was loaded
var ErrNoDataLoaded = errors.New("no dataset loaded")

// MalformedRowError describes a single row that failed validation
type MalformedRowError struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// Error implements the error interface
func (e MalformedRowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s row %d: %s %s (%q)", e.Table, e.Row, e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s row %d: %s %s", e.Table, e.Row, e.Field, e.Reason)
}

// SourceUnavailableError means a loader could not produce a table at all
type SourceUnavailableError struct {
	Table  string
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s table unavailable from %s: %v", e.Table, e.Source, e.Err)
	}
	return fmt.Sprintf("%s table unavailable from %s", e.Table, e.Source)
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailableError creates a SourceUnavailableError
func NewSourceUnavailableError(table, source string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Table: table, Source: source, Err: err}
}

// InvalidConfigurationError rejects a query or config value before any computation
type InvalidConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NewInvalidConfigurationError creates an InvalidConfigurationError
func NewInvalidConfigurationError(field string, value any, reason string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Value: value, Reason: reason}
}

// IsSourceUnavailable reports whether err is (or wraps) a SourceUnavailableError
func IsSourceUnavailable(err error) bool {
	var target *SourceUnavailableError
	return errors.As(err, &target)
}

// IsInvalidConfiguration reports whether err is (or wraps) an InvalidConfigurationError
func IsInvalidConfiguration(err error) bool {
	var target *InvalidConfigurationError
	return errors.As(err, &target)
}

// StatusCode maps an error to the HTTP status the API answers with
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidConfiguration(err):
		return http.StatusBadRequest
	case IsSourceUnavailable(err), errors.Is(err, ErrNoDataLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
