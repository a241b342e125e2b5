// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrMalformedSeries     = errors.New("malformed price series")
	ErrUpstreamUnavailable = errors.New("price provider unavailable")
	ErrNoData              = errors.New("no data")
	ErrUnknownTimeframe    = errors.New("unknown timeframe")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrTimeout             = errors.New("operation timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrRateLimited         = errors.New("rate limited")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
	ErrInputValidation     = errors.New("input validation failed")
)

// SeriesError reports a bar that violates the OHLC ordering or timestamp
// monotonicity of a price series.
type SeriesError struct {
	Index   int
	Field   string
	Message string
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("malformed series at bar %d (%s): %s", e.Index, e.Field, e.Message)
}

// Is makes every SeriesError match ErrMalformedSeries.
func (e *SeriesError) Is(target error) bool {
	return target == ErrMalformedSeries
}

// NewSeriesError creates a new SeriesError.
func NewSeriesError(index int, field, message string) *SeriesError {
	return &SeriesError{
		Index:   index,
		Field:   field,
		Message: message,
	}
}

// UpstreamError represents a failure of the price provider. It always matches
// ErrUpstreamUnavailable and unwraps to the underlying cause.
type UpstreamError struct {
	Provider  string
	Symbol    string
	Timeframe string
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error [%s] %s/%s: %v", e.Provider, e.Symbol, e.Timeframe, e.Err)
	}
	return fmt.Sprintf("upstream error [%s] %s/%s", e.Provider, e.Symbol, e.Timeframe)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(provider, symbol, timeframe string, err error) *UpstreamError {
	return &UpstreamError{
		Provider:  provider,
		Symbol:    symbol,
		Timeframe: timeframe,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Retryable reports whether a caller may retry the operation that produced err.
// Upstream failures and timeouts are transient; malformed input is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedSeries) || errors.Is(err, ErrInputValidation) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}
