// Package errors defines the sentinel errors shared across the analysis
// pipeline and an AppError type that maps them onto HTTP status codes for
// the trendserver API surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownDataset is returned when a dataset name is not configured.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrDatasetTypeMismatch signals a dataset-type-specific accessor used
	// on a dataset type that does not define the field. This is an internal
	// inconsistency, never a user-facing recoverable condition.
	ErrDatasetTypeMismatch = errors.New("dataset type mismatch")
	// ErrInvalidDateRange is returned for date-range filters combining
	// mutually exclusive bounds or no bounds at all.
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNotFound         = errors.New("not found")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrInternal         = errors.New("internal error")
)

// AppError attaches a message and an HTTP status to a sentinel error.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode resolves the HTTP status to report for err.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownDataset), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
