// Package errors defines the sentinel errors shared by the retrieval engine
// and an AppError wrapper that carries an HTTP status for the presentation
// layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyInput is returned when text to normalize or a query is empty
	// or whitespace only.
	ErrEmptyInput = errors.New("empty input")
	// ErrNoDocuments is returned when an index build is attempted on an
	// empty corpus.
	ErrNoDocuments = errors.New("no documents")
	// ErrIndexNotBuilt is returned when a scorer is searched before its
	// first successful build.
	ErrIndexNotBuilt = errors.New("index not built")
	// ErrDimensionality is returned when the requested LSA rank exceeds
	// what the corpus can support.
	ErrDimensionality = errors.New("invalid dimensionality")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

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

// HTTPStatusCode maps err to the status the search API responds with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoDocuments), errors.Is(err, ErrDimensionality):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrIndexNotBuilt), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
