// Package exception provides the error types shared by the roomrate pipeline.
// Errors carry the module they originated from so callers and logs can tell
// a read failure from a persistence failure.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrNoReservations is returned when the reservation history is empty for every room type.
	ErrNoReservations = errors.New("no reservation history found")
	// ErrEstimatorUnavailable is returned by a demand estimator that is disabled or cannot run.
	ErrEstimatorUnavailable = errors.New("demand estimator unavailable")
	// ErrFitFailed is returned when a demand model cannot be fitted to the feature table.
	ErrFitFailed = errors.New("demand model fit failed")
	// ErrInvalidInput marks malformed input records (CSV rows, request parameters).
	ErrInvalidInput = errors.New("invalid input")
)

// PipelineError is an error raised by one of the pipeline modules.
type PipelineError struct {
	// Module is where the error occurred (e.g., "reader", "feature", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string

	isRetryable bool
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(module, message string, originalErr error, isRetryable bool) *PipelineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
		isRetryable: isRetryable,
	}
}

// NewPipelineErrorf creates a non-retryable PipelineError with a formatted message.
// If the last argument is an error it becomes the wrapped error.
func NewPipelineErrorf(module, format string, a ...interface{}) *PipelineError {
	var originalErr error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			originalErr = err
			a = a[:len(a)-1]
		}
	}
	return NewPipelineError(module, fmt.Sprintf(format, a...), originalErr, false)
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the caller may retry the failed run.
func (e *PipelineError) IsRetryable() bool {
	return e.isRetryable
}

// IsPipelineError reports whether err is, or wraps, a PipelineError.
func IsPipelineError(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe)
}

// ModuleOf returns the module of the outermost PipelineError in err's chain, or "".
func ModuleOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Module
	}
	return ""
}

// ExtractErrorMessage returns the Message of a PipelineError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
