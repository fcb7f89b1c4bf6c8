package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/roomrate/internal/support/exception"
)

func TestNewPipelineError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	pe := exception.NewPipelineError("writer", "failed to upsert forecasts", originalErr, true)

	assert.Equal(t, "writer", pe.Module)
	assert.Equal(t, "failed to upsert forecasts", pe.Message)
	assert.Equal(t, originalErr, pe.Unwrap())
	assert.True(t, pe.IsRetryable())
	assert.Equal(t, "[writer] failed to upsert forecasts: db connection refused", pe.Error())
	assert.NotEmpty(t, pe.StackTrace)
}

func TestNewPipelineErrorf(t *testing.T) {
	pe := exception.NewPipelineErrorf("etl", "line %d: bad value %q", 4, "x")
	assert.Nil(t, pe.Unwrap())
	assert.False(t, pe.IsRetryable())
	assert.Equal(t, "[etl] line 4: bad value \"x\"", pe.Error())

	pe = exception.NewPipelineErrorf("etl", "line %d malformed", 7, exception.ErrInvalidInput)
	assert.ErrorIs(t, pe, exception.ErrInvalidInput)
	assert.Equal(t, "line 7 malformed", pe.Message)
}

func TestSentinelsThroughWrapping(t *testing.T) {
	pe := exception.NewPipelineError("reader", "nothing to forecast", exception.ErrNoReservations, false)
	wrapped := fmt.Errorf("pipeline run: %w", pe)

	assert.ErrorIs(t, wrapped, exception.ErrNoReservations)
	assert.True(t, exception.IsPipelineError(wrapped))
	assert.Equal(t, "reader", exception.ModuleOf(wrapped))
	assert.Equal(t, "nothing to forecast", exception.ExtractErrorMessage(wrapped))
}

func TestExtractErrorMessage_PlainError(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "boom", exception.ExtractErrorMessage(errors.New("boom")))
	assert.False(t, exception.IsPipelineError(errors.New("boom")))
	assert.Equal(t, "", exception.ModuleOf(errors.New("boom")))
}
