package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stoklog/stoklog-backend/pkg/errors"
	"github.com/stoklog/stoklog-backend/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStock(t *testing.T) {
	err := errors.InsufficientStock(10, 7)

	assert.Equal(t, errors.CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "3", err.Details["short"])
	assert.Equal(t, "insufficient stock: requested 10, available 7", err.Message)
	assert.True(t, errors.Is(fmt.Errorf("issue: %w", err), errors.ErrInsufficientStock))
}

func TestResourceFrozen_Localized(t *testing.T) {
	err := errors.ResourceFrozen("warehouse")

	assert.Equal(t, http.StatusLocked, err.StatusCode)
	ctx := i18n.WithLocale(context.Background(), i18n.LocaleIndonesian)
	assert.Equal(t, "gudang sedang dibekukan oleh langganan", err.Localize(ctx))
}

func TestRetryableErrors(t *testing.T) {
	cause := stderrors.New("deadlock detected")

	cc := errors.ConcurrencyConflict(cause)
	assert.True(t, cc.Retryable)
	assert.True(t, errors.Is(cc, errors.ErrConcurrencyConflict))
	assert.True(t, errors.Is(cc, cause))

	sf := errors.StorageFailure(cause)
	assert.True(t, sf.Retryable)
	assert.Equal(t, http.StatusServiceUnavailable, sf.StatusCode)

	var appErr *errors.AppError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", sf), &appErr))
	assert.Equal(t, errors.CodeStorageFailure, appErr.Code)
}

func TestNotFound(t *testing.T) {
	err := errors.NotFound("batch")
	assert.Equal(t, "batch not found", err.Message)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
