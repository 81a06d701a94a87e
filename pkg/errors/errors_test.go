package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Creation(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        NewValidationError("depth out of range"),
			wantType:   ErrorTypeValidation,
			wantStatus: 400,
		},
		{
			name:       "not found error",
			err:        NewNotFoundError("node"),
			wantType:   ErrorTypeNotFound,
			wantStatus: 404,
		},
		{
			name:       "data fetch error",
			err:        NewDataFetchError("map data", errors.New("connection refused")),
			wantType:   ErrorTypeDataFetch,
			wantStatus: 502,
		},
		{
			name:       "timeout error",
			err:        NewTimeoutError("entity detail"),
			wantType:   ErrorTypeTimeout,
			wantStatus: 408,
		},
		{
			name:       "worker error",
			err:        NewWorkerError("layout worker crashed", errors.New("panic")),
			wantType:   ErrorTypeWorker,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewDataFetchError("map data", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by")
}

func TestTypeHelpers(t *testing.T) {
	fetchErr := fmt.Errorf("loading graph: %w", NewDataFetchError("map data", nil))

	assert.True(t, IsAppError(fetchErr))
	assert.True(t, IsDataFetch(fetchErr))
	assert.False(t, IsTimeout(fetchErr))
	assert.False(t, IsAppError(errors.New("plain")))

	require.NotNil(t, GetAppError(fetchErr))
	assert.Equal(t, ErrorTypeDataFetch, GetAppError(fetchErr).Type)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	wrapped := Wrap(NewTimeoutError("entity detail"), "selecting node")
	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeTimeout, appErr.Type)
	assert.Contains(t, appErr.Message, "selecting node")

	internal := Wrap(errors.New("boom"), "unexpected")
	assert.Equal(t, ErrorTypeInternal, GetAppError(internal).Type)
}
