package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WithDetailsDoesNotMutateSentinel(t *testing.T) {
	withDetails := ErrInvalidCoordinates.WithDetails(map[string]interface{}{"lat": 95.0})

	assert.Nil(t, ErrInvalidCoordinates.Details)
	assert.Equal(t, 95.0, withDetails.Details["lat"])
	assert.True(t, stderrors.Is(withDetails, ErrInvalidCoordinates))
	assert.False(t, stderrors.Is(withDetails, ErrInvalidZoom))
}

func TestAppError_Wrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrSearchUnavailable.Wrap(cause)

	assert.ErrorIs(t, err, ErrSearchUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("geocode: %w", ErrNoResults)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "NO_RESULTS", appErr.Code)

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
