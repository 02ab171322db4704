package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/map-location-service/internal/pkg/errors"
)

type pointRequest struct {
	Lat float64 `validate:"min=-90,max=90"`
	Lng float64 `validate:"min=-180,max=180"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, Validate(&pointRequest{Lat: 41.65, Lng: 41.63}))
	})

	t.Run("invalid struct lists failed fields", func(t *testing.T) {
		err := Validate(&pointRequest{Lat: 91, Lng: 0})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Contains(t, appErr.Details, "lat")
		assert.NotContains(t, appErr.Details, "lng")
	})
}
