package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/usecase"
	"github.com/map-location-service/internal/usecase/dto"
)

func newSearchUseCase(t *testing.T, geocoder *MockGeocoder) *usecase.SearchUseCase {
	t.Helper()
	return usecase.NewSearchUseCase(
		newTestRegistry(t),
		geocoder,
		&config.MapConfig{DefaultLat: 41.6168, DefaultLng: 41.6367},
		zap.NewNop(),
	)
}

func TestSearchUseCase_Search(t *testing.T) {
	geocoder := new(MockGeocoder)
	uc := newSearchUseCase(t, geocoder)

	results := []domain.SearchResult{
		{Point: domain.GeoPoint{Lat: 41.65, Lng: 41.6333}, Label: "Порт Батуми", FullLabel: "Грузия, Батуми, Порт Батуми", Provider: "a"},
		{Point: domain.GeoPoint{Lat: 41.6168, Lng: 41.6367}, Label: "Батуми", FullLabel: "Грузия, Батуми", Provider: "a"},
	}
	geocoder.On("Search", mock.Anything, "Batumi port", domain.ProviderID("b")).Return(results, nil)

	resp, err := uc.Search(context.Background(), dto.GeocodeRequest{Query: "Batumi port", Provider: "b"})
	require.NoError(t, err)

	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Порт Батуми", resp.Results[0].Label)
	assert.Equal(t, 41.65, resp.Results[0].Lat)
	assert.InDelta(t, 3.7, resp.Results[0].DistanceKm, 0.1)
	assert.Equal(t, 0.0, resp.Results[1].DistanceKm)
	geocoder.AssertExpectations(t)
}

func TestSearchUseCase_SearchError(t *testing.T) {
	geocoder := new(MockGeocoder)
	uc := newSearchUseCase(t, geocoder)

	geocoder.On("Search", mock.Anything, "nowhere", domain.ProviderID("")).Return(nil, apperrors.ErrNoResults)

	resp, err := uc.Search(context.Background(), dto.GeocodeRequest{Query: "nowhere"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, apperrors.ErrNoResults)
}

func TestSearchUseCase_Providers(t *testing.T) {
	uc := newSearchUseCase(t, new(MockGeocoder))

	resp := uc.Providers()
	require.Len(t, resp.Providers, 3)

	ids := make([]string, 0, len(resp.Providers))
	for _, p := range resp.Providers {
		ids = append(ids, p.ID)
		assert.True(t, p.SupportsSearch)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.True(t, resp.Providers[0].SupportsClick)
	assert.False(t, resp.Providers[2].SupportsClick)
}
