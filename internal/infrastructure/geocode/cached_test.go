package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/infrastructure/provider"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/metrics"
)

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Search(ctx context.Context, query string, active domain.ProviderID) ([]domain.SearchResult, error) {
	args := m.Called(ctx, query, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var portResults = []domain.SearchResult{
	{Point: domain.GeoPoint{Lat: 41.6, Lng: 41.65}, Label: "Port", Provider: "osm-static"},
}

// osm-static ищет, osm-tile только рисует
func newCacheRegistry(t *testing.T) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(zap.NewNop(),
		searchable("osm-static", 30, "https://nominatim.test/search"),
		renderOnly("osm-tile", 40),
	)
	require.NoError(t, err)
	return reg
}

func TestCachedGeocoder_Search(t *testing.T) {
	ctx := context.Background()
	ttl := time.Hour

	t.Run("cache hit skips inner geocoder", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		data, _ := json.Marshal(portResults)
		cache.On("Get", ctx, "geocode:osm-static:batumi port").Return(data, nil)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		results, err := g.Search(ctx, "  Batumi   Port ", "osm-static")

		require.NoError(t, err)
		assert.Equal(t, portResults, results)
		inner.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("cache miss stores results", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		cache.On("Get", ctx, "geocode:osm-static:batumi port").Return(nil, nil)
		inner.On("Search", ctx, "Batumi port", domain.ProviderID("osm-static")).Return(portResults, nil)
		cache.On("Set", ctx, "geocode:osm-static:batumi port", mock.Anything, ttl).Return(nil)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		results, err := g.Search(ctx, "Batumi port", "osm-static")

		require.NoError(t, err)
		assert.Equal(t, portResults, results)
		inner.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		cache.On("Get", ctx, mock.Anything).Return(nil, nil)
		inner.On("Search", ctx, "nowhere", domain.ProviderID("osm-static")).Return(nil, apperrors.ErrNoResults)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		_, err := g.Search(ctx, "nowhere", "osm-static")

		assert.ErrorIs(t, err, apperrors.ErrNoResults)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache failures are ignored", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		cache.On("Get", ctx, mock.Anything).Return(nil, errors.New("redis down"))
		cache.On("Set", ctx, mock.Anything, mock.Anything, ttl).Return(errors.New("redis down"))
		inner.On("Search", ctx, "Batumi port", domain.ProviderID("osm-static")).Return(portResults, nil)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		results, err := g.Search(ctx, "Batumi port", "osm-static")

		require.NoError(t, err)
		assert.Equal(t, portResults, results)
	})

	t.Run("malformed cache entry falls through", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		cache.On("Get", ctx, mock.Anything).Return([]byte("{broken"), nil)
		cache.On("Set", ctx, mock.Anything, mock.Anything, ttl).Return(nil)
		inner.On("Search", ctx, "Batumi port", domain.ProviderID("osm-static")).Return(portResults, nil)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		results, err := g.Search(ctx, "Batumi port", "osm-static")

		require.NoError(t, err)
		assert.Equal(t, portResults, results)
		inner.AssertExpectations(t)
	})

	t.Run("key uses the provider that performs the search", func(t *testing.T) {
		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		data, _ := json.Marshal(portResults)
		cache.On("Get", ctx, "geocode:osm-static:batumi port").Return(data, nil)

		g := NewCachedGeocoder(inner, newCacheRegistry(t), cache, ttl, metrics.NewForTesting(), zap.NewNop())
		results, err := g.Search(ctx, "Batumi port", "osm-tile")

		require.NoError(t, err)
		assert.Equal(t, portResults, results)
		inner.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("no search provider bypasses cache", func(t *testing.T) {
		reg, err := provider.NewRegistry(zap.NewNop(), renderOnly("osm-tile", 40))
		require.NoError(t, err)

		inner := new(MockGeocoder)
		cache := new(MockCacheRepository)
		inner.On("Search", ctx, "Batumi port", domain.ProviderID("osm-tile")).Return(nil, apperrors.ErrSearchUnavailable)

		g := NewCachedGeocoder(inner, reg, cache, ttl, metrics.NewForTesting(), zap.NewNop())
		_, err = g.Search(ctx, "Batumi port", "osm-tile")

		assert.ErrorIs(t, err, apperrors.ErrSearchUnavailable)
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
