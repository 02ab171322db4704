package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/metrics"
	"github.com/map-location-service/internal/usecase"
)

var (
	viewport = domain.ViewportRect{Width: 600, Height: 400}
	fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

type sessionFixture struct {
	session  *usecase.LocationSession
	geocoder *MockGeocoder
	selected []domain.ResolvedLocation
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{geocoder: new(MockGeocoder)}
	controller := newController(t)

	s, err := usecase.NewLocationSession(
		uuid.New(),
		controller,
		f.geocoder,
		clockwork.NewFakeClockAt(fixedNow),
		batumi,
		13,
		func(loc domain.ResolvedLocation) { f.selected = append(f.selected, loc) },
		zap.NewNop(),
	)
	require.NoError(t, err)

	_, err = s.StartRender()
	require.NoError(t, err)

	f.session = s
	return f
}

func TestNewLocationSession_InvalidView(t *testing.T) {
	controller := newController(t)

	_, err := usecase.NewLocationSession(uuid.New(), controller, new(MockGeocoder), clockwork.NewFakeClock(),
		domain.GeoPoint{Lat: 0, Lng: 200}, 13, nil, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)

	_, err = usecase.NewLocationSession(uuid.New(), controller, new(MockGeocoder), clockwork.NewFakeClock(),
		batumi, -1, nil, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrInvalidZoom)
}

func TestLocationSession_CurrentEmpty(t *testing.T) {
	f := newSessionFixture(t)

	_, ok := f.session.Current()
	assert.False(t, ok)
}

func TestLocationSession_SelectFromClick(t *testing.T) {
	t.Run("center pixel resolves to center", func(t *testing.T) {
		f := newSessionFixture(t)

		loc, err := f.session.SelectFromClick(domain.Pixel{X: 300, Y: 200}, viewport)
		require.NoError(t, err)

		assert.Equal(t, batumi, loc.Point)
		assert.Equal(t, domain.SourceClick, loc.Source)
		assert.Equal(t, "41.650000, 41.633300", loc.Address)
		assert.Equal(t, fixedNow, loc.ResolvedAt)

		current, ok := f.session.Current()
		require.True(t, ok)
		assert.Equal(t, loc, current)
		assert.Equal(t, []domain.ResolvedLocation{loc}, f.selected)
	})

	t.Run("click does not recenter", func(t *testing.T) {
		f := newSessionFixture(t)
		before, _ := f.session.Render().Attempt()

		_, err := f.session.SelectFromClick(domain.Pixel{X: 10, Y: 10}, viewport)
		require.NoError(t, err)

		after, _ := f.session.Render().Attempt()
		assert.Equal(t, batumi, f.session.Center())
		assert.Equal(t, before.Token, after.Token)
	})

	t.Run("outside viewport keeps prior location", func(t *testing.T) {
		f := newSessionFixture(t)
		first, err := f.session.SelectFromClick(domain.Pixel{X: 300, Y: 200}, viewport)
		require.NoError(t, err)

		_, err = f.session.SelectFromClick(domain.Pixel{X: 700, Y: 200}, viewport)
		assert.ErrorIs(t, err, apperrors.ErrInvalidViewport)

		current, _ := f.session.Current()
		assert.Equal(t, first, current)
		assert.Len(t, f.selected, 1)
	})

	t.Run("provider without click support", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.session.TryProvider("c")
		require.NoError(t, err)

		_, err = f.session.SelectFromClick(domain.Pixel{X: 300, Y: 200}, viewport)
		assert.ErrorIs(t, err, apperrors.ErrClickUnsupported)
		assert.Empty(t, f.selected)
	})

	t.Run("every pixel inside the viewport yields a valid point", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.session.SetView(domain.GeoPoint{Lat: 80, Lng: 179}, 0)
		require.NoError(t, err)

		for x := 0.0; x <= viewport.Width; x += 50 {
			for y := 0.0; y <= viewport.Height; y += 50 {
				loc, err := f.session.SelectFromClick(domain.Pixel{X: x, Y: y}, viewport)
				if err != nil {
					assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
					continue
				}
				assert.True(t, loc.Point.Valid(), "pixel %v,%v", x, y)
			}
		}
	})
}

func TestLocationSession_SelectFromSearch(t *testing.T) {
	ctx := context.Background()
	port := domain.SearchResult{
		Point:     domain.GeoPoint{Lat: 41.6, Lng: 41.65},
		Label:     "Port",
		FullLabel: "Port, Batumi",
		Provider:  "a",
	}
	boulevard := domain.SearchResult{
		Point:    domain.GeoPoint{Lat: 41.655, Lng: 41.63},
		Label:    "Boulevard",
		Provider: "a",
	}

	t.Run("first result is selected and the map recenters", func(t *testing.T) {
		f := newSessionFixture(t)
		f.geocoder.On("Search", ctx, "Batumi port", domain.ProviderID("a")).
			Return([]domain.SearchResult{port, boulevard}, nil)
		before, _ := f.session.Render().Attempt()

		loc, err := f.session.SelectFromSearch(ctx, "Batumi port")
		require.NoError(t, err)

		assert.Equal(t, domain.GeoPoint{Lat: 41.6, Lng: 41.65}, loc.Point)
		assert.Equal(t, "Port, Batumi", loc.Address)
		assert.Equal(t, domain.LocationSource("a"), loc.Source)

		assert.Equal(t, port.Point, f.session.Center())
		after, ok := f.session.Render().Attempt()
		require.True(t, ok)
		assert.NotEqual(t, before.Token, after.Token)
		assert.Equal(t, port.Point, after.Center)
		assert.Equal(t, domain.PhaseRendering, f.session.Render().State().Phase)

		results, origin := f.session.LastResults()
		assert.Equal(t, []domain.SearchResult{port, boulevard}, results)
		assert.Equal(t, batumi, origin)
		f.geocoder.AssertExpectations(t)
	})

	t.Run("another result from the same search", func(t *testing.T) {
		f := newSessionFixture(t)
		f.geocoder.On("Search", ctx, "Batumi", mock.Anything).
			Return([]domain.SearchResult{port, boulevard}, nil)

		_, err := f.session.SelectFromSearch(ctx, "Batumi")
		require.NoError(t, err)

		loc, err := f.session.SelectSearchResult(1)
		require.NoError(t, err)
		assert.Equal(t, boulevard.Point, loc.Point)
		assert.Equal(t, "Boulevard", loc.Address)
		assert.Equal(t, boulevard.Point, f.session.Center())
		assert.Len(t, f.selected, 2)

		_, err = f.session.SelectSearchResult(2)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		current, _ := f.session.Current()
		assert.Equal(t, loc, current)
	})

	t.Run("no results keeps prior state", func(t *testing.T) {
		f := newSessionFixture(t)
		f.geocoder.On("Search", ctx, "nowhere", mock.Anything).Return(nil, apperrors.ErrNoResults)

		_, err := f.session.SelectFromSearch(ctx, "nowhere")
		assert.ErrorIs(t, err, apperrors.ErrNoResults)

		_, ok := f.session.Current()
		assert.False(t, ok)
		assert.Equal(t, batumi, f.session.Center())
		assert.Empty(t, f.selected)
	})

	t.Run("search unavailable", func(t *testing.T) {
		f := newSessionFixture(t)
		f.geocoder.On("Search", ctx, "x", mock.Anything).Return(nil, apperrors.ErrSearchUnavailable)

		_, err := f.session.SelectFromSearch(ctx, "x")
		assert.ErrorIs(t, err, apperrors.ErrSearchUnavailable)
	})

	t.Run("select result before any search", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.session.SelectSearchResult(0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestLocationSession_SelectFromDeviceLocation(t *testing.T) {
	t.Run("valid point", func(t *testing.T) {
		f := newSessionFixture(t)
		point := domain.GeoPoint{Lat: 41.64, Lng: 41.62}

		loc, err := f.session.SelectFromDeviceLocation(point)
		require.NoError(t, err)
		assert.Equal(t, point, loc.Point)
		assert.Equal(t, domain.SourceDevice, loc.Source)
		assert.Equal(t, point, f.session.Center())
	})

	t.Run("invalid point", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.session.SelectFromDeviceLocation(domain.GeoPoint{Lat: -95, Lng: 0})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
		assert.Empty(t, f.selected)
	})
}

func TestLocationSession_SelectionReplacesPrior(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.session.SelectFromClick(domain.Pixel{X: 100, Y: 100}, viewport)
	require.NoError(t, err)
	device, err := f.session.SelectFromDeviceLocation(domain.GeoPoint{Lat: 41.7, Lng: 41.7})
	require.NoError(t, err)

	current, _ := f.session.Current()
	assert.Equal(t, device, current)
	assert.Len(t, f.selected, 2)
}

func TestLocationSession_MarkerPixel(t *testing.T) {
	f := newSessionFixture(t)

	_, ok, err := f.session.MarkerPixel(viewport)
	require.NoError(t, err)
	assert.False(t, ok)

	click := domain.Pixel{X: 150, Y: 320}
	_, err = f.session.SelectFromClick(click, viewport)
	require.NoError(t, err)

	px, inside, err := f.session.MarkerPixel(viewport)
	require.NoError(t, err)
	assert.True(t, inside)
	assert.InDelta(t, click.X, px.X, 1e-6)
	assert.InDelta(t, click.Y, px.Y, 1e-6)

	_, _, err = f.session.MarkerPixel(domain.ViewportRect{Width: 0, Height: 10})
	assert.ErrorIs(t, err, apperrors.ErrInvalidViewport)
}

func TestLocationSession_SetView(t *testing.T) {
	f := newSessionFixture(t)

	attempt, err := f.session.SetView(domain.GeoPoint{Lat: 41.7, Lng: 41.7}, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, attempt.Zoom)
	assert.Equal(t, 15, f.session.Zoom())

	_, err = f.session.SetView(domain.GeoPoint{Lat: 41.7, Lng: 41.7}, 20)
	assert.ErrorIs(t, err, apperrors.ErrInvalidZoom)
	assert.Equal(t, 15, f.session.Zoom())
}

func TestLocationSession_RetryRender(t *testing.T) {
	f := newSessionFixture(t)
	c := f.session.Render()

	attempt, _ := c.Attempt()
	for {
		next, err := c.OnLoadError(attempt.Token)
		if err != nil {
			break
		}
		attempt = *next
	}
	require.True(t, c.State().Exhausted)

	retry, err := f.session.RetryRender()
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderID("a"), retry.ProviderID)
	assert.False(t, c.State().Exhausted)
}

func TestLocationSession_NilCallback(t *testing.T) {
	c, err := usecase.NewFallbackController(newTestRegistry(t), metrics.NewForTesting(), zap.NewNop())
	require.NoError(t, err)

	s, err := usecase.NewLocationSession(uuid.New(), c, new(MockGeocoder), clockwork.NewFakeClock(), batumi, 13, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = s.SelectFromDeviceLocation(batumi)
	assert.NoError(t, err)
}
