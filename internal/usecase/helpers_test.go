package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/infrastructure/provider"
)

// MockGeocoder is a mock of repository.Geocoder
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

// MockRenderProber is a mock of repository.RenderProber
type MockRenderProber struct {
	mock.Mock
}

func (m *MockRenderProber) Probe(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// recordingPublisher collects events passed to Enqueue
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LocationSelectedEvent
}

func (p *recordingPublisher) Enqueue(event domain.LocationSelectedEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return true
}

func (p *recordingPublisher) Events() []domain.LocationSelectedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LocationSelectedEvent, len(p.events))
	copy(out, p.events)
	return out
}

type hostRenderer struct {
	host string
}

func (r hostRenderer) RenderURL(center domain.GeoPoint, zoom int) string {
	return fmt.Sprintf("https://%s/static?ll=%.6f,%.6f&z=%d", r.host, center.Lng, center.Lat, zoom)
}

type noopSearcher struct{}

func (noopSearcher) SearchRequest(ctx context.Context, query string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, "https://search.test", nil)
}

func (noopSearcher) Normalize(body []byte) ([]domain.SearchResult, error) {
	return nil, nil
}

func testProvider(id string, priority int, click bool) provider.Descriptor {
	return provider.Descriptor{
		ID:            domain.ProviderID(id),
		Priority:      priority,
		SupportsClick: click,
		Renderer:      hostRenderer{host: id + ".test"},
		Searcher:      noopSearcher{},
	}
}

// newTestRegistry builds [a, b, c]; c does not support clicks
func newTestRegistry(t *testing.T) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(zap.NewNop(),
		testProvider("a", 10, true),
		testProvider("b", 20, true),
		testProvider("c", 30, false),
	)
	require.NoError(t, err)
	return reg
}

// urlFor matches render URLs of the given provider
func urlFor(id string) interface{} {
	return mock.MatchedBy(func(url string) bool {
		return strings.HasPrefix(url, "https://"+id+".test/")
	})
}
