package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/pkg/metrics"
)

// MockStreamRepository is a mock of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}

func newEvent() domain.LocationSelectedEvent {
	return domain.LocationSelectedEvent{
		EventID:   uuid.New(),
		SessionID: uuid.New(),
		Location: domain.ResolvedLocation{
			Point:  domain.GeoPoint{Lat: 41.6, Lng: 41.65},
			Source: domain.SourceClick,
		},
		OccurredAt: time.Now(),
	}
}

func newTestDispatcher(repo *MockStreamRepository, buffer, retries int) (*EventDispatcher, *metrics.Metrics) {
	m := metrics.NewForTesting()
	d := NewEventDispatcher(repo, &config.EventsConfig{
		Stream:     domain.StreamLocationSelected,
		BufferSize: buffer,
		MaxRetries: retries,
	}, m, zap.NewNop())
	d.backoff = time.Millisecond
	return d, m
}

func TestEventDispatcher_Publishes(t *testing.T) {
	repo := new(MockStreamRepository)
	d, _ := newTestDispatcher(repo, 8, 0)
	event := newEvent()

	published := make(chan struct{})
	repo.On("PublishToStream", mock.Anything, domain.StreamLocationSelected, event).
		Return(nil).
		Run(func(mock.Arguments) { close(published) }).
		Once()

	go func() { _ = d.Start(context.Background()) }()
	defer d.Stop()

	require.True(t, d.Enqueue(event))

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
	repo.AssertExpectations(t)
}

func TestEventDispatcher_RetriesThenSucceeds(t *testing.T) {
	repo := new(MockStreamRepository)
	d, m := newTestDispatcher(repo, 8, 3)
	event := newEvent()

	repo.On("PublishToStream", mock.Anything, mock.Anything, event).Return(errors.New("redis down")).Twice()
	repo.On("PublishToStream", mock.Anything, mock.Anything, event).Return(nil).Once()

	d.publish(context.Background(), event)

	repo.AssertNumberOfCalls(t, "PublishToStream", 3)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EventsDropped))
}

func TestEventDispatcher_DropsAfterRetries(t *testing.T) {
	repo := new(MockStreamRepository)
	d, m := newTestDispatcher(repo, 8, 2)
	event := newEvent()

	repo.On("PublishToStream", mock.Anything, mock.Anything, event).Return(errors.New("redis down"))

	d.publish(context.Background(), event)

	repo.AssertNumberOfCalls(t, "PublishToStream", 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
}

func TestEventDispatcher_EnqueueDoesNotBlock(t *testing.T) {
	repo := new(MockStreamRepository)
	d, m := newTestDispatcher(repo, 1, 0)

	assert.True(t, d.Enqueue(newEvent()))
	assert.False(t, d.Enqueue(newEvent()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
}

func TestEventDispatcher_DrainsOnStop(t *testing.T) {
	repo := new(MockStreamRepository)
	d, _ := newTestDispatcher(repo, 8, 0)
	repo.On("PublishToStream", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.True(t, d.Enqueue(newEvent()))
	require.True(t, d.Enqueue(newEvent()))
	require.NoError(t, d.Stop())

	// остановлен до старта: Start сразу вычитывает буфер и выходит
	require.NoError(t, d.Start(context.Background()))
	repo.AssertNumberOfCalls(t, "PublishToStream", 2)
}
