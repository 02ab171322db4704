// Package location публикует события выбора локации в Redis Streams,
// откуда их читают формы бронирования и построители ссылок на такси.
package location

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	"github.com/map-location-service/internal/pkg/metrics"
	"github.com/map-location-service/internal/worker"
)

const (
	retryBackoff = 200 * time.Millisecond
	drainTimeout = 5 * time.Second
)

// EventDispatcher - буферизованная неблокирующая публикация событий.
// Колбэк выбора локации только кладёт событие в буфер.
type EventDispatcher struct {
	*worker.BaseWorker
	streamRepo repository.StreamRepository
	stream     string
	events     chan domain.LocationSelectedEvent
	maxRetries int
	backoff    time.Duration
	metrics    *metrics.Metrics
}

// NewEventDispatcher создает новый EventDispatcher
func NewEventDispatcher(
	streamRepo repository.StreamRepository,
	cfg *config.EventsConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EventDispatcher {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	return &EventDispatcher{
		BaseWorker: worker.NewBaseWorker("location-events", logger),
		streamRepo: streamRepo,
		stream:     cfg.Stream,
		events:     make(chan domain.LocationSelectedEvent, size),
		maxRetries: cfg.MaxRetries,
		backoff:    retryBackoff,
		metrics:    m,
	}
}

// Enqueue не блокирует: при заполненном буфере событие отбрасывается
func (d *EventDispatcher) Enqueue(event domain.LocationSelectedEvent) bool {
	select {
	case d.events <- event:
		return true
	default:
		d.metrics.EventsDropped.Inc()
		return false
	}
}

// Start публикует события до остановки; при Stop оставшиеся в буфере
// события публикуются с ограничением по времени
func (d *EventDispatcher) Start(ctx context.Context) error {
	logger := d.Logger()
	logger.Info("Starting location event dispatcher",
		zap.String("stream", d.stream),
		zap.Int("buffer", cap(d.events)))

	for {
		select {
		case <-d.StopChan():
			d.drain()
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case event := <-d.events:
			d.publish(ctx, event)
		}
	}
}

func (d *EventDispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case event := <-d.events:
			d.publish(ctx, event)
		default:
			return
		}
		if ctx.Err() != nil {
			d.Logger().Warn("Drain timed out", zap.Int("remaining", len(d.events)))
			return
		}
	}
}

func (d *EventDispatcher) publish(ctx context.Context, event domain.LocationSelectedEvent) {
	logger := d.Logger()

	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				d.metrics.EventsDropped.Inc()
				return
			}
		}

		err = d.streamRepo.PublishToStream(ctx, d.stream, event)
		if err == nil {
			logger.Debug("Location event published",
				zap.String("event_id", event.EventID.String()),
				zap.String("session_id", event.SessionID.String()))
			return
		}

		logger.Warn("Failed to publish location event",
			zap.String("event_id", event.EventID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	d.metrics.EventsDropped.Inc()
	logger.Error("Location event dropped after retries",
		zap.String("event_id", event.EventID.String()),
		zap.Int("max_retries", d.maxRetries),
		zap.Error(err))
}
