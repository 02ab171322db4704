// Package session - периодическое удаление простаивающих сессий карты.
package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/worker"
)

// SessionStore - хранилище сессий с удалением простаивающих
type SessionStore interface {
	Sweep(now time.Time) int
}

// Sweeper раз в interval удаляет сессии, простаивающие дольше idle TTL
type Sweeper struct {
	*worker.BaseWorker
	store    SessionStore
	clock    clockwork.Clock
	interval time.Duration
}

// defaultSweepInterval - период, если передан неположительный interval
const defaultSweepInterval = time.Minute

// NewSweeper создаёт воркер удаления сессий. interval <= 0 - значение по умолчанию.
func NewSweeper(store SessionStore, clock clockwork.Clock, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		BaseWorker: worker.NewBaseWorker("session-sweeper", logger),
		store:      store,
		clock:      clock,
		interval:   interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	logger := s.Logger()
	logger.Info("Starting session sweeper", zap.Duration("interval", s.interval))

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.Chan():
			if removed := s.store.Sweep(s.clock.Now()); removed > 0 {
				logger.Debug("Sweep finished", zap.Int("removed", removed))
			}
		}
	}
}
