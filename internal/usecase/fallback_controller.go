package usecase

import (
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/infrastructure/provider"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/metrics"
)

// FallbackController - конечный автомат перебора провайдеров карты:
// Idle -> Rendering(provider) -> Success | Failed.
// Не потокобезопасен: один контроллер на один вид карты.
type FallbackController struct {
	registry *provider.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger

	state   domain.FallbackState
	index   int
	seq     uint64
	attempt domain.RenderAttempt
	issued  bool
}

// NewFallbackController - пустой реестр означает, что отрисовать карту нечем
func NewFallbackController(registry *provider.Registry, m *metrics.Metrics, logger *zap.Logger) (*FallbackController, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, apperrors.ErrConfiguration
	}

	return &FallbackController{
		registry: registry,
		metrics:  m,
		logger:   logger,
		state:    domain.FallbackState{Phase: domain.PhaseIdle},
	}, nil
}

// Start сбрасывает состояние и начинает цепочку с первого провайдера.
// Колбэки всех ранее выданных попыток после этого игнорируются.
func (c *FallbackController) Start(center domain.GeoPoint, zoom int) (domain.RenderAttempt, error) {
	return c.startAt(0, center, zoom)
}

// StartFrom - ручной выбор провайдера пользователем (например, OpenStreetMap
// после исчерпания цепочки). Дальше перебор идёт по реестру от выбранного.
func (c *FallbackController) StartFrom(id domain.ProviderID, center domain.GeoPoint, zoom int) (domain.RenderAttempt, error) {
	idx, ok := c.registry.Index(id)
	if !ok {
		return domain.RenderAttempt{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
			"provider_id": "unknown provider " + string(id),
		})
	}
	return c.startAt(idx, center, zoom)
}

func (c *FallbackController) startAt(idx int, center domain.GeoPoint, zoom int) (domain.RenderAttempt, error) {
	if !center.Valid() {
		return domain.RenderAttempt{}, apperrors.ErrInvalidCoordinates
	}
	if !domain.ValidZoom(zoom) {
		return domain.RenderAttempt{}, apperrors.ErrInvalidZoom
	}

	c.state = domain.FallbackState{
		AttemptedProviderIDs: make([]domain.ProviderID, 0, c.registry.Len()-idx),
		Phase:                domain.PhaseRendering,
	}
	c.index = idx

	return c.issue(center, zoom), nil
}

// issue выдаёт новую попытку для провайдера с текущим индексом
func (c *FallbackController) issue(center domain.GeoPoint, zoom int) domain.RenderAttempt {
	d := c.registry.At(c.index)
	c.seq++

	c.attempt = domain.RenderAttempt{
		Token:      domain.AttemptToken{ProviderID: d.ID, Seq: c.seq},
		ProviderID: d.ID,
		URL:        d.BuildRenderURL(center, zoom),
		Center:     center,
		Zoom:       zoom,
	}
	c.issued = true

	c.state.CurrentProviderID = d.ID
	c.state.AttemptedProviderIDs = append(c.state.AttemptedProviderIDs, d.ID)

	c.metrics.RenderAttempts.WithLabelValues(string(d.ID), "issued").Inc()
	c.logger.Debug("Render attempt issued",
		zap.String("provider", string(d.ID)),
		zap.Uint64("seq", c.seq))

	return c.attempt
}

// OnLoadError обрабатывает сбой загрузки изображения. Возвращает следующую
// попытку, либо ErrAllProvidersUnavailable ровно один раз при исчерпании цепочки.
// Устаревшие колбэки и вызовы после исчерпания ничего не делают (nil, nil).
func (c *FallbackController) OnLoadError(token domain.AttemptToken) (*domain.RenderAttempt, error) {
	if !c.accepts(token) {
		return nil, nil
	}

	c.state.AttemptCount++
	c.metrics.RenderAttempts.WithLabelValues(string(token.ProviderID), "error").Inc()

	if c.index+1 >= c.registry.Len() {
		c.state.Exhausted = true
		c.state.Phase = domain.PhaseFailed
		c.metrics.RenderExhausted.Inc()

		c.logger.Warn("All map providers failed",
			zap.Any("attempted", c.state.AttemptedProviderIDs),
			zap.Int("attempts", c.state.AttemptCount))

		return nil, apperrors.ErrAllProvidersUnavailable.WithDetails(map[string]interface{}{
			"attempted_provider_ids": c.attemptedCopy(),
		})
	}

	c.logger.Info("Map provider failed, falling back",
		zap.String("provider", string(token.ProviderID)),
		zap.Int("attempt_count", c.state.AttemptCount))

	c.index++
	next := c.issue(c.attempt.Center, c.attempt.Zoom)
	return &next, nil
}

// OnLoadSuccess фиксирует текущего провайдера до следующего Start
func (c *FallbackController) OnLoadSuccess(token domain.AttemptToken) bool {
	if !c.accepts(token) {
		return false
	}

	c.state.Phase = domain.PhaseSuccess
	c.metrics.RenderAttempts.WithLabelValues(string(token.ProviderID), "success").Inc()
	c.logger.Debug("Map rendered", zap.String("provider", string(token.ProviderID)))

	return true
}

// Reset - явный возврат в Idle по действию пользователя
func (c *FallbackController) Reset() {
	c.state = domain.FallbackState{Phase: domain.PhaseIdle}
	c.index = 0
	c.attempt = domain.RenderAttempt{}
	c.issued = false
}

// accepts проверяет, что колбэк относится к активной попытке
func (c *FallbackController) accepts(token domain.AttemptToken) bool {
	if c.state.Phase != domain.PhaseRendering {
		if c.state.Exhausted {
			c.logger.Debug("Load callback ignored: providers exhausted", zap.String("token", token.String()))
		}
		return false
	}
	if token != c.attempt.Token {
		c.metrics.StaleCallbacks.Inc()
		c.logger.Debug("Stale load callback ignored",
			zap.String("token", token.String()),
			zap.String("current", c.attempt.Token.String()))
		return false
	}
	return true
}

// State возвращает копию состояния
func (c *FallbackController) State() domain.FallbackState {
	s := c.state
	s.AttemptedProviderIDs = c.attemptedCopy()
	return s
}

// Attempt - последняя выданная попытка (false после Reset или до первого Start)
func (c *FallbackController) Attempt() (domain.RenderAttempt, bool) {
	return c.attempt, c.issued
}

// CurrentProvider - провайдер последней выданной попытки
func (c *FallbackController) CurrentProvider() (provider.Descriptor, bool) {
	if !c.issued {
		return provider.Descriptor{}, false
	}
	return c.registry.Get(c.state.CurrentProviderID)
}

func (c *FallbackController) attemptedCopy() []domain.ProviderID {
	out := make([]domain.ProviderID, len(c.state.AttemptedProviderIDs))
	copy(out, c.state.AttemptedProviderIDs)
	return out
}
