package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	"github.com/map-location-service/internal/infrastructure/provider"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/metrics"
	"github.com/map-location-service/internal/usecase/dto"
)

// LocationEventPublisher принимает события выбора локации без блокировки
type LocationEventPublisher interface {
	Enqueue(event domain.LocationSelectedEvent) bool
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *LocationSession
	lastSeen time.Time
	closed   bool
}

// SessionUseCase - use case для сессий карты. Запросы к одной сессии
// сериализуются её мьютексом, разные сессии независимы.
type SessionUseCase struct {
	registry  *provider.Registry
	geocoder  repository.Geocoder
	prober    repository.RenderProber
	publisher LocationEventPublisher
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    *zap.Logger

	defaultCenter domain.GeoPoint
	defaultZoom   int
	idleTTL       time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewSessionUseCase - создание нового SessionUseCase
func NewSessionUseCase(
	registry *provider.Registry,
	geocoder repository.Geocoder,
	prober repository.RenderProber,
	publisher LocationEventPublisher,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
	mapCfg *config.MapConfig,
	sessionCfg *config.SessionConfig,
) *SessionUseCase {
	return &SessionUseCase{
		registry:      registry,
		geocoder:      geocoder,
		prober:        prober,
		publisher:     publisher,
		clock:         clock,
		metrics:       m,
		logger:        logger,
		defaultCenter: domain.GeoPoint{Lat: mapCfg.DefaultLat, Lng: mapCfg.DefaultLng},
		defaultZoom:   mapCfg.DefaultZoom,
		idleTTL:       sessionCfg.IdleTTL,
		sessions:      make(map[uuid.UUID]*sessionEntry),
	}
}

// Create создаёт сессию и выдаёт первую попытку отрисовки
func (uc *SessionUseCase) Create(req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
			"center": "lat and lng must be set together",
		})
	}

	center := uc.defaultCenter
	if req.Lat != nil {
		center = domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}
	zoom := uc.defaultZoom
	if req.Zoom != nil {
		zoom = *req.Zoom
	}

	controller, err := NewFallbackController(uc.registry, uc.metrics, uc.logger)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	session, err := NewLocationSession(id, controller, uc.geocoder, uc.clock, center, zoom, uc.selectionHook(id), uc.logger)
	if err != nil {
		return nil, err
	}

	if _, err := session.StartRender(); err != nil {
		return nil, err
	}

	entry := &sessionEntry{session: session, lastSeen: uc.clock.Now()}

	uc.mu.Lock()
	uc.sessions[id] = entry
	count := len(uc.sessions)
	uc.mu.Unlock()

	uc.metrics.ActiveSessions.Set(float64(count))
	uc.logger.Info("Map session created",
		zap.String("session_id", id.String()),
		zap.String("center", center.String()),
		zap.Int("zoom", zoom))

	return uc.snapshot(session), nil
}

// Get возвращает снимок сессии
func (uc *SessionUseCase) Get(id uuid.UUID) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

// Delete - вид карты размонтирован
func (uc *SessionUseCase) Delete(id uuid.UUID) error {
	uc.mu.Lock()
	entry, ok := uc.sessions[id]
	if ok {
		delete(uc.sessions, id)
	}
	count := len(uc.sessions)
	uc.mu.Unlock()

	if !ok {
		return apperrors.ErrSessionNotFound
	}

	entry.mu.Lock()
	entry.closed = true
	entry.mu.Unlock()

	uc.metrics.ActiveSessions.Set(float64(count))
	uc.logger.Info("Map session deleted", zap.String("session_id", id.String()))
	return nil
}

// SetView - новый центр/масштаб, цепочка провайдеров начинается заново
func (uc *SessionUseCase) SetView(id uuid.UUID, req dto.SetViewRequest) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		zoom := s.Zoom()
		if req.Zoom != nil {
			zoom = *req.Zoom
		}
		if _, err := s.SetView(domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}, zoom); err != nil {
			return err
		}
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

// Render - серверный перебор провайдеров: каждая попытка загружается с таймаутом,
// результат передаётся контроллеру до успеха или исчерпания цепочки.
// После исчерпания новых запросов нет до явного сброса.
func (uc *SessionUseCase) Render(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		if err := uc.render(ctx, s); err != nil {
			return err
		}
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

func (uc *SessionUseCase) render(ctx context.Context, s *LocationSession) error {
	controller := s.Render()

	switch controller.State().Phase {
	case domain.PhaseSuccess:
		return nil
	case domain.PhaseFailed:
		return apperrors.ErrAllProvidersUnavailable.WithDetails(map[string]interface{}{
			"attempted_provider_ids": controller.State().AttemptedProviderIDs,
		})
	case domain.PhaseIdle:
		if _, err := s.StartRender(); err != nil {
			return err
		}
	}

	attempt, _ := controller.Attempt()
	for {
		probeErr := uc.prober.Probe(ctx, attempt.URL)
		if probeErr == nil {
			controller.OnLoadSuccess(attempt.Token)
			return nil
		}

		// отмена запроса клиента - не сбой провайдера
		if ctx.Err() != nil {
			return fmt.Errorf("render interrupted: %w", ctx.Err())
		}

		uc.logger.Info("Map image failed to load",
			zap.String("session_id", s.ID().String()),
			zap.String("provider", string(attempt.ProviderID)),
			zap.Error(probeErr))

		next, err := controller.OnLoadError(attempt.Token)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		attempt = *next
	}
}

// ReportRenderEvent - событие загрузки изображения от клиента. Устаревшие токены
// не меняют состояние; ошибка исчерпания возвращается один раз.
func (uc *SessionUseCase) ReportRenderEvent(id uuid.UUID, req dto.RenderEventRequest) (*dto.RenderEventResponse, error) {
	token, err := domain.ParseAttemptToken(req.Token)
	if err != nil {
		return nil, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
			"token": err.Error(),
		})
	}

	var resp *dto.RenderEventResponse
	err = uc.withSession(id, func(s *LocationSession) error {
		controller := s.Render()
		accepted := false

		switch req.Outcome {
		case "success":
			accepted = controller.OnLoadSuccess(token)
		case "error":
			before := controller.State()
			if _, err := controller.OnLoadError(token); err != nil {
				return err
			}
			accepted = controller.State().AttemptCount != before.AttemptCount
		default:
			return apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
				"outcome": "must be success or error",
			})
		}

		resp = &dto.RenderEventResponse{
			Accepted: accepted,
			Render:   uc.renderState(s),
		}
		return nil
	})
	return resp, err
}

// RetryRender - повтор пользователем (Reset + Start)
func (uc *SessionUseCase) RetryRender(id uuid.UUID) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		if _, err := s.RetryRender(); err != nil {
			return err
		}
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

// TryProvider - ручной переход на выбранного провайдера
func (uc *SessionUseCase) TryProvider(id uuid.UUID, req dto.TryProviderRequest) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		if _, err := s.TryProvider(domain.ProviderID(req.ProviderID)); err != nil {
			return err
		}
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

// SelectFromClick - выбор кликом по изображению
func (uc *SessionUseCase) SelectFromClick(id uuid.UUID, req dto.SelectClickRequest) (*dto.SessionResponse, error) {
	click := domain.Pixel{X: req.X, Y: req.Y}
	viewport := domain.ViewportRect{
		X:      req.Viewport.X,
		Y:      req.Viewport.Y,
		Width:  req.Viewport.Width,
		Height: req.Viewport.Height,
	}

	return uc.selectWith(id, func(s *LocationSession) error {
		_, err := s.SelectFromClick(click, viewport)
		return err
	})
}

// SelectFromSearch - выбор первым результатом поиска
func (uc *SessionUseCase) SelectFromSearch(ctx context.Context, id uuid.UUID, req dto.SelectSearchRequest) (*dto.SessionResponse, error) {
	return uc.selectWith(id, func(s *LocationSession) error {
		_, err := s.SelectFromSearch(ctx, req.Query)
		return err
	})
}

// SelectSearchResult - выбор другого результата последнего поиска
func (uc *SessionUseCase) SelectSearchResult(id uuid.UUID, req dto.SelectResultRequest) (*dto.SessionResponse, error) {
	return uc.selectWith(id, func(s *LocationSession) error {
		_, err := s.SelectSearchResult(*req.Index)
		return err
	})
}

// SelectFromDevice - выбор по геолокации устройства
func (uc *SessionUseCase) SelectFromDevice(id uuid.UUID, req dto.SelectDeviceRequest) (*dto.SessionResponse, error) {
	point := domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	return uc.selectWith(id, func(s *LocationSession) error {
		_, err := s.SelectFromDeviceLocation(point)
		return err
	})
}

// Location - текущая локация; при заданном размере viewport ещё и пиксель маркера
func (uc *SessionUseCase) Location(id uuid.UUID, req dto.LocationRequest) (*dto.LocationResponse, error) {
	var resp *dto.LocationResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		resp = &dto.LocationResponse{}
		loc, ok := s.Current()
		if !ok {
			return nil
		}
		resp.Location = dto.ConvertLocation(&loc)

		if req.Width > 0 && req.Height > 0 {
			px, inside, err := s.MarkerPixel(domain.ViewportRect{Width: req.Width, Height: req.Height})
			if err != nil {
				return err
			}
			resp.Marker = &dto.Marker{X: px.X, Y: px.Y, Inside: inside}
		}
		return nil
	})
	return resp, err
}

// Sweep удаляет сессии, простаивающие дольше idle TTL. Занятые сессии пропускаются.
func (uc *SessionUseCase) Sweep(now time.Time) int {
	uc.mu.Lock()
	removed := 0
	for id, entry := range uc.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		if now.Sub(entry.lastSeen) > uc.idleTTL {
			entry.closed = true
			delete(uc.sessions, id)
			removed++
		}
		entry.mu.Unlock()
	}
	count := len(uc.sessions)
	uc.mu.Unlock()

	uc.metrics.ActiveSessions.Set(float64(count))
	if removed > 0 {
		uc.logger.Info("Idle map sessions evicted",
			zap.Int("removed", removed),
			zap.Int("active", count))
	}
	return removed
}

// Count - число активных сессий
func (uc *SessionUseCase) Count() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.sessions)
}

func (uc *SessionUseCase) selectWith(id uuid.UUID, fn func(*LocationSession) error) (*dto.SessionResponse, error) {
	var resp *dto.SessionResponse
	err := uc.withSession(id, func(s *LocationSession) error {
		if err := fn(s); err != nil {
			return err
		}
		resp = uc.snapshot(s)
		return nil
	})
	return resp, err
}

func (uc *SessionUseCase) withSession(id uuid.UUID, fn func(*LocationSession) error) error {
	uc.mu.RLock()
	entry, ok := uc.sessions[id]
	uc.mu.RUnlock()
	if !ok {
		return apperrors.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return apperrors.ErrSessionNotFound
	}
	entry.lastSeen = uc.clock.Now()

	return fn(entry.session)
}

// selectionHook публикует событие выбора локации
func (uc *SessionUseCase) selectionHook(id uuid.UUID) LocationSelectFunc {
	return func(loc domain.ResolvedLocation) {
		uc.metrics.Selections.WithLabelValues(selectionSource(loc.Source)).Inc()

		event := domain.LocationSelectedEvent{
			EventID:    uuid.New(),
			SessionID:  id,
			Location:   loc,
			OccurredAt: uc.clock.Now(),
		}
		if !uc.publisher.Enqueue(event) {
			uc.logger.Warn("Location event dropped", zap.String("session_id", id.String()))
		}
	}
}

func selectionSource(source domain.LocationSource) string {
	switch source {
	case domain.SourceClick, domain.SourceDevice:
		return string(source)
	default:
		return "search"
	}
}

func (uc *SessionUseCase) snapshot(s *LocationSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:     s.ID().String(),
		Center: s.Center(),
		Zoom:   s.Zoom(),
		Render: uc.renderState(s),
	}
	if loc, ok := s.Current(); ok {
		resp.Location = dto.ConvertLocation(&loc)
	}
	if results, origin := s.LastResults(); len(results) > 0 {
		resp.Results = dto.ConvertSearchResults(results, origin)
	}
	return resp
}

func (uc *SessionUseCase) renderState(s *LocationSession) dto.RenderState {
	controller := s.Render()
	state := controller.State()

	var attempt *domain.RenderAttempt
	if a, ok := controller.Attempt(); ok && state.Phase != domain.PhaseFailed {
		attempt = &a
	}

	supportsClick := false
	if d, ok := controller.CurrentProvider(); ok {
		supportsClick = d.SupportsClick
	}

	return dto.ConvertRenderState(state, attempt, supportsClick)
}
