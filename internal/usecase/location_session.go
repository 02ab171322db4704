package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/projection"
)

// LocationSelectFunc вызывается один раз на каждый успешный выбор.
// Не должен блокировать.
type LocationSelectFunc func(domain.ResolvedLocation)

// LocationSession - состояние одного вида карты: центр и масштаб,
// цепочка провайдеров, последние результаты поиска и выбранная локация.
// Не потокобезопасна, синхронизацию обеспечивает вызывающий код.
type LocationSession struct {
	id         uuid.UUID
	controller *FallbackController
	geocoder   repository.Geocoder
	clock      clockwork.Clock
	onSelect   LocationSelectFunc
	logger     *zap.Logger

	center domain.GeoPoint
	zoom   int

	current      *domain.ResolvedLocation
	lastResults  []domain.SearchResult
	searchOrigin domain.GeoPoint
}

func NewLocationSession(
	id uuid.UUID,
	controller *FallbackController,
	geocoder repository.Geocoder,
	clock clockwork.Clock,
	center domain.GeoPoint,
	zoom int,
	onSelect LocationSelectFunc,
	logger *zap.Logger,
) (*LocationSession, error) {
	if _, err := domain.NewGeoPoint(center.Lat, center.Lng); err != nil {
		return nil, err
	}
	if !domain.ValidZoom(zoom) {
		return nil, apperrors.ErrInvalidZoom
	}

	return &LocationSession{
		id:         id,
		controller: controller,
		geocoder:   geocoder,
		clock:      clock,
		onSelect:   onSelect,
		logger:     logger.With(zap.String("session_id", id.String())),
		center:     center,
		zoom:       zoom,
	}, nil
}

func (s *LocationSession) ID() uuid.UUID {
	return s.id
}

func (s *LocationSession) Center() domain.GeoPoint {
	return s.center
}

func (s *LocationSession) Zoom() int {
	return s.zoom
}

// StartRender начинает цепочку провайдеров для текущего вида
func (s *LocationSession) StartRender() (domain.RenderAttempt, error) {
	return s.controller.Start(s.center, s.zoom)
}

// SetView меняет центр и масштаб; новый URL требует новой цепочки
func (s *LocationSession) SetView(center domain.GeoPoint, zoom int) (domain.RenderAttempt, error) {
	if _, err := domain.NewGeoPoint(center.Lat, center.Lng); err != nil {
		return domain.RenderAttempt{}, err
	}
	if !domain.ValidZoom(zoom) {
		return domain.RenderAttempt{}, apperrors.ErrInvalidZoom
	}

	s.center = center
	s.zoom = zoom
	return s.controller.Start(center, zoom)
}

// SelectFromClick переводит клик по изображению в координаты.
// При ошибке предыдущая локация сохраняется.
func (s *LocationSession) SelectFromClick(click domain.Pixel, viewport domain.ViewportRect) (domain.ResolvedLocation, error) {
	if d, ok := s.controller.CurrentProvider(); ok && !d.SupportsClick {
		return domain.ResolvedLocation{}, apperrors.ErrClickUnsupported.WithDetails(map[string]interface{}{
			"provider_id": string(d.ID),
		})
	}

	point, err := projection.PixelToGeo(click, viewport, s.center, s.zoom)
	if err != nil {
		return domain.ResolvedLocation{}, err
	}

	loc := domain.ResolvedLocation{
		Point:      point,
		Address:    point.String(),
		Source:     domain.SourceClick,
		ResolvedAt: s.clock.Now(),
	}
	s.store(loc)

	return loc, nil
}

// SelectFromSearch выбирает первый результат поиска и перецентрирует карту на него
func (s *LocationSession) SelectFromSearch(ctx context.Context, query string) (domain.ResolvedLocation, error) {
	results, err := s.geocoder.Search(ctx, query, s.controller.State().CurrentProviderID)
	if err != nil {
		s.logger.Debug("Search selection failed", zap.String("query", query), zap.Error(err))
		return domain.ResolvedLocation{}, err
	}

	s.lastResults = results
	s.searchOrigin = s.center

	return s.selectResult(0)
}

// SelectSearchResult выбирает другой результат последнего поиска
func (s *LocationSession) SelectSearchResult(index int) (domain.ResolvedLocation, error) {
	if index < 0 || index >= len(s.lastResults) {
		return domain.ResolvedLocation{}, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
			"index":   index,
			"results": len(s.lastResults),
		})
	}
	return s.selectResult(index)
}

func (s *LocationSession) selectResult(index int) (domain.ResolvedLocation, error) {
	r := s.lastResults[index]

	address := r.FullLabel
	if address == "" {
		address = r.Label
	}

	loc := domain.ResolvedLocation{
		Point:      r.Point,
		Address:    address,
		Source:     domain.SourceFromProvider(r.Provider),
		ResolvedAt: s.clock.Now(),
	}
	s.store(loc)
	s.recenter(r.Point)

	return loc, nil
}

// SelectFromDeviceLocation принимает координату геолокации устройства
func (s *LocationSession) SelectFromDeviceLocation(point domain.GeoPoint) (domain.ResolvedLocation, error) {
	if _, err := domain.NewGeoPoint(point.Lat, point.Lng); err != nil {
		return domain.ResolvedLocation{}, err
	}

	loc := domain.ResolvedLocation{
		Point:      point,
		Address:    point.String(),
		Source:     domain.SourceDevice,
		ResolvedAt: s.clock.Now(),
	}
	s.store(loc)
	s.recenter(point)

	return loc, nil
}

// Current возвращает выбранную локацию или false, если выбора ещё не было
func (s *LocationSession) Current() (domain.ResolvedLocation, bool) {
	if s.current == nil {
		return domain.ResolvedLocation{}, false
	}
	return *s.current, true
}

// LastResults - копия результатов последнего поиска и центр карты на момент поиска
func (s *LocationSession) LastResults() ([]domain.SearchResult, domain.GeoPoint) {
	out := make([]domain.SearchResult, len(s.lastResults))
	copy(out, s.lastResults)
	return out, s.searchOrigin
}

// MarkerPixel - положение маркера выбранной локации в viewport.
// false, если локация не выбрана или не попадает в изображение.
func (s *LocationSession) MarkerPixel(viewport domain.ViewportRect) (domain.Pixel, bool, error) {
	if !viewport.Valid() {
		return domain.Pixel{}, false, apperrors.ErrInvalidViewport
	}
	if s.current == nil {
		return domain.Pixel{}, false, nil
	}

	px, inside := projection.GeoToPixel(s.current.Point, viewport, s.center, s.zoom)
	return px, inside, nil
}

// Render возвращает контроллер для обработки событий загрузки
func (s *LocationSession) Render() *FallbackController {
	return s.controller
}

// RetryRender - повтор пользователем после исчерпания: Reset и новый Start
func (s *LocationSession) RetryRender() (domain.RenderAttempt, error) {
	s.controller.Reset()
	return s.controller.Start(s.center, s.zoom)
}

// TryProvider - ручной выбор провайдера
func (s *LocationSession) TryProvider(id domain.ProviderID) (domain.RenderAttempt, error) {
	return s.controller.StartFrom(id, s.center, s.zoom)
}

// store полностью заменяет предыдущую локацию
func (s *LocationSession) store(loc domain.ResolvedLocation) {
	s.current = &loc

	s.logger.Info("Location selected",
		zap.String("source", string(loc.Source)),
		zap.Float64("lat", loc.Point.Lat),
		zap.Float64("lng", loc.Point.Lng))

	if s.onSelect != nil {
		s.onSelect(loc)
	}
}

func (s *LocationSession) recenter(point domain.GeoPoint) {
	s.center = point
	if _, err := s.controller.Start(point, s.zoom); err != nil {
		s.logger.Error("Failed to restart rendering after recenter", zap.Error(err))
	}
}
