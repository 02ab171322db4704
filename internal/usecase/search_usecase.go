package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	"github.com/map-location-service/internal/infrastructure/provider"
	"github.com/map-location-service/internal/usecase/dto"
)

// SearchUseCase - поиск без сессии и описание реестра провайдеров
type SearchUseCase struct {
	registry *provider.Registry
	geocoder repository.Geocoder
	origin   domain.GeoPoint
	logger   *zap.Logger
}

// NewSearchUseCase - создание нового SearchUseCase. Расстояния считаются
// от центра карты по умолчанию.
func NewSearchUseCase(
	registry *provider.Registry,
	geocoder repository.Geocoder,
	mapCfg *config.MapConfig,
	logger *zap.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		registry: registry,
		geocoder: geocoder,
		origin:   domain.GeoPoint{Lat: mapCfg.DefaultLat, Lng: mapCfg.DefaultLng},
		logger:   logger,
	}
}

// Search - текстовый поиск через указанного провайдера или первого с поддержкой поиска
func (uc *SearchUseCase) Search(ctx context.Context, req dto.GeocodeRequest) (*dto.GeocodeResponse, error) {
	results, err := uc.geocoder.Search(ctx, req.Query, domain.ProviderID(req.Provider))
	if err != nil {
		uc.logger.Debug("Geocode search failed", zap.String("query", req.Query), zap.Error(err))
		return nil, err
	}

	converted := dto.ConvertSearchResults(results, uc.origin)
	return &dto.GeocodeResponse{
		Results: converted,
		Total:   len(converted),
	}, nil
}

// Providers - реестр в порядке fallback
func (uc *SearchUseCase) Providers() *dto.ProvidersResponse {
	descriptors := uc.registry.Providers()
	out := make([]dto.Provider, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, dto.Provider{
			ID:             string(d.ID),
			Priority:       d.Priority,
			RequiresKey:    d.RequiresKey,
			SupportsSearch: d.SupportsSearch(),
			SupportsClick:  d.SupportsClick,
		})
	}
	return &dto.ProvidersResponse{Providers: out}
}
