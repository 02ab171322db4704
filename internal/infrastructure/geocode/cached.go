package geocode

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	"github.com/map-location-service/internal/infrastructure/provider"
	"github.com/map-location-service/internal/pkg/metrics"
)

// CachedGeocoder - декоратор, кеширующий непустые результаты поиска в Redis
type CachedGeocoder struct {
	inner    repository.Geocoder
	registry *provider.Registry
	cache    repository.CacheRepository
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

var _ repository.Geocoder = (*CachedGeocoder)(nil)

// NewCachedGeocoder - ключ кеша строится по провайдеру, который фактически
// выполнит поиск, а не по активному провайдеру карты
func NewCachedGeocoder(
	inner repository.Geocoder,
	registry *provider.Registry,
	cache repository.CacheRepository,
	ttl time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CachedGeocoder {
	return &CachedGeocoder{
		inner:    inner,
		registry: registry,
		cache:    cache,
		ttl:      ttl,
		metrics:  m,
		logger:   logger,
	}
}

func (c *CachedGeocoder) Search(ctx context.Context, query string, active domain.ProviderID) ([]domain.SearchResult, error) {
	d, ok := c.registry.SearchProvider(active)
	if !ok {
		return c.inner.Search(ctx, query, active)
	}
	key := cacheKey(query, d.ID)

	cached, err := c.cache.Get(ctx, key)
	if err == nil && cached != nil {
		var results []domain.SearchResult
		if err := json.Unmarshal(cached, &results); err == nil && len(results) > 0 {
			c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			return results, nil
		}
		c.logger.Warn("Dropping malformed cached search results", zap.String("key", key))
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	results, err := c.inner.Search(ctx, query, active)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("Failed to marshal search results", zap.Error(err))
		return results, nil
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search results", zap.String("key", key), zap.Error(err))
	}

	return results, nil
}

// cacheKey нормализует пробелы и регистр запроса
func cacheKey(query string, searchProvider domain.ProviderID) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return "geocode:" + string(searchProvider) + ":" + normalized
}
