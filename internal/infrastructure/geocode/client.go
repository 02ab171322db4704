package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/domain/repository"
	"github.com/map-location-service/internal/infrastructure/provider"
	apperrors "github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/metrics"
)

const (
	// maxResponseSize - ограничение на размер ответа геокодера
	maxResponseSize = 2 << 20
	// defaultTimeout ограничивает общий запрос, если таймаут не задан
	defaultTimeout = 5 * time.Second
)

type Client struct {
	registry   *provider.Registry
	httpClient *http.Client
	limiters   map[domain.ProviderID]*rate.Limiter
	group      singleflight.Group
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ repository.Geocoder = (*Client)(nil)

// NewClient создаёт клиент геокодирования поверх реестра провайдеров.
// Каждому провайдеру с поиском выделяется свой rate limiter.
func NewClient(registry *provider.Registry, cfg *config.GeocodeConfig, m *metrics.Metrics, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiters := make(map[domain.ProviderID]*rate.Limiter)
	for _, d := range registry.Providers() {
		if d.SupportsSearch() {
			limiters[d.ID] = rate.NewLimiter(limit, 1)
		}
	}

	return &Client{
		registry: registry,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiters: limiters,
		metrics:  m,
		logger:   logger,
	}
}

// Search ищет по тексту через активного провайдера или первого провайдера
// с поддержкой поиска. Порядок результатов - порядок провайдера.
func (c *Client) Search(ctx context.Context, query string, active domain.ProviderID) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidInput.WithDetails(map[string]interface{}{
			"query": "must not be empty",
		})
	}

	d, ok := c.registry.SearchProvider(active)
	if !ok {
		return nil, apperrors.ErrSearchUnavailable
	}

	if d.ID != active {
		c.logger.Debug("Active provider has no search, using fallback",
			zap.String("active", string(active)),
			zap.String("provider", string(d.ID)))
	}

	// Одинаковые одновременные запросы выполняются один раз. Общий запрос не
	// привязан к отмене первого вызывающего, его ограничивает таймаут httpClient;
	// каждый вызывающий ждёт результат не дольше своего ctx.
	ch := c.group.DoChan(string(d.ID)+"\x00"+query, func() (interface{}, error) {
		return c.search(context.WithoutCancel(ctx), d, query)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("wait for geocoder: %w", ctx.Err()))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		results := res.Val.([]domain.SearchResult)
		if res.Shared {
			results = append([]domain.SearchResult(nil), results...)
		}
		return results, nil
	}
}

func (c *Client) search(ctx context.Context, d provider.Descriptor, query string) ([]domain.SearchResult, error) {
	if lim := c.limiters[d.ID]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := d.BuildSearchRequest(ctx, query)
	if err != nil {
		c.logger.Error("Failed to create search request", zap.String("provider", string(d.ID)), zap.Error(err))
		return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("create request: %w", err))
	}

	c.logger.Debug("Calling geocoder",
		zap.String("provider", string(d.ID)),
		zap.String("query", query))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeDuration.WithLabelValues(string(d.ID)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "error").Inc()
		c.logger.Warn("Geocode request failed", zap.String("provider", string(d.ID)), zap.Error(err))
		return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "error").Inc()
		return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "error").Inc()
		c.logger.Warn("Geocoder returned error",
			zap.String("provider", string(d.ID)),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)))
		return nil, apperrors.ErrSearchUnavailable.Wrap(fmt.Errorf("geocoder status %d", resp.StatusCode))
	}

	raw, err := d.Searcher.Normalize(body)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "error").Inc()
		c.logger.Error("Failed to normalize geocoder response", zap.String("provider", string(d.ID)), zap.Error(err))
		return nil, apperrors.ErrSearchUnavailable.Wrap(err)
	}

	results := make([]domain.SearchResult, 0, len(raw))
	for _, r := range raw {
		if !r.Point.Valid() {
			c.logger.Warn("Skipping search result with invalid coordinates",
				zap.String("provider", string(d.ID)),
				zap.Float64("lat", r.Point.Lat),
				zap.Float64("lng", r.Point.Lng))
			continue
		}
		results = append(results, r)
	}

	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "empty").Inc()
		return nil, apperrors.ErrNoResults.WithDetails(map[string]interface{}{
			"query":    query,
			"provider": string(d.ID),
		})
	}

	c.metrics.GeocodeRequests.WithLabelValues(string(d.ID), "success").Inc()
	c.logger.Debug("Geocoder call successful",
		zap.String("provider", string(d.ID)),
		zap.Int("results", len(results)))

	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
