package provider

import (
	"sort"

	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain"
	apperrors "github.com/map-location-service/internal/pkg/errors"
)

// Registry - упорядоченный по приоритету список провайдеров.
// После создания не изменяется; другой порядок - другой реестр.
type Registry struct {
	providers []Descriptor
}

// NewRegistry исключает провайдеров, которым нужен ключ, но ключ не задан,
// и сортирует оставшихся по приоритету (при равенстве - порядок регистрации).
func NewRegistry(logger *zap.Logger, descriptors ...Descriptor) (*Registry, error) {
	providers := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if !d.usable() {
			logger.Warn("Map provider excluded: API key is not configured",
				zap.String("provider", string(d.ID)))
			continue
		}
		providers = append(providers, d)
	}

	if len(providers) == 0 {
		return nil, apperrors.ErrConfiguration
	}

	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority < providers[j].Priority
	})

	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = string(p.ID)
	}
	logger.Info("Map provider registry built", zap.Strings("order", ids))

	return &Registry{providers: providers}, nil
}

// NewDefaultRegistry собирает встроенных провайдеров из конфигурации
func NewDefaultRegistry(mapCfg *config.MapConfig, cfg *config.ProvidersConfig, logger *zap.Logger) (*Registry, error) {
	opts := Options{
		Width:     mapCfg.ImageWidth,
		Height:    mapCfg.ImageHeight,
		Language:  mapCfg.Language,
		UserAgent: cfg.NominatimUserAgent,
	}

	return NewRegistry(logger,
		NewYandex(cfg.YandexAPIKey, opts),
		NewGoogle(cfg.GoogleAPIKey, opts),
		NewOSMStatic(opts),
		NewOSMTile(opts),
	)
}

func (r *Registry) Len() int {
	return len(r.providers)
}

// At возвращает провайдера по позиции в fallback-последовательности
func (r *Registry) At(i int) Descriptor {
	return r.providers[i]
}

// Index - позиция провайдера в последовательности
func (r *Registry) Index(id domain.ProviderID) (int, bool) {
	for i, p := range r.providers {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (r *Registry) Get(id domain.ProviderID) (Descriptor, bool) {
	i, ok := r.Index(id)
	if !ok {
		return Descriptor{}, false
	}
	return r.providers[i], true
}

// Providers возвращает копию последовательности
func (r *Registry) Providers() []Descriptor {
	out := make([]Descriptor, len(r.providers))
	copy(out, r.providers)
	return out
}

// SearchProvider выбирает провайдера для поиска: активный, если умеет искать,
// иначе первый в реестре с поддержкой поиска.
func (r *Registry) SearchProvider(active domain.ProviderID) (Descriptor, bool) {
	if d, ok := r.Get(active); ok && d.SupportsSearch() {
		return d, true
	}
	for _, p := range r.providers {
		if p.SupportsSearch() {
			return p, true
		}
	}
	return Descriptor{}, false
}
