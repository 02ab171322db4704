// Package provider описывает провайдеров карт и неизменяемый реестр,
// задающий порядок fallback-цепочки.
package provider

import (
	"context"
	"net/http"
	"strconv"

	"github.com/map-location-service/internal/domain"
)

// Renderer строит URL статического изображения карты.
// RenderURL обязан быть чистой функцией: одинаковые входы - одинаковый URL.
type Renderer interface {
	RenderURL(center domain.GeoPoint, zoom int) string
}

// Searcher - адаптер геокодера конкретного провайдера: строит запрос
// и нормализует ответ в общий формат с сохранением порядка.
type Searcher interface {
	SearchRequest(ctx context.Context, query string) (*http.Request, error)
	Normalize(body []byte) ([]domain.SearchResult, error)
}

// Options - общие параметры отрисовки и адреса API (пустые значения - адреса по умолчанию)
type Options struct {
	Width         int
	Height        int
	Language      string
	RenderBaseURL string
	SearchBaseURL string
	UserAgent     string
}

// Descriptor - описание провайдера. Создаётся один раз при старте.
type Descriptor struct {
	ID            domain.ProviderID
	Priority      int
	RequiresKey   bool
	APIKey        string
	SupportsClick bool
	Renderer      Renderer
	Searcher      Searcher
}

// BuildRenderURL - URL изображения карты для центра и масштаба
func (d Descriptor) BuildRenderURL(center domain.GeoPoint, zoom int) string {
	return d.Renderer.RenderURL(center, zoom)
}

// BuildSearchRequest возвращает nil, nil для провайдеров без поиска
func (d Descriptor) BuildSearchRequest(ctx context.Context, query string) (*http.Request, error) {
	if d.Searcher == nil {
		return nil, nil
	}
	return d.Searcher.SearchRequest(ctx, query)
}

func (d Descriptor) SupportsSearch() bool {
	return d.Searcher != nil
}

func (d Descriptor) usable() bool {
	return !d.RequiresKey || d.APIKey != ""
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
