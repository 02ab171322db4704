package repository

import (
	"context"

	"github.com/map-location-service/internal/domain"
)

// Geocoder выполняет текстовый поиск через активного провайдера
// (или первого провайдера с поддержкой поиска)
type Geocoder interface {
	Search(ctx context.Context, query string, active domain.ProviderID) ([]domain.SearchResult, error)
}
