package dto

import (
	"math"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/pkg/projection"
)

// ConvertLocation - nil для nil
func ConvertLocation(loc *domain.ResolvedLocation) *Location {
	if loc == nil {
		return nil
	}
	return &Location{
		Lat:        loc.Point.Lat,
		Lng:        loc.Point.Lng,
		Address:    loc.Address,
		Source:     string(loc.Source),
		ResolvedAt: loc.ResolvedAt,
	}
}

// ConvertSearchResults сохраняет порядок провайдера; расстояние считается от origin
func ConvertSearchResults(results []domain.SearchResult, origin domain.GeoPoint) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Lat:        r.Point.Lat,
			Lng:        r.Point.Lng,
			Label:      r.Label,
			FullLabel:  r.FullLabel,
			Provider:   string(r.Provider),
			DistanceKm: math.Round(projection.DistanceKm(origin, r.Point)*100) / 100,
		})
	}
	return out
}

// ConvertRenderState - attempt передаётся только пока он актуален
func ConvertRenderState(state domain.FallbackState, attempt *domain.RenderAttempt, supportsClick bool) RenderState {
	ids := make([]string, len(state.AttemptedProviderIDs))
	for i, id := range state.AttemptedProviderIDs {
		ids[i] = string(id)
	}

	rs := RenderState{
		Phase:                string(state.Phase),
		CurrentProviderID:    string(state.CurrentProviderID),
		AttemptedProviderIDs: ids,
		AttemptCount:         state.AttemptCount,
		Exhausted:            state.Exhausted,
		SupportsClick:        supportsClick,
	}
	if attempt != nil {
		rs.Attempt = &RenderAttempt{
			Token:      attempt.Token.String(),
			ProviderID: string(attempt.ProviderID),
			URL:        attempt.URL,
		}
	}
	return rs
}
