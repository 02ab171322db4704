package dto

import (
	"time"

	"github.com/map-location-service/internal/domain"
)

// SessionResponse - снимок сессии карты
type SessionResponse struct {
	ID       string          `json:"id"`
	Center   domain.GeoPoint `json:"center"`
	Zoom     int             `json:"zoom"`
	Render   RenderState     `json:"render"`
	Location *Location       `json:"location,omitempty"`
	Results  []SearchResult  `json:"search_results,omitempty"`
}

// RenderState - состояние цепочки провайдеров и активная попытка
type RenderState struct {
	Phase                string         `json:"phase"`
	CurrentProviderID    string         `json:"current_provider_id,omitempty"`
	AttemptedProviderIDs []string       `json:"attempted_provider_ids"`
	AttemptCount         int            `json:"attempt_count"`
	Exhausted            bool           `json:"exhausted"`
	SupportsClick        bool           `json:"supports_click"`
	Attempt              *RenderAttempt `json:"attempt,omitempty"`
}

// RenderAttempt - URL изображения и токен для сообщения о результате загрузки
type RenderAttempt struct {
	Token      string `json:"token"`
	ProviderID string `json:"provider_id"`
	URL        string `json:"url"`
}

// RenderEventResponse - принят ли колбэк (устаревшие игнорируются)
type RenderEventResponse struct {
	Accepted bool        `json:"accepted"`
	Render   RenderState `json:"render"`
}

// Location - выбранная локация
type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Address    string    `json:"address"`
	Source     string    `json:"source"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// LocationResponse - текущая локация и положение маркера
type LocationResponse struct {
	Location *Location `json:"location"`
	Marker   *Marker   `json:"marker,omitempty"`
}

// Marker - пиксель маркера во viewport
type Marker struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Inside bool    `json:"inside"`
}

// SearchResult - результат геокодирования с расстоянием от центра карты
type SearchResult struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Label      string  `json:"label"`
	FullLabel  string  `json:"full_label"`
	Provider   string  `json:"provider"`
	DistanceKm float64 `json:"distance_km"`
}

// GeocodeResponse - результаты поиска без сессии
type GeocodeResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// Provider - провайдер карт из реестра
type Provider struct {
	ID             string `json:"id"`
	Priority       int    `json:"priority"`
	RequiresKey    bool   `json:"requires_key"`
	SupportsSearch bool   `json:"supports_search"`
	SupportsClick  bool   `json:"supports_click"`
}

// ProvidersResponse - реестр в порядке fallback
type ProvidersResponse struct {
	Providers []Provider `json:"providers"`
}
