package domain

import "time"

// ProviderID - идентификатор провайдера карт
type ProviderID string

// LocationSource - откуда пришла выбранная локация: клик, устройство или
// идентификатор провайдера, выполнившего поиск
type LocationSource string

const (
	SourceClick  LocationSource = "click"
	SourceDevice LocationSource = "device"
)

// SourceFromProvider - источник для локации, найденной поиском
func SourceFromProvider(id ProviderID) LocationSource {
	return LocationSource(id)
}

// ResolvedLocation - выбранная пользователем локация.
// Каждый новый выбор полностью заменяет предыдущий, значение не изменяется.
type ResolvedLocation struct {
	Point      GeoPoint       `json:"point"`
	Address    string         `json:"address"`
	Source     LocationSource `json:"source"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// SearchResult - нормализованный результат геокодирования.
// Порядок результатов - порядок релевантности провайдера.
type SearchResult struct {
	Point     GeoPoint   `json:"point"`
	Label     string     `json:"label"`
	FullLabel string     `json:"full_label"`
	Provider  ProviderID `json:"provider"`
}
