package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/map-location-service/internal/domain"
	"github.com/map-location-service/internal/pkg/projection"
)

const (
	ProviderOSMStatic domain.ProviderID = "osm-static"
	ProviderOSMTile   domain.ProviderID = "osm-tile"

	osmStaticURL = "https://staticmap.openstreetmap.de/staticmap.php"
	osmTileURL   = "https://tile.openstreetmap.org"
	nominatimURL = "https://nominatim.openstreetmap.org/search"
)

// NewOSMStatic - статическая карта OpenStreetMap без ключа, поиск через Nominatim
func NewOSMStatic(opts Options) Descriptor {
	return Descriptor{
		ID:            ProviderOSMStatic,
		Priority:      30,
		SupportsClick: true,
		Renderer: osmStatic{
			baseURL: orDefault(opts.RenderBaseURL, osmStaticURL),
			size:    fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		},
		Searcher: nominatim{
			baseURL:   orDefault(opts.SearchBaseURL, nominatimURL),
			lang:      opts.Language,
			userAgent: opts.UserAgent,
		},
	}
}

// NewOSMTile - последний резерв: один тайл, содержащий центр.
// Центр тайла не совпадает с центром карты, поэтому клик не поддерживается.
func NewOSMTile(opts Options) Descriptor {
	return Descriptor{
		ID:       ProviderOSMTile,
		Priority: 40,
		Renderer: osmTile{baseURL: orDefault(opts.RenderBaseURL, osmTileURL)},
	}
}

type osmStatic struct {
	baseURL string
	size    string
}

func (o osmStatic) RenderURL(center domain.GeoPoint, zoom int) string {
	params := url.Values{
		"center":  {formatCoord(center.Lat) + "," + formatCoord(center.Lng)},
		"zoom":    {strconv.Itoa(zoom)},
		"size":    {o.size},
		"maptype": {"mapnik"},
	}
	return o.baseURL + "?" + params.Encode()
}

type osmTile struct {
	baseURL string
}

func (o osmTile) RenderURL(center domain.GeoPoint, zoom int) string {
	clamped := domain.GeoPoint{Lat: projection.ClampLatitude(center.Lat), Lng: center.Lng}
	tile := projection.GeoToTile(clamped, zoom)
	return fmt.Sprintf("%s/%d/%d/%d.png", o.baseURL, tile.Z, tile.X, tile.Y)
}

type nominatim struct {
	baseURL   string
	lang      string
	userAgent string
}

func (n nominatim) SearchRequest(ctx context.Context, query string) (*http.Request, error) {
	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"limit":           {"10"},
		"accept-language": {n.lang},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// Политика Nominatim требует идентифицирующий User-Agent
	req.Header.Set("User-Agent", n.userAgent)
	return req, nil
}

// nominatimPlace - координаты в ответе приходят строками
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

func (n nominatim) Normalize(body []byte) ([]domain.SearchResult, error) {
	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(places))
	for _, p := range places {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed latitude %q: %w", p.Lat, err)
		}
		lng, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed longitude %q: %w", p.Lon, err)
		}

		label := p.Name
		if label == "" {
			label, _, _ = strings.Cut(p.DisplayName, ",")
		}

		results = append(results, domain.SearchResult{
			Point:     domain.GeoPoint{Lat: lat, Lng: lng},
			Label:     strings.TrimSpace(label),
			FullLabel: p.DisplayName,
			Provider:  ProviderOSMStatic,
		})
	}
	return results, nil
}
