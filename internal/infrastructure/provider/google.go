package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/map-location-service/internal/domain"
)

const (
	ProviderGoogle domain.ProviderID = "google"

	googleStaticURL  = "https://maps.googleapis.com/maps/api/staticmap"
	googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
)

// NewGoogle - альтернативный провайдер: Static Maps и Geocoding API. Требует ключ.
func NewGoogle(apiKey string, opts Options) Descriptor {
	return Descriptor{
		ID:            ProviderGoogle,
		Priority:      20,
		RequiresKey:   true,
		APIKey:        apiKey,
		SupportsClick: true,
		Renderer: googleStatic{
			baseURL: orDefault(opts.RenderBaseURL, googleStaticURL),
			apiKey:  apiKey,
			size:    fmt.Sprintf("%dx%d", opts.Width, opts.Height),
			lang:    opts.Language,
		},
		Searcher: googleGeocoder{
			baseURL: orDefault(opts.SearchBaseURL, googleGeocodeURL),
			apiKey:  apiKey,
			lang:    opts.Language,
		},
	}
}

type googleStatic struct {
	baseURL string
	apiKey  string
	size    string
	lang    string
}

func (g googleStatic) RenderURL(center domain.GeoPoint, zoom int) string {
	params := url.Values{
		"center":   {formatCoord(center.Lat) + "," + formatCoord(center.Lng)},
		"zoom":     {strconv.Itoa(zoom)},
		"size":     {g.size},
		"language": {g.lang},
		"key":      {g.apiKey},
	}
	return g.baseURL + "?" + params.Encode()
}

type googleGeocoder struct {
	baseURL string
	apiKey  string
	lang    string
}

func (g googleGeocoder) SearchRequest(ctx context.Context, query string) (*http.Request, error) {
	params := url.Values{
		"address":  {query},
		"key":      {g.apiKey},
		"language": {g.lang},
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string `json:"long_name"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g googleGeocoder) Normalize(body []byte) ([]domain.SearchResult, error) {
	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode google response: %w", err)
	}

	switch resp.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, fmt.Errorf("google geocoding status %s: %s", resp.Status, resp.ErrorMessage)
	}

	results := make([]domain.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		label := r.FormattedAddress
		if len(r.AddressComponents) > 0 {
			label = r.AddressComponents[0].LongName
		}
		results = append(results, domain.SearchResult{
			Point:     domain.GeoPoint{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Label:     label,
			FullLabel: r.FormattedAddress,
			Provider:  ProviderGoogle,
		})
	}
	return results, nil
}
