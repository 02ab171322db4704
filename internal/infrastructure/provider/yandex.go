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
)

const (
	ProviderYandex domain.ProviderID = "yandex"

	yandexStaticURL   = "https://static-maps.yandex.ru/v1"
	yandexGeocoderURL = "https://geocode-maps.yandex.ru/1.x/"
)

// NewYandex - основной провайдер: Static API v1 и Геокодер. Требует ключ.
func NewYandex(apiKey string, opts Options) Descriptor {
	lang := yandexLang(opts.Language)
	return Descriptor{
		ID:            ProviderYandex,
		Priority:      10,
		RequiresKey:   true,
		APIKey:        apiKey,
		SupportsClick: true,
		Renderer: yandexStatic{
			baseURL: orDefault(opts.RenderBaseURL, yandexStaticURL),
			apiKey:  apiKey,
			size:    fmt.Sprintf("%d,%d", opts.Width, opts.Height),
			lang:    lang,
		},
		Searcher: yandexGeocoder{
			baseURL: orDefault(opts.SearchBaseURL, yandexGeocoderURL),
			apiKey:  apiKey,
			lang:    lang,
		},
	}
}

func yandexLang(lang string) string {
	switch lang {
	case "ru":
		return "ru_RU"
	case "uk":
		return "uk_UA"
	case "tr":
		return "tr_TR"
	default:
		return "en_US"
	}
}

type yandexStatic struct {
	baseURL string
	apiKey  string
	size    string
	lang    string
}

func (y yandexStatic) RenderURL(center domain.GeoPoint, zoom int) string {
	params := url.Values{
		"ll":     {formatCoord(center.Lng) + "," + formatCoord(center.Lat)},
		"z":      {strconv.Itoa(zoom)},
		"size":   {y.size},
		"lang":   {y.lang},
		"apikey": {y.apiKey},
	}
	return y.baseURL + "?" + params.Encode()
}

type yandexGeocoder struct {
	baseURL string
	apiKey  string
	lang    string
}

func (y yandexGeocoder) SearchRequest(ctx context.Context, query string) (*http.Request, error) {
	params := url.Values{
		"apikey":  {y.apiKey},
		"geocode": {query},
		"format":  {"json"},
		"lang":    {y.lang},
		"results": {"10"},
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+params.Encode(), nil)
}

// Ответ Геокодера: координаты в Point.pos в порядке "долгота широта"
type yandexResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Name             string `json:"name"`
					Description      string `json:"description"`
					MetaDataProperty struct {
						GeocoderMetaData struct {
							Text string `json:"text"`
						} `json:"GeocoderMetaData"`
					} `json:"metaDataProperty"`
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

func (y yandexGeocoder) Normalize(body []byte) ([]domain.SearchResult, error) {
	var resp yandexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode yandex response: %w", err)
	}

	members := resp.Response.GeoObjectCollection.FeatureMember
	results := make([]domain.SearchResult, 0, len(members))
	for _, m := range members {
		obj := m.GeoObject
		point, err := parseLngLatPair(obj.Point.Pos)
		if err != nil {
			return nil, err
		}

		fullLabel := obj.MetaDataProperty.GeocoderMetaData.Text
		if fullLabel == "" {
			fullLabel = strings.TrimSpace(obj.Name + ", " + obj.Description)
		}

		results = append(results, domain.SearchResult{
			Point:     point,
			Label:     obj.Name,
			FullLabel: fullLabel,
			Provider:  ProviderYandex,
		})
	}
	return results, nil
}

func parseLngLatPair(pos string) (domain.GeoPoint, error) {
	fields := strings.Fields(pos)
	if len(fields) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("malformed position %q", pos)
	}
	lng, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("malformed longitude %q: %w", fields[0], err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("malformed latitude %q: %w", fields[1], err)
	}
	return domain.GeoPoint{Lat: lat, Lng: lng}, nil
}
