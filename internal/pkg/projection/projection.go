// Package projection переводит координаты между пиксельным пространством
// изображения карты, географическими координатами и slippy-map тайлами.
//
// Пиксель -> гео считается линейным приближением без обратной проекции
// Меркатора: на малых масштабах ошибка достигает сотен метров.
package projection

import (
	"math"

	"github.com/map-location-service/internal/domain"
	apperrors "github.com/map-location-service/internal/pkg/errors"
)

// MaxMercatorLatitude - предел широты Web-Mercator
const MaxMercatorLatitude = 85.05112878

const earthRadiusKm = 6371.0

// AngularSpanForZoom - угловой охват (в градусах широты) изображения на масштабе zoom.
// Это приближение, а не замена настоящей проекции.
func AngularSpanForZoom(zoom int) float64 {
	return 180 / math.Exp2(float64(zoom))
}

// PixelToGeo приближённо вычисляет географическую точку клика по изображению карты
func PixelToGeo(click domain.Pixel, viewport domain.ViewportRect, center domain.GeoPoint, zoom int) (domain.GeoPoint, error) {
	if !viewport.Valid() {
		return domain.GeoPoint{}, apperrors.ErrInvalidViewport.WithDetails(map[string]interface{}{
			"width":  viewport.Width,
			"height": viewport.Height,
		})
	}
	if !viewport.Contains(click) {
		return domain.GeoPoint{}, apperrors.ErrInvalidViewport.WithDetails(map[string]interface{}{
			"x": click.X,
			"y": click.Y,
		})
	}
	if !center.Valid() {
		return domain.GeoPoint{}, apperrors.ErrInvalidCoordinates
	}
	if !domain.ValidZoom(zoom) {
		return domain.GeoPoint{}, apperrors.ErrInvalidZoom.WithDetails(map[string]interface{}{
			"zoom": zoom,
		})
	}

	x := (click.X - viewport.X) / viewport.Width
	y := (click.Y - viewport.Y) / viewport.Height
	span := AngularSpanForZoom(zoom)

	lat := center.Lat + (0.5-y)*span
	lng := center.Lng + (x-0.5)*span*2

	return domain.NewGeoPoint(lat, lng)
}

// GeoToPixel - обратное к PixelToGeo преобразование, используется для
// размещения маркера. Второе значение - попадает ли точка в viewport.
func GeoToPixel(point domain.GeoPoint, viewport domain.ViewportRect, center domain.GeoPoint, zoom int) (domain.Pixel, bool) {
	span := AngularSpanForZoom(zoom)

	px := domain.Pixel{
		X: viewport.X + (0.5+(point.Lng-center.Lng)/(span*2))*viewport.Width,
		Y: viewport.Y + (0.5-(point.Lat-center.Lat)/span)*viewport.Height,
	}
	return px, viewport.Contains(px)
}

// ClampLatitude ограничивает широту пределом Web-Mercator.
// Вызывающий код обязан применять её перед GeoToTile.
func ClampLatitude(lat float64) float64 {
	return math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, lat))
}

// GeoToTile - стандартная формула slippy-map. Ожидает широту в пределах
// ±MaxMercatorLatitude.
func GeoToTile(point domain.GeoPoint, zoom int) domain.Tile {
	n := math.Exp2(float64(zoom))
	latRad := point.Lat * math.Pi / 180

	x := math.Floor((point.Lng + 180) / 360 * n)
	y := math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)

	// lng = 180 и округления у предела широты дают индекс n
	maxIdx := n - 1
	return domain.Tile{
		X: int(math.Max(0, math.Min(maxIdx, x))),
		Y: int(math.Max(0, math.Min(maxIdx, y))),
		Z: zoom,
	}
}

// TileToGeo возвращает северо-западный угол тайла
func TileToGeo(tile domain.Tile) domain.GeoPoint {
	n := math.Exp2(float64(tile.Z))

	lng := float64(tile.X)/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(tile.Y)/n)))

	return domain.GeoPoint{Lat: latRad * 180 / math.Pi, Lng: lng}
}

// DistanceKm - расстояние по большому кругу между двумя точками
func DistanceKm(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
