package domain

import (
	"fmt"
	"math"

	apperrors "github.com/map-location-service/internal/pkg/errors"
)

// Границы уровней масштаба, поддерживаемые всеми провайдерами карт
const (
	MinZoom = 0
	MaxZoom = 19
)

// GeoPoint - географическая точка. Значение неизменяемое, создаётся через NewGeoPoint.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewGeoPoint создаёт точку и проверяет диапазон координат
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lng: lng}
	if !p.Valid() {
		return GeoPoint{}, apperrors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
	}
	return p, nil
}

// Valid проверяет lat в [-90, 90] и lng в [-180, 180]
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
}

// ValidZoom проверяет уровень масштаба
func ValidZoom(zoom int) bool {
	return zoom >= MinZoom && zoom <= MaxZoom
}

// Pixel - точка в пиксельных координатах страницы (та же система, что и у ViewportRect)
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportRect - прямоугольник отрисованного изображения карты.
// X, Y - левый верхний угол.
type ViewportRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid - ширина и высота должны быть положительными конечными числами
func (r ViewportRect) Valid() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width > 0 && r.Height > 0
}

// Contains - попадает ли пиксель в прямоугольник (границы включительно)
func (r ViewportRect) Contains(p Pixel) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center - центральный пиксель прямоугольника
func (r ViewportRect) Center() Pixel {
	return Pixel{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Tile - координаты slippy-map тайла
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}
