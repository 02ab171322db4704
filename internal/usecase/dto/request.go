package dto

// CreateSessionRequest - создание сессии карты. Без центра используется центр по умолчанию;
// lat и lng задаются только вместе.
type CreateSessionRequest struct {
	Lat  *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng  *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
	Zoom *int     `json:"zoom,omitempty" validate:"omitempty,min=0,max=19"`
}

// SetViewRequest - смена центра и/или масштаба карты
type SetViewRequest struct {
	Lat  *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng  *float64 `json:"lng" validate:"required,min=-180,max=180"`
	Zoom *int     `json:"zoom,omitempty" validate:"omitempty,min=0,max=19"`
}

// RenderEventRequest - результат загрузки изображения, сообщённый клиентом
type RenderEventRequest struct {
	Token   string `json:"token" validate:"required"`
	Outcome string `json:"outcome" validate:"required,oneof=success error"`
}

// TryProviderRequest - ручной выбор провайдера карты
type TryProviderRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
}

// Viewport - прямоугольник изображения карты в пикселях
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// SelectClickRequest - клик по изображению карты
type SelectClickRequest struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Viewport Viewport `json:"viewport"`
}

// SelectSearchRequest - выбор первого результата текстового поиска
type SelectSearchRequest struct {
	Query string `json:"query" validate:"required,min=1,max=256"`
}

// SelectResultRequest - выбор другого результата последнего поиска
type SelectResultRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// SelectDeviceRequest - координата геолокации устройства
type SelectDeviceRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" validate:"required,min=-180,max=180"`
}

// GeocodeRequest - поиск без сессии
type GeocodeRequest struct {
	Query    string `query:"q" validate:"required,min=1,max=256"`
	Provider string `query:"provider"`
}

// LocationRequest - текущая локация и положение маркера во viewport
type LocationRequest struct {
	Width  float64 `query:"width" validate:"omitempty,gt=0"`
	Height float64 `query:"height" validate:"omitempty,gt=0"`
}
