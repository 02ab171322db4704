package errors

import "net/http"

// Ошибки ввода: отклоняются сразу, повторять запрос бессмысленно
var (
	ErrInvalidInput = New(
		"INVALID_INPUT",
		"Invalid input",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Coordinates are out of range",
		http.StatusBadRequest,
	)

	ErrInvalidZoom = New(
		"INVALID_ZOOM",
		"Invalid zoom level",
		http.StatusBadRequest,
	)

	ErrInvalidViewport = New(
		"INVALID_VIEWPORT",
		"Invalid viewport rectangle or click position",
		http.StatusBadRequest,
	)

	ErrClickUnsupported = New(
		"CLICK_UNSUPPORTED",
		"Active map provider does not support click-to-coordinate",
		http.StatusConflict,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)
)

// Ошибки провайдеров
var (
	ErrProviderLoad = New(
		"PROVIDER_LOAD_FAILED",
		"Map provider failed to load",
		http.StatusBadGateway,
	)

	ErrAllProvidersUnavailable = New(
		"ALL_PROVIDERS_UNAVAILABLE",
		"All map providers are unavailable",
		http.StatusServiceUnavailable,
	)

	ErrSearchUnavailable = New(
		"SEARCH_UNAVAILABLE",
		"Search is unavailable",
		http.StatusServiceUnavailable,
	)

	ErrNoResults = New(
		"NO_RESULTS",
		"Nothing found for the query",
		http.StatusNotFound,
	)

	ErrConfiguration = New(
		"CONFIGURATION_ERROR",
		"No map providers are configured",
		http.StatusInternalServerError,
	)
)

var (
	ErrSessionNotFound = New(
		"SESSION_NOT_FOUND",
		"Map session not found",
		http.StatusNotFound,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
