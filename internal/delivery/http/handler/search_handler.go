package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/pkg/utils"
	"github.com/map-location-service/internal/pkg/validator"
	"github.com/map-location-service/internal/usecase"
	"github.com/map-location-service/internal/usecase/dto"
)

// SearchHandler - поиск без сессии и реестр провайдеров
type SearchHandler struct {
	searchUC *usecase.SearchUseCase
	logger   *zap.Logger
}

// NewSearchHandler - создание нового SearchHandler
func NewSearchHandler(searchUC *usecase.SearchUseCase, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchUC: searchUC,
		logger:   logger,
	}
}

// Geocode godoc
// @Summary Поиск места по тексту
// @Description Геокодирование через указанного провайдера; если он не умеет искать - через первого провайдера с поиском. Порядок результатов - порядок провайдера.
// @Tags Search
// @Produce json
// @Param q query string true "Поисковый запрос"
// @Param provider query string false "Активный провайдер карты"
// @Success 200 {object} utils.SuccessResponse{data=dto.GeocodeResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/geocode [get]
func (h *SearchHandler) Geocode(c *fiber.Ctx) error {
	req := dto.GeocodeRequest{
		Query:    c.Query("q"),
		Provider: c.Query("provider"),
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.searchUC.Search(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total: result.Total,
	})
}

// Providers godoc
// @Summary Реестр провайдеров карт
// @Description Провайдеры в порядке fallback. Провайдеры без настроенного ключа исключены.
// @Tags Providers
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.ProvidersResponse}
// @Router /api/v1/providers [get]
func (h *SearchHandler) Providers(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.searchUC.Providers(), nil)
}
