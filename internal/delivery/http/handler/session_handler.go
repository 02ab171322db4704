package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/pkg/errors"
	"github.com/map-location-service/internal/pkg/utils"
	"github.com/map-location-service/internal/pkg/validator"
	"github.com/map-location-service/internal/usecase"
	"github.com/map-location-service/internal/usecase/dto"
)

// SessionHandler - сессии карты: отрисовка с fallback и выбор локации
type SessionHandler struct {
	sessionUC *usecase.SessionUseCase
	logger    *zap.Logger
}

// NewSessionHandler - создание нового SessionHandler
func NewSessionHandler(sessionUC *usecase.SessionUseCase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessionUC: sessionUC,
		logger:    logger,
	}
}

// Create godoc
// @Summary Создать сессию карты
// @Description Создаёт сессию для одного вида карты и выдаёт первую попытку отрисовки. Без координат используется центр по умолчанию.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest false "Начальный вид"
// @Success 201 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return utils.SendError(c, err)
		}
	}

	resp, err := h.sessionUC.Create(req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendCreated(c, resp)
}

// Get godoc
// @Summary Состояние сессии
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.Get(id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// Delete godoc
// @Summary Закрыть сессию
// @Tags Sessions
// @Param id path string true "ID сессии"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := h.sessionUC.Delete(id); err != nil {
		return utils.SendError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetView godoc
// @Summary Сменить центр и масштаб
// @Description Новый вид требует нового URL, поэтому цепочка провайдеров начинается заново.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SetViewRequest true "Центр и масштаб"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/view [put]
func (h *SessionHandler) SetView(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.SetViewRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.SetView(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// Render godoc
// @Summary Отрисовать карту на стороне сервиса
// @Description Загружает изображения провайдеров по очереди с таймаутом на попытку до первого успеха. После исчерпания цепочки новых запросов нет до сброса.
// @Tags Render
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/render [post]
func (h *SessionHandler) Render(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.Render(c.UserContext(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// RenderEvent godoc
// @Summary Сообщить результат загрузки изображения
// @Description Событие load/error изображения карты в браузере. Колбэки устаревших попыток игнорируются (accepted=false).
// @Tags Render
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.RenderEventRequest true "Токен попытки и результат"
// @Success 200 {object} utils.SuccessResponse{data=dto.RenderEventResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/render/events [post]
func (h *SessionHandler) RenderEvent(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.RenderEventRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.ReportRenderEvent(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// RetryRender godoc
// @Summary Повторить отрисовку
// @Description Явный сброс пользователем и новый перебор с первого провайдера.
// @Tags Render
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/render/reset [post]
func (h *SessionHandler) RetryRender(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.RetryRender(id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// TryProvider godoc
// @Summary Выбрать провайдера вручную
// @Description Например, OpenStreetMap после того как все провайдеры оказались недоступны.
// @Tags Render
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.TryProviderRequest true "Провайдер"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/render/provider [post]
func (h *SessionHandler) TryProvider(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.TryProviderRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.TryProvider(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// SelectClick godoc
// @Summary Выбрать точку кликом по карте
// @Description Приближённый перевод пикселя в координаты (линейная аппроксимация). Ошибка не меняет текущую локацию.
// @Tags Selection
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectClickRequest true "Клик и viewport"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/select/click [post]
func (h *SessionHandler) SelectClick(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.SelectClickRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.SelectFromClick(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// SelectSearch godoc
// @Summary Выбрать место поиском
// @Description Выбирает первый результат и перецентрирует карту на него.
// @Tags Selection
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectSearchRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/select/search [post]
func (h *SessionHandler) SelectSearch(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.SelectSearchRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.SelectFromSearch(c.UserContext(), id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// SelectResult godoc
// @Summary Выбрать другой результат поиска
// @Tags Selection
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectResultRequest true "Индекс результата"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/select/result [post]
func (h *SessionHandler) SelectResult(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.SelectResultRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.SelectSearchResult(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// SelectDevice godoc
// @Summary Выбрать геолокацию устройства
// @Tags Selection
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectDeviceRequest true "Координаты устройства"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/select/device [post]
func (h *SessionHandler) SelectDevice(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.SelectDeviceRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.SelectFromDevice(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

// Location godoc
// @Summary Текущая локация
// @Description С параметрами width/height дополнительно возвращает пиксель маркера.
// @Tags Selection
// @Produce json
// @Param id path string true "ID сессии"
// @Param width query number false "Ширина viewport"
// @Param height query number false "Высота viewport"
// @Success 200 {object} utils.SuccessResponse{data=dto.LocationResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/location [get]
func (h *SessionHandler) Location(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.LocationRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"query": err.Error(),
		}))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.sessionUC.Location(id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, resp, nil)
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"id": "must be a UUID",
		})
	}
	return id, nil
}

// parseBody разбирает JSON тело и проверяет теги validate
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"body": "invalid request body",
		})
	}
	return validator.Validate(out)
}
