package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/prometheus/client_golang/prometheus"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/delivery/http/handler"
	"github.com/map-location-service/internal/delivery/http/middleware"
	"github.com/map-location-service/internal/pkg/metrics"
)

// HealthChecker - зависимость, проверяемая в /health (Redis)
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	health   HealthChecker

	// Handlers
	searchHandler  *handler.SearchHandler
	sessionHandler *handler.SessionHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	health HealthChecker,
	searchHandler *handler.SearchHandler,
	sessionHandler *handler.SessionHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Map Location Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		metrics:        m,
		gatherer:       gatherer,
		health:         health,
		searchHandler:  searchHandler,
		sessionHandler: sessionHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(s.metrics.Middleware())
	s.app.Use(middleware.CORS(s.config.Server.AllowOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)
	s.app.Get("/metrics", metrics.Handler(s.gatherer))

	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthCheck)

	// Providers & search
	api.Get("/providers", s.searchHandler.Providers)
	api.Get("/geocode", s.searchHandler.Geocode)

	// Map sessions
	sessions := api.Group("/sessions")
	sessions.Post("/", s.sessionHandler.Create)
	sessions.Get("/:id", s.sessionHandler.Get)
	sessions.Delete("/:id", s.sessionHandler.Delete)
	sessions.Put("/:id/view", s.sessionHandler.SetView)

	// Rendering with provider fallback
	sessions.Post("/:id/render", s.sessionHandler.Render)
	sessions.Post("/:id/render/events", s.sessionHandler.RenderEvent)
	sessions.Post("/:id/render/reset", s.sessionHandler.RetryRender)
	sessions.Post("/:id/render/provider", s.sessionHandler.TryProvider)

	// Location selection
	sessions.Post("/:id/select/click", s.sessionHandler.SelectClick)
	sessions.Post("/:id/select/search", s.sessionHandler.SelectSearch)
	sessions.Post("/:id/select/result", s.sessionHandler.SelectResult)
	sessions.Post("/:id/select/device", s.sessionHandler.SelectDevice)
	sessions.Get("/:id/location", s.sessionHandler.Location)
}

// healthCheck godoc
// @Summary Проверка работоспособности
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (s *Server) healthCheck(c *fiber.Ctx) error {
	status := "healthy"

	redisStatus := "disabled"
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		redisStatus = "ok"
		if err := s.health.Health(ctx); err != nil {
			// кеш и события не критичны для выбора локации
			redisStatus = "unavailable"
			status = "degraded"
			s.logger.Warn("Redis health check failed", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"status": status,
		"redis":  redisStatus,
		"time":   time.Now(),
	})
}

// App - fiber приложение (для тестов)
func (s *Server) App() *fiber.App {
	return s.app
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки самого fiber (404 маршрута, 405 и т.п.)
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "INTERNAL_SERVER_ERROR"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			switch code {
			case fiber.StatusNotFound:
				errCode = "NOT_FOUND"
			case fiber.StatusMethodNotAllowed:
				errCode = "METHOD_NOT_ALLOWED"
			}
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    errCode,
				"message": err.Error(),
			},
		})
	}
}
