package main

// @title Map Location Service API
// @version 1.0.0
// @description Сервис выбора локации на карте. Карта отрисовывается через цепочку провайдеров
// @description (Яндекс, Google, OpenStreetMap) с переключением на следующего при ошибке загрузки.
// @description
// @description Основные возможности:
// @description - Сессии карты с перебором провайдеров и защитой от устаревших колбэков
// @description - Выбор точки кликом по изображению карты
// @description - Текстовый поиск через геокодер провайдера с кешем в Redis
// @description - Выбор по местоположению устройства
// @description - События выбора локации в Redis Streams

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "github.com/map-location-service/docs"
	"github.com/map-location-service/internal/config"
	httpDelivery "github.com/map-location-service/internal/delivery/http"
	"github.com/map-location-service/internal/delivery/http/handler"
	"github.com/map-location-service/internal/infrastructure/geocode"
	"github.com/map-location-service/internal/infrastructure/provider"
	"github.com/map-location-service/internal/infrastructure/render"
	"github.com/map-location-service/internal/pkg/logger"
	"github.com/map-location-service/internal/pkg/metrics"
	"github.com/map-location-service/internal/repository/cache"
	redisRepo "github.com/map-location-service/internal/repository/redis"
	"github.com/map-location-service/internal/usecase"
	"github.com/map-location-service/internal/worker"
	"github.com/map-location-service/internal/worker/location"
	"github.com/map-location-service/internal/worker/session"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Map Location Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connect to Redis (geocode cache + location events)
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connected")

	// 4. Metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// 5. Map providers in fallback order
	registry, err := provider.NewDefaultRegistry(&cfg.Map, &cfg.Providers, log)
	if err != nil {
		log.Fatal("No map providers available", zap.Error(err))
	}

	// 6. Infrastructure
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), cfg.Events.MaxLen, log)

	geocoder := geocode.NewCachedGeocoder(
		geocode.NewClient(registry, &cfg.Geocode, m, log),
		registry,
		cacheRepo,
		cfg.Cache.SearchCacheTTL,
		m,
		log,
	)
	prober := render.NewProber(&cfg.Map, &cfg.Providers, log)

	// 7. Workers
	dispatcher := location.NewEventDispatcher(streamRepo, &cfg.Events, m, log)

	// 8. Use cases
	clock := clockwork.NewRealClock()

	sessionUC := usecase.NewSessionUseCase(
		registry,
		geocoder,
		prober,
		dispatcher,
		clock,
		m,
		log,
		&cfg.Map,
		&cfg.Session,
	)
	searchUC := usecase.NewSearchUseCase(registry, geocoder, &cfg.Map, log)

	log.Info("Use cases initialized")

	sweeper := session.NewSweeper(sessionUC, clock, cfg.Session.SweepInterval, log)

	workerManager := worker.NewWorkerManager(log, 10*time.Second)
	workerManager.Register(dispatcher)
	workerManager.Register(sweeper)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 9. HTTP
	server := httpDelivery.NewServer(
		cfg,
		log,
		m,
		prometheus.DefaultGatherer,
		redisClient,
		handler.NewSearchHandler(searchUC, log),
		handler.NewSessionHandler(sessionUC, log),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	// диспетчер дописывает буфер событий до закрытия Redis
	if err := workerManager.Stop(); err != nil {
		log.Error("Workers shutdown error", zap.Error(err))
	}
	stopWorkers()

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
