package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	Map       MapConfig
	Providers ProvidersConfig
	Geocode   GeocodeConfig
	Session   SessionConfig
	Events    EventsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	AllowOrigins string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	SearchCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

// MapConfig - параметры отрисовки и начальный вид карты
type MapConfig struct {
	Language       string
	ImageWidth     int
	ImageHeight    int
	DefaultLat     float64
	DefaultLng     float64
	DefaultZoom    int
	AttemptTimeout time.Duration
}

// ProvidersConfig - ключи провайдеров. Пустой ключ исключает провайдера из реестра.
type ProvidersConfig struct {
	YandexAPIKey       string
	GoogleAPIKey       string
	NominatimUserAgent string
}

type GeocodeConfig struct {
	Timeout   time.Duration
	RateLimit float64 // запросов в секунду на провайдера
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type EventsConfig struct {
	Stream     string
	MaxLen     int64 // приблизительная длина стрима (XADD MAXLEN ~)
	BufferSize int
	MaxRetries int
}

// Load читает .env (если он есть) и переменные окружения
func Load() (*Config, error) {
	return load(".env")
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("API_HOST"),
			Port:         v.GetInt("API_PORT"),
			Env:          v.GetString("API_ENV"),
			AllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			SearchCacheTTL: time.Duration(v.GetInt("SEARCH_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Map: MapConfig{
			Language:       v.GetString("MAP_LANGUAGE"),
			ImageWidth:     v.GetInt("MAP_IMAGE_WIDTH"),
			ImageHeight:    v.GetInt("MAP_IMAGE_HEIGHT"),
			DefaultLat:     v.GetFloat64("MAP_DEFAULT_LAT"),
			DefaultLng:     v.GetFloat64("MAP_DEFAULT_LNG"),
			DefaultZoom:    v.GetInt("MAP_DEFAULT_ZOOM"),
			AttemptTimeout: time.Duration(v.GetInt("RENDER_ATTEMPT_TIMEOUT")) * time.Millisecond,
		},
		Providers: ProvidersConfig{
			YandexAPIKey:       strings.TrimSpace(v.GetString("YANDEX_MAPS_API_KEY")),
			GoogleAPIKey:       strings.TrimSpace(v.GetString("GOOGLE_MAPS_API_KEY")),
			NominatimUserAgent: v.GetString("NOMINATIM_USER_AGENT"),
		},
		Geocode: GeocodeConfig{
			Timeout:   time.Duration(v.GetInt("GEOCODE_TIMEOUT")) * time.Millisecond,
			RateLimit: v.GetFloat64("GEOCODE_RATE_LIMIT"),
		},
		Session: SessionConfig{
			IdleTTL:       time.Duration(v.GetInt("SESSION_IDLE_TTL")) * time.Second,
			SweepInterval: time.Duration(v.GetInt("SESSION_SWEEP_INTERVAL")) * time.Second,
		},
		Events: EventsConfig{
			Stream:     v.GetString("EVENTS_STREAM"),
			MaxLen:     v.GetInt64("EVENTS_STREAM_MAXLEN"),
			BufferSize: v.GetInt("EVENTS_BUFFER"),
			MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
		},
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.AllowOrigins == "" {
		cfg.Server.AllowOrigins = "http://localhost:3000,http://localhost:5173"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.SearchCacheTTL <= 0 {
		cfg.Cache.SearchCacheTTL = time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Батуми - город, вокруг которого строятся туры
	if cfg.Map.DefaultLat == 0 && cfg.Map.DefaultLng == 0 {
		cfg.Map.DefaultLat = 41.6168
		cfg.Map.DefaultLng = 41.6367
	}
	if cfg.Map.DefaultZoom == 0 {
		cfg.Map.DefaultZoom = 13
	}
	if cfg.Map.Language == "" {
		cfg.Map.Language = "ru"
	}
	if cfg.Map.ImageWidth == 0 {
		cfg.Map.ImageWidth = 600
	}
	if cfg.Map.ImageHeight == 0 {
		cfg.Map.ImageHeight = 400
	}
	if cfg.Map.AttemptTimeout <= 0 {
		cfg.Map.AttemptTimeout = 4000 * time.Millisecond
	}
	if cfg.Providers.NominatimUserAgent == "" {
		cfg.Providers.NominatimUserAgent = "map-location-service/1.0"
	}
	if cfg.Geocode.Timeout <= 0 {
		cfg.Geocode.Timeout = 5000 * time.Millisecond
	}
	if cfg.Geocode.RateLimit == 0 {
		cfg.Geocode.RateLimit = 1
	}
	if cfg.Session.IdleTTL <= 0 {
		cfg.Session.IdleTTL = 30 * time.Minute
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = time.Minute
	}
	if cfg.Events.Stream == "" {
		cfg.Events.Stream = "stream:location:selected"
	}
	if cfg.Events.MaxLen == 0 {
		cfg.Events.MaxLen = 10000
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 256
	}
	if cfg.Events.MaxRetries == 0 {
		cfg.Events.MaxRetries = 3
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
