package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "map_location"

// Metrics - счётчики и гистограммы движка разрешения локаций
type Metrics struct {
	RenderAttempts  *prometheus.CounterVec // labels: provider, outcome={issued,success,error}
	RenderExhausted prometheus.Counter
	StaleCallbacks  prometheus.Counter

	GeocodeRequests *prometheus.CounterVec   // labels: provider, outcome={success,empty,error}
	GeocodeCache    *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeDuration *prometheus.HistogramVec // labels: provider

	ActiveSessions prometheus.Gauge
	Selections     *prometheus.CounterVec // labels: source={click,search,device}
	EventsDropped  prometheus.Counter

	HTTPRequests *prometheus.CounterVec // labels: method, status
}

// New регистрирует метрики в переданном реестре
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RenderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "attempts_total",
			Help:      "Render attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		RenderExhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "exhausted_total",
			Help:      "Fallback chains that ran out of providers.",
		}),
		StaleCallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "stale_callbacks_total",
			Help:      "Load callbacks ignored because their attempt was superseded.",
		}),
		GeocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "requests_total",
			Help:      "Geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Map sessions currently held in memory.",
		}),
		Selections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "selections_total",
			Help:      "Successful location selections by source.",
		}, []string{"source"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Location events dropped because the dispatch buffer was full or publishing failed.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}
}

// NewForTesting создаёт метрики в отдельном реестре, чтобы избежать
// паники "already registered" при повторных вызовах из тестов
func NewForTesting() *Metrics {
	return New(prometheus.NewRegistry())
}
