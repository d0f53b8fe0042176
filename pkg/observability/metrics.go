package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tracking metrics
	EventsTrackedTotal  *prometheus.CounterVec
	EventsRejectedTotal *prometheus.CounterVec

	// Query metrics
	PopularQueriesTotal *prometheus.CounterVec
	StatsQueriesTotal   prometheus.Counter

	// Rate limiter metrics
	RateLimitedTotal prometheus.Counter

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge

	// Business metrics
	UniqueAppsTotal        prometheus.Gauge
	TotalInteractionsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apphub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apphub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		EventsTrackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apphub_events_tracked_total",
				Help: "Total number of interaction events tracked",
			},
			[]string{"action"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apphub_events_rejected_total",
				Help: "Total number of rejected tracking requests",
			},
			[]string{"reason"},
		),
		PopularQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apphub_popular_queries_total",
				Help: "Total number of popularity queries",
			},
			[]string{"timeframe"},
		),
		StatsQueriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "apphub_stats_queries_total",
				Help: "Total number of stats snapshot queries",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "apphub_rate_limited_total",
				Help: "Total number of requests denied by the rate limiter",
			},
		),
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "apphub_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		UniqueAppsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "apphub_unique_apps_total",
				Help: "Total number of apps with tracked activity",
			},
		),
		TotalInteractionsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "apphub_interactions_total",
				Help: "All-time interaction count",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsTrackedTotal,
		m.EventsRejectedTotal,
		m.PopularQueriesTotal,
		m.StatsQueriesTotal,
		m.RateLimitedTotal,
		m.RedisConnectionsActive,
		m.UniqueAppsTotal,
		m.TotalInteractionsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// CollectRedisPoolStats feeds the active-connections gauge from the Redis
// connection pool until stop is closed. Run it in its own goroutine.
func (m *Metrics) CollectRedisPoolStats(stats func() *redis.PoolStats, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.RedisConnectionsActive.Set(float64(stats().TotalConns))

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
