package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dira",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dira",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Navigation pipeline metrics
	FramesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "nav",
		Name:      "frames_analyzed_total",
		Help:      "Total camera frames analyzed, by result source",
	}, []string{"source"}) // ai | fallback | cache

	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "nav",
		Name:      "fallbacks_total",
		Help:      "Total times the geometric fallback planner produced the instruction",
	}, []string{"stage"}) // image_prepare | model_invoke | parse

	AIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "ai",
		Name:      "errors_total",
		Help:      "Total vision model errors by kind",
	}, []string{"kind"})

	AILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dira",
		Subsystem: "ai",
		Name:      "latency_seconds",
		Help:      "Vision model round-trip latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"operation"}) // frame | horizon | guidance | manifest

	HorizonSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "nav",
		Name:      "horizon_skips_total",
		Help:      "Horizon analyses skipped by the terrain gate",
	}, []string{"reason"})

	CompressionBytesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "imaging",
		Name:      "compression_bytes_saved_total",
		Help:      "Bytes saved by downscaling frames before model upload",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	TerrainLookupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "terrain",
		Name:      "lookup_errors_total",
		Help:      "Elevation lookups that failed (gate fails closed)",
	})

	ManifestsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dira",
		Subsystem: "nav",
		Name:      "manifests_started_total",
		Help:      "Route manifest workflows started",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dira",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
