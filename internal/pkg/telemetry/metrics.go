package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Pipeline health
	MetricModelLatency = "ai.model_latency"
	MetricFallbackRate = "nav.fallback_rate"
	MetricCacheHitRate = "nav.cache_hit_rate"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricFramesAnalyzed   = "business.frames_analyzed"
	MetricManifestsStarted = "business.manifests_started"
)
