package metrics

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	latencyWindow = time.Hour
	errorWindow   = 24 * time.Hour

	maxErrorMessageLen = 200
)

type latencySample struct {
	at         time.Time
	durationMS float64
}

// AIError is a recorded model failure inside the 24 h window.
type AIError struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// Recorder keeps rolling-window pipeline statistics for the metrics summary
// endpoint. One instance per process; all methods are safe for concurrent
// use. Counters are advisory and reset only on restart.
type Recorder struct {
	mu sync.Mutex

	latencies []latencySample
	errors    []AIError

	requestCount  int64
	fallbackCount int64

	compressedImages     int64
	totalOriginalBytes   int64
	totalCompressedBytes int64

	now func() time.Time // overridable in tests
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// RecordAILatency records one model round trip. Mirrored to the Prometheus
// histogram by the caller; the recorder only feeds the summary endpoint.
func (r *Recorder) RecordAILatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.latencies = append(r.latencies, latencySample{at: now, durationMS: float64(d.Milliseconds())})
	r.latencies = pruneLatencies(r.latencies, now.Add(-latencyWindow))
}

// RecordAIError records a model failure, truncating long messages.
func (r *Recorder) RecordAIError(kind, message string) {
	if len(message) > maxErrorMessageLen {
		// Back up to a rune boundary so the stored message stays valid UTF-8.
		cut := maxErrorMessageLen
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.errors = append(r.errors, AIError{At: now, Kind: kind, Message: message})
	r.errors = pruneErrors(r.errors, now.Add(-errorWindow))
}

// IncRequest counts one frame-analysis request.
func (r *Recorder) IncRequest() {
	r.mu.Lock()
	r.requestCount++
	r.mu.Unlock()
}

// IncFallback counts one fallback-planner activation.
func (r *Recorder) IncFallback() {
	r.mu.Lock()
	r.fallbackCount++
	r.mu.Unlock()
}

// RecordCompression accumulates image compression savings.
func (r *Recorder) RecordCompression(originalBytes, compressedBytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.compressedImages++
	r.totalOriginalBytes += int64(originalBytes)
	r.totalCompressedBytes += int64(compressedBytes)
}

// Summary is the aggregate view served at /v1/metrics/summary.
type Summary struct {
	AIPerformance struct {
		AverageLatencyMS float64 `json:"average_latency_ms"`
		RecentRequests   int     `json:"recent_requests"`
		ErrorCount24h    int     `json:"error_count_24h"`
	} `json:"ai_performance"`
	Usage struct {
		TotalRequests       int64   `json:"total_requests"`
		FallbackCount       int64   `json:"fallback_count"`
		FallbackRatePercent float64 `json:"fallback_rate_percent"`
	} `json:"usage"`
	Compression struct {
		TotalBytesSaved           int64   `json:"total_bytes_saved"`
		TotalImagesCompressed     int64   `json:"total_images_compressed"`
		AverageCompressionPercent float64 `json:"average_compression_percent"`
	} `json:"compression"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary computes the current aggregate view. Expired window entries are
// pruned as a side effect.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.latencies = pruneLatencies(r.latencies, now.Add(-latencyWindow))
	r.errors = pruneErrors(r.errors, now.Add(-errorWindow))

	var s Summary
	s.Timestamp = now

	if n := len(r.latencies); n > 0 {
		var sum float64
		for _, l := range r.latencies {
			sum += l.durationMS
		}
		s.AIPerformance.AverageLatencyMS = round2(sum / float64(n))
	}
	s.AIPerformance.RecentRequests = len(r.latencies)
	s.AIPerformance.ErrorCount24h = len(r.errors)

	s.Usage.TotalRequests = r.requestCount
	s.Usage.FallbackCount = r.fallbackCount
	if r.requestCount > 0 {
		s.Usage.FallbackRatePercent = round2(float64(r.fallbackCount) / float64(r.requestCount) * 100)
	}

	saved := r.totalOriginalBytes - r.totalCompressedBytes
	s.Compression.TotalBytesSaved = saved
	s.Compression.TotalImagesCompressed = r.compressedImages
	if r.totalOriginalBytes > 0 {
		s.Compression.AverageCompressionPercent = round2(float64(saved) / float64(r.totalOriginalBytes) * 100)
	}

	return s
}

// RecentErrors returns a copy of the errors inside the 24 h window.
func (r *Recorder) RecentErrors() []AIError {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = pruneErrors(r.errors, r.now().Add(-errorWindow))
	out := make([]AIError, len(r.errors))
	copy(out, r.errors)
	return out
}

func pruneLatencies(in []latencySample, cutoff time.Time) []latencySample {
	i := 0
	for i < len(in) && !in[i].at.After(cutoff) {
		i++
	}
	return in[i:]
}

func pruneErrors(in []AIError, cutoff time.Time) []AIError {
	i := 0
	for i < len(in) && !in[i].At.After(cutoff) {
		i++
	}
	return in[i:]
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
