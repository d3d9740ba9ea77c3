package metrics

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

func newTestRecorder(now *time.Time) *Recorder {
	r := NewRecorder()
	r.now = func() time.Time { return *now }
	return r
}

func TestRecorder_LatencyAverage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRecorder(&now)

	r.RecordAILatency(100 * time.Millisecond)
	r.RecordAILatency(300 * time.Millisecond)

	s := r.Summary()
	if s.AIPerformance.AverageLatencyMS != 200 {
		t.Errorf("expected average 200ms, got %f", s.AIPerformance.AverageLatencyMS)
	}
	if s.AIPerformance.RecentRequests != 2 {
		t.Errorf("expected 2 recent requests, got %d", s.AIPerformance.RecentRequests)
	}
}

func TestRecorder_LatencyWindowExpires(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRecorder(&now)

	r.RecordAILatency(500 * time.Millisecond)

	// Advance past the 1 h window; the old sample must fall out.
	now = now.Add(61 * time.Minute)
	r.RecordAILatency(100 * time.Millisecond)

	s := r.Summary()
	if s.AIPerformance.RecentRequests != 1 {
		t.Fatalf("expected 1 sample after window expiry, got %d", s.AIPerformance.RecentRequests)
	}
	if s.AIPerformance.AverageLatencyMS != 100 {
		t.Errorf("expected average 100ms, got %f", s.AIPerformance.AverageLatencyMS)
	}
}

func TestRecorder_ErrorWindowAndTruncation(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r := newTestRecorder(&now)

	r.RecordAIError("timeout", strings.Repeat("x", 500))
	now = now.Add(25 * time.Hour)
	r.RecordAIError("transport", "connection refused")

	errs := r.RecentErrors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error inside 24h window, got %d", len(errs))
	}
	if errs[0].Kind != "transport" {
		t.Errorf("expected surviving error kind transport, got %s", errs[0].Kind)
	}

	r.RecordAIError("parse", strings.Repeat("y", 500))
	errs = r.RecentErrors()
	if got := len(errs[len(errs)-1].Message); got != 200 {
		t.Errorf("expected message truncated to 200 chars, got %d", got)
	}
}

func TestRecorder_ErrorTruncationKeepsValidUTF8(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r := newTestRecorder(&now)

	// 70 three-byte runes = 210 bytes; a byte-level cut at 200 would land
	// mid-rune.
	r.RecordAIError("upstream", strings.Repeat("日", 70))

	errs := r.RecentErrors()
	msg := errs[0].Message
	if !utf8.ValidString(msg) {
		t.Errorf("truncated message is not valid UTF-8: %q", msg)
	}
	if len(msg) > 200 {
		t.Errorf("expected at most 200 bytes, got %d", len(msg))
	}
	if len(msg) != 198 {
		t.Errorf("expected cut at previous rune boundary (198 bytes), got %d", len(msg))
	}
}

func TestRecorder_FallbackRate(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	for i := 0; i < 4; i++ {
		r.IncRequest()
	}
	r.IncFallback()

	s := r.Summary()
	if s.Usage.FallbackRatePercent != 25 {
		t.Errorf("expected fallback rate 25%%, got %f", s.Usage.FallbackRatePercent)
	}
}

func TestRecorder_CompressionSavings(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	r.RecordCompression(1000, 400)
	r.RecordCompression(2000, 800)

	s := r.Summary()
	if s.Compression.TotalBytesSaved != 1800 {
		t.Errorf("expected 1800 bytes saved, got %d", s.Compression.TotalBytesSaved)
	}
	if s.Compression.TotalImagesCompressed != 2 {
		t.Errorf("expected 2 images, got %d", s.Compression.TotalImagesCompressed)
	}
	if s.Compression.AverageCompressionPercent != 60 {
		t.Errorf("expected 60%% average compression, got %f", s.Compression.AverageCompressionPercent)
	}
}

func TestRecorder_ConcurrentAccess(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncRequest()
				r.RecordAILatency(time.Duration(j) * time.Millisecond)
				r.RecordAIError("kind", fmt.Sprintf("err %d/%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	s := r.Summary()
	if s.Usage.TotalRequests != 1600 {
		t.Errorf("expected 1600 requests, got %d", s.Usage.TotalRequests)
	}
}
