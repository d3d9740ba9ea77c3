package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/imaging"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const (
	frameTimeout = 10 * time.Second

	// Cache key granularity: ~11 m location buckets, 15° heading buckets.
	// Wide enough to absorb GPS and compass jitter, narrow enough that a
	// cached instruction is still the right one.
	headingBucketDeg = 15
)

// AnalysisService is the frame-analysis orchestrator. Each request walks a
// small state machine: prepare the image, invoke the vision model, parse its
// output. A failure at any stage hands the request to the fallback planner;
// the caller always receives a well-formed result.
type AnalysisService struct {
	vision   ports.VisionModel
	fallback *FallbackPlanner
	cache    ports.CacheService
	events   ports.EventPublisher
	recorder *metrics.Recorder

	cacheTTLSeconds int
}

// NewAnalysisService creates an AnalysisService. events may be nil when no
// broker is configured.
func NewAnalysisService(vision ports.VisionModel, fallback *FallbackPlanner, cache ports.CacheService, events ports.EventPublisher, recorder *metrics.Recorder, cacheTTLSeconds int) *AnalysisService {
	return &AnalysisService{
		vision:          vision,
		fallback:        fallback,
		cache:           cache,
		events:          events,
		recorder:        recorder,
		cacheTTLSeconds: cacheTTLSeconds,
	}
}

// aiFrameResponse is the model's JSON contract for one frame; see framePrompt.
type aiFrameResponse struct {
	Instruction       *string  `json:"instruction"`
	BearingAdjustment *float64 `json:"bearing_adjustment"`
	Landmark          *string  `json:"landmark_identified"`
	Confidence        *float64 `json:"confidence"`
	IsLost            bool     `json:"is_lost"`
}

// AnalyzeFrame runs the full pipeline for one camera frame. image is the
// decoded (non-base64) frame payload. Returns a validation error for
// malformed input; every other failure degrades to the fallback planner.
func (s *AnalysisService) AnalyzeFrame(ctx context.Context, image []byte, actx domain.AnalysisContext) (*domain.FrameAnalysis, error) {
	if err := actx.Location.Validate(); err != nil {
		return nil, domain.NewPipelineError(domain.KindValidation, "input", err)
	}
	if !domain.ValidHeading(actx.Heading) {
		return nil, domain.NewPipelineError(domain.KindValidation, "input",
			fmt.Errorf("heading must be in [0, 360], got %g", actx.Heading))
	}
	if len(image) == 0 {
		return nil, domain.NewPipelineError(domain.KindValidation, "input",
			fmt.Errorf("image payload is empty"))
	}
	actx.Heading = domain.NormalizeHeading(actx.Heading)

	s.recorder.IncRequest()

	// A request carrying a reasoning token is stateful: serving it from a
	// context-free cache entry would break reasoning continuity, so the
	// cache is bypassed both ways.
	useCache := actx.ReasoningToken == ""
	key := frameCacheKey(actx.Location.Lat, actx.Location.Lon, actx.Heading)

	if useCache {
		if fa := s.cachedAnalysis(ctx, key); fa != nil {
			metrics.FramesAnalyzed.WithLabelValues("cache").Inc()
			return fa, nil
		}
	}

	fa := s.analyzeWithModel(ctx, image, actx)
	fa.ID = uuid.NewString()
	fa.AnalyzedAt = time.Now().UTC()

	metrics.FramesAnalyzed.WithLabelValues(fa.Source).Inc()

	if useCache && fa.Source == "ai" {
		if data, err := json.Marshal(fa); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTLSeconds); err != nil {
				slog.Warn("frame cache store failed", "error", err)
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishFrameAnalysis(ctx, fa); err != nil {
			slog.Warn("frame analysis publish failed", "error", err)
		}
	}

	return fa, nil
}

// analyzeWithModel compresses the frame, invokes the vision model, and
// parses its response, degrading to the fallback planner on failure at any
// stage.
func (s *AnalysisService) analyzeWithModel(ctx context.Context, image []byte, actx domain.AnalysisContext) *domain.FrameAnalysis {
	prepared, stats, err := imaging.Compress(image)
	if err != nil {
		return s.degrade(ctx, actx, "image_prepare", err)
	}
	if saved := stats.BytesSaved(); saved > 0 {
		s.recorder.RecordCompression(stats.OriginalBytes, stats.CompressedBytes)
		metrics.CompressionBytesSaved.Add(float64(saved))
	}

	callCtx, cancel := context.WithTimeout(ctx, frameTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.vision.AnalyzeJSON(callCtx, prepared, framePrompt(actx), actx.ReasoningToken, ports.VisionOptions{})
	s.recorder.RecordAILatency(time.Since(start))
	metrics.AILatency.WithLabelValues("frame").Observe(time.Since(start).Seconds())

	if err != nil {
		return s.degrade(ctx, actx, "model_invoke", err)
	}

	var resp aiFrameResponse
	if err := json.Unmarshal(result.Raw, &resp); err != nil {
		return s.degrade(ctx, actx, "parse", err)
	}

	return &domain.FrameAnalysis{
		Instruction:    instructionFromResponse(resp),
		ReasoningToken: result.ReasoningToken,
		Source:         "ai",
	}
}

// degrade hands a failed request to the fallback planner. The reasoning
// token is discarded: the caller must not carry context forward from a turn
// the model never completed.
func (s *AnalysisService) degrade(ctx context.Context, actx domain.AnalysisContext, stage string, err error) *domain.FrameAnalysis {
	slog.Warn("frame analysis degraded to fallback", "stage", stage, "error", err)

	s.recorder.IncFallback()
	s.recorder.RecordAIError(stage, err.Error())
	metrics.Fallbacks.WithLabelValues(stage).Inc()
	metrics.AIErrors.WithLabelValues(stage).Inc()

	return &domain.FrameAnalysis{
		Instruction: s.fallback.Plan(ctx, actx),
		Source:      "fallback",
	}
}

// instructionFromResponse normalizes partial model output. Absent fields get
// safe defaults; an otherwise-valid response without a confidence is trusted
// at 0.8, one missing required fields drops to 0.5.
func instructionFromResponse(resp aiFrameResponse) domain.NavigationInstruction {
	complete := resp.Instruction != nil && resp.BearingAdjustment != nil && resp.Landmark != nil

	instr := domain.NavigationInstruction{
		Direction: domain.DirectionForward,
		Message:   "Continue forward",
		Landmark:  "Unknown",
		IsLost:    resp.IsLost,
	}

	if resp.Instruction != nil && *resp.Instruction != "" {
		instr.Message = *resp.Instruction
	}
	if resp.Landmark != nil && *resp.Landmark != "" {
		instr.Landmark = *resp.Landmark
	}
	if resp.BearingAdjustment != nil {
		instr.Direction = directionFromAdjustment(*resp.BearingAdjustment)
	}

	switch {
	case resp.Confidence != nil:
		instr.Confidence = *resp.Confidence
	case complete:
		instr.Confidence = 0.8
	default:
		instr.Confidence = 0.5
	}

	return instr
}

// directionFromAdjustment maps a signed bearing adjustment (positive = turn
// right) to a coarse direction.
func directionFromAdjustment(deg float64) domain.Direction {
	abs := math.Abs(deg)
	switch {
	case abs <= 22.5:
		return domain.DirectionForward
	case abs > 90:
		return domain.DirectionTurnAround
	case deg > 0:
		return domain.DirectionRight
	default:
		return domain.DirectionLeft
	}
}

func (s *AnalysisService) cachedAnalysis(ctx context.Context, key string) *domain.FrameAnalysis {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("frame").Inc()
		return nil
	}

	var fa domain.FrameAnalysis
	if err := json.Unmarshal(data, &fa); err != nil {
		metrics.CacheMisses.WithLabelValues("frame").Inc()
		return nil
	}

	metrics.CacheHits.WithLabelValues("frame").Inc()
	fa.Source = "cache"
	return &fa
}

// frameCacheKey quantizes location to 4 decimal places and heading to 15°
// buckets. The heading bucket folds 360 back to 0.
func frameCacheKey(lat, lon, heading float64) string {
	bucket := int(math.Round(heading/headingBucketDeg)) * headingBucketDeg % 360
	return fmt.Sprintf("nav:frame:%.4f:%.4f:%d", lat, lon, bucket)
}
