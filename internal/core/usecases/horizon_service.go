package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/imaging"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const (
	horizonTimeout = 20 * time.Second

	// Wide gate radius: skyline features kilometers away still matter for
	// distant POI placement.
	horizonGateRadiusM = 5000

	defaultHorizonLineY = 50
)

// HorizonService refines AR marker placement against the visible skyline.
// Its failure mode is always "render with un-refined positions": every path
// returns the caller's POIs, upgraded with skyline data when available.
type HorizonService struct {
	vision   ports.VisionModel
	terrain  *TerrainService
	events   ports.EventPublisher
	recorder *metrics.Recorder
}

// NewHorizonService creates a HorizonService. events may be nil.
func NewHorizonService(vision ports.VisionModel, terrain *TerrainService, events ports.EventPublisher, recorder *metrics.Recorder) *HorizonService {
	return &HorizonService{vision: vision, terrain: terrain, events: events, recorder: recorder}
}

// aiHorizonResponse is the model's JSON contract; see horizonPrompt.
type aiHorizonResponse struct {
	HorizonLineYPercent *int                    `json:"horizon_line_y_percent"`
	SkylineFeatures     []domain.SkylineFeature `json:"skyline_features"`
	RefinedPOIs         []domain.RefinedPOI     `json:"refined_pois"`
}

// AnalyzeHorizon runs the terrain gate and, unless skipped, the skyline
// analysis. image is the decoded frame payload. Only malformed input yields
// an error.
func (s *HorizonService) AnalyzeHorizon(ctx context.Context, image []byte, actx domain.AnalysisContext, pois []domain.VisiblePOI) (*domain.HorizonAnalysis, error) {
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

	if skip, reason := s.terrain.ShouldSkipAnalysis(ctx, actx.Location, horizonGateRadiusM); skip {
		metrics.HorizonSkips.WithLabelValues("flat_terrain").Inc()
		ha := passThrough(pois)
		ha.SkippedReason = reason
		return ha, nil
	}

	ha := s.analyzeWithModel(ctx, image, actx, pois)

	if s.events != nil {
		if err := s.events.PublishHorizonAnalysis(ctx, ha); err != nil {
			slog.Warn("horizon analysis publish failed", "error", err)
		}
	}

	return ha, nil
}

func (s *HorizonService) analyzeWithModel(ctx context.Context, image []byte, actx domain.AnalysisContext, pois []domain.VisiblePOI) *domain.HorizonAnalysis {
	prepared, stats, err := imaging.Compress(image)
	if err != nil {
		return s.degrade(pois, "image_prepare", err)
	}
	if saved := stats.BytesSaved(); saved > 0 {
		s.recorder.RecordCompression(stats.OriginalBytes, stats.CompressedBytes)
		metrics.CompressionBytesSaved.Add(float64(saved))
	}

	callCtx, cancel := context.WithTimeout(ctx, horizonTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.vision.AnalyzeJSON(callCtx, prepared, horizonPrompt(actx, pois), actx.ReasoningToken,
		ports.VisionOptions{Thorough: true})
	s.recorder.RecordAILatency(time.Since(start))
	metrics.AILatency.WithLabelValues("horizon").Observe(time.Since(start).Seconds())

	if err != nil {
		return s.degrade(pois, "model_invoke", err)
	}

	var resp aiHorizonResponse
	if err := json.Unmarshal(result.Raw, &resp); err != nil {
		return s.degrade(pois, "parse", err)
	}

	ha := &domain.HorizonAnalysis{
		HorizonLineYPercent: defaultHorizonLineY,
		SkylineFeatures:     resp.SkylineFeatures,
		RefinedPOIs:         resp.RefinedPOIs,
		ReasoningToken:      result.ReasoningToken,
	}
	if resp.HorizonLineYPercent != nil {
		ha.HorizonLineYPercent = *resp.HorizonLineYPercent
	}

	// The model must never drop POIs silently: an answer without refined
	// placements means "assume unoccluded", not "hide everything".
	if len(ha.RefinedPOIs) == 0 {
		ha.RefinedPOIs = unrefined(pois)
	}

	return ha
}

// degrade returns the caller's POIs unmodified with the degraded flag set.
func (s *HorizonService) degrade(pois []domain.VisiblePOI, stage string, err error) *domain.HorizonAnalysis {
	slog.Warn("horizon analysis degraded", "stage", stage, "error", err)

	s.recorder.RecordAIError(stage, err.Error())
	metrics.AIErrors.WithLabelValues(stage).Inc()

	ha := passThrough(pois)
	ha.Degraded = true
	return ha
}

// passThrough builds the neutral result: horizon at midframe, no skyline
// features, every POI shown at its original position.
func passThrough(pois []domain.VisiblePOI) *domain.HorizonAnalysis {
	return &domain.HorizonAnalysis{
		HorizonLineYPercent: defaultHorizonLineY,
		SkylineFeatures:     []domain.SkylineFeature{},
		RefinedPOIs:         unrefined(pois),
	}
}

func unrefined(pois []domain.VisiblePOI) []domain.RefinedPOI {
	out := make([]domain.RefinedPOI, len(pois))
	for i, poi := range pois {
		out[i] = domain.RefinedPOI{
			Name:            poi.Name,
			OriginalBearing: poi.BearingDegrees,
			Action:          domain.POIShow,
		}
	}
	return out
}
