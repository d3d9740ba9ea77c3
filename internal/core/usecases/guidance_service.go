package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const (
	guidanceTimeout = 5 * time.Second

	// Headings within this many degrees of the target count as aligned.
	alignedToleranceDeg = 5
)

// GuidanceService turns a heading delta into an alignment state and a short
// spoken-style phrase. Aligned users get a deterministic template; turning
// users get a model-generated phrase with a template fallback. Never returns
// an error to the caller.
type GuidanceService struct {
	vision   ports.VisionModel
	events   ports.EventPublisher
	recorder *metrics.Recorder
}

// NewGuidanceService creates a GuidanceService. events may be nil.
func NewGuidanceService(vision ports.VisionModel, events ports.EventPublisher, recorder *metrics.Recorder) *GuidanceService {
	return &GuidanceService{vision: vision, events: events, recorder: recorder}
}

// TurnGuidance computes the directive for rotating toward poiName at
// targetBearing, distanceM away, from the user's current heading.
func (s *GuidanceService) TurnGuidance(ctx context.Context, poiName string, userHeading, targetBearing, distanceM float64) *domain.TurnGuidance {
	// Positive delta = turn left, matching the client's rotation convention.
	delta := math.Mod(targetBearing-userHeading+360, 360)
	if delta > 180 {
		delta -= 360
	}
	turnAmount := math.Abs(delta)

	tg := &domain.TurnGuidance{TurnDegrees: round2(delta)}

	switch {
	case turnAmount < alignedToleranceDeg:
		tg.Status = domain.Aligned
	case delta > 0:
		tg.Status = domain.TurningLeft
	default:
		tg.Status = domain.TurningRight
	}

	if tg.Status == domain.Aligned {
		if distanceM < 1000 {
			tg.Text = fmt.Sprintf("Perfect! %s is about %d meters straight ahead.", poiName, int(distanceM))
		} else {
			tg.Text = fmt.Sprintf("Perfect! %s is about %.1f kilometers straight ahead.", poiName, distanceM/1000)
		}
		s.publish(ctx, tg)
		return tg
	}

	direction := "right"
	if delta > 0 {
		direction = "left"
	}

	tg.Text = s.phrase(ctx, poiName, turnAmount, direction, distanceM)
	s.publish(ctx, tg)
	return tg
}

// phrase asks the model for an encouraging ~12-word directive, falling back
// to a fixed template on any failure.
func (s *GuidanceService) phrase(ctx context.Context, poiName string, turnAmount float64, direction string, distanceM float64) string {
	callCtx, cancel := context.WithTimeout(ctx, guidanceTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.vision.GenerateText(callCtx, guidancePrompt(poiName, turnAmount, direction, distanceM/1000),
		ports.VisionOptions{Temperature: 0.7})
	s.recorder.RecordAILatency(time.Since(start))
	metrics.AILatency.WithLabelValues("guidance").Observe(time.Since(start).Seconds())

	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			slog.Warn("turn guidance generation failed", "error", err)
			s.recorder.RecordAIError("guidance", err.Error())
			metrics.AIErrors.WithLabelValues("guidance").Inc()
		}
		return fmt.Sprintf("Turn %s about %.0f degrees", direction, turnAmount)
	}
	return strings.TrimSpace(text)
}

func (s *GuidanceService) publish(ctx context.Context, tg *domain.TurnGuidance) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishGuidance(ctx, tg); err != nil {
		slog.Warn("guidance publish failed", "error", err)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
