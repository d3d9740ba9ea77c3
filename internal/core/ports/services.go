package ports

import (
	"context"

	"github.com/dira-ar/dira/internal/core/domain"
)

// VisionOptions tune a single vision-model invocation. Prompt construction
// belongs to the usecases; the adapter only carries transport, auth, and
// model configuration.
type VisionOptions struct {
	// Model overrides the configured default model when non-empty.
	Model string
	// Thorough selects a higher reasoning/resolution profile, used for
	// horizon analysis where latency matters less than skyline accuracy.
	Thorough bool
	// Temperature for generation; zero value means the adapter default.
	Temperature float32
}

// VisionResult carries the model's structured output plus the reasoning
// continuity token for the next frame. Raw is the model's JSON payload;
// parsing and validation stay in the usecases.
type VisionResult struct {
	Raw            []byte
	ReasoningToken string
}

// VisionModel is the external vision-reasoning capability. image may be nil
// for text-only prompts. reasoningToken is opaque: passed through to the
// model verbatim, never inspected.
type VisionModel interface {
	AnalyzeJSON(ctx context.Context, image []byte, prompt, reasoningToken string, opts VisionOptions) (*VisionResult, error)
	GenerateText(ctx context.Context, prompt string, opts VisionOptions) (string, error)
}

// ElevationSource looks up terrain elevation in meters above sea level.
type ElevationSource interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// CacheService provides read-through caching. Implementations must be safe
// for concurrent use; a Get on a missing or expired key returns an error.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes navigation events to a message broker for
// real-time consumers (WebSocket relay, analytics).
type EventPublisher interface {
	PublishFrameAnalysis(ctx context.Context, fa *domain.FrameAnalysis) error
	PublishHorizonAnalysis(ctx context.Context, ha *domain.HorizonAnalysis) error
	PublishGuidance(ctx context.Context, tg *domain.TurnGuidance) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// ManifestStarter kicks off an asynchronous route pre-analysis. Implemented
// by the Temporal client wrapper; the HTTP layer depends only on this.
type ManifestStarter interface {
	StartRouteManifest(ctx context.Context, manifestID string, waypointIDs []string, origin domain.GeoPoint) error
}
