package usecases_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

func newAnalysisService(vision *mockVision, cache ports.CacheService, repo *mockWaypointRepo) *usecases.AnalysisService {
	if repo == nil {
		repo = &mockWaypointRepo{}
	}
	fallback := usecases.NewFallbackPlanner(repo)
	return usecases.NewAnalysisService(vision, fallback, cache, nil, metrics.NewRecorder(), 300)
}

func validContext() domain.AnalysisContext {
	return domain.AnalysisContext{
		Location: domain.GeoPoint{Lat: -0.0917, Lon: 34.768},
		Heading:  90,
	}
}

func TestAnalyzeFrame_RejectsBadCoordinates(t *testing.T) {
	svc := newAnalysisService(&mockVision{}, newMockCache(), nil)

	_, err := svc.AnalyzeFrame(context.Background(), testFrame(t), domain.AnalysisContext{
		Location: domain.GeoPoint{Lat: 95, Lon: 0},
	})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAnalyzeFrame_RejectsBadHeading(t *testing.T) {
	svc := newAnalysisService(&mockVision{}, newMockCache(), nil)

	actx := validContext()
	actx.Heading = 400
	if _, err := svc.AnalyzeFrame(context.Background(), testFrame(t), actx); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAnalyzeFrame_RejectsEmptyImage(t *testing.T) {
	svc := newAnalysisService(&mockVision{}, newMockCache(), nil)

	if _, err := svc.AnalyzeFrame(context.Background(), nil, validContext()); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAnalyzeFrame_AIPath(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{
				Raw:            []byte(`{"instruction":"Turn right towards the yellow cafe","bearing_adjustment":45,"landmark_identified":"Sunny's Cafe","confidence":0.85,"is_lost":false}`),
				ReasoningToken: "tok-next",
			}, nil
		},
	}
	svc := newAnalysisService(vision, newMockCache(), nil)

	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.Source != "ai" {
		t.Errorf("expected source ai, got %s", fa.Source)
	}
	if fa.Instruction.Direction != domain.DirectionRight {
		t.Errorf("expected right for +45 adjustment, got %s", fa.Instruction.Direction)
	}
	if fa.Instruction.Landmark != "Sunny's Cafe" {
		t.Errorf("unexpected landmark %q", fa.Instruction.Landmark)
	}
	if fa.Instruction.Confidence != 0.85 {
		t.Errorf("expected confidence passthrough, got %f", fa.Instruction.Confidence)
	}
	if fa.ReasoningToken != "tok-next" {
		t.Errorf("expected reasoning token carried forward, got %q", fa.ReasoningToken)
	}
	if fa.ID == "" {
		t.Error("expected generated analysis ID")
	}
}

func TestAnalyzeFrame_DirectionMapping(t *testing.T) {
	cases := []struct {
		adjustment float64
		want       domain.Direction
	}{
		{0, domain.DirectionForward},
		{22.5, domain.DirectionForward},
		{-20, domain.DirectionForward},
		{45, domain.DirectionRight},
		{90, domain.DirectionRight},
		{-45, domain.DirectionLeft},
		{-90, domain.DirectionLeft},
		{135, domain.DirectionTurnAround},
		{-170, domain.DirectionTurnAround},
	}
	for _, c := range cases {
		vision := &mockVision{
			analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
				raw := fmt.Sprintf(`{"instruction":"go","bearing_adjustment":%g,"landmark_identified":"X"}`, c.adjustment)
				return &ports.VisionResult{Raw: []byte(raw)}, nil
			},
		}
		svc := newAnalysisService(vision, newMockCache(), nil)

		fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
		if err != nil {
			t.Fatalf("adjustment %g: unexpected error: %v", c.adjustment, err)
		}
		if fa.Instruction.Direction != c.want {
			t.Errorf("adjustment %g: expected %s, got %s", c.adjustment, c.want, fa.Instruction.Direction)
		}
	}
}

func TestAnalyzeFrame_PartialResponseGetsDefaults(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{Raw: []byte(`{"is_lost":true}`)}, nil
		},
	}
	svc := newAnalysisService(vision, newMockCache(), nil)

	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	instr := fa.Instruction
	if instr.Message != "Continue forward" {
		t.Errorf("expected default instruction, got %q", instr.Message)
	}
	if instr.Landmark != "Unknown" {
		t.Errorf("expected default landmark, got %q", instr.Landmark)
	}
	if instr.Direction != domain.DirectionForward {
		t.Errorf("expected forward for default adjustment, got %s", instr.Direction)
	}
	if instr.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5 for incomplete response, got %f", instr.Confidence)
	}
	if !instr.IsLost {
		t.Error("expected is_lost passthrough")
	}
}

func TestAnalyzeFrame_ValidResponseWithoutConfidence(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{Raw: []byte(`{"instruction":"go left","bearing_adjustment":-50,"landmark_identified":"Bridge"}`)}, nil
		},
	}
	svc := newAnalysisService(vision, newMockCache(), nil)

	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.Instruction.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8 for complete response without one, got %f", fa.Instruction.Confidence)
	}
}

func TestAnalyzeFrame_ModelFailureFallsBack(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return nil, fmt.Errorf("deadline exceeded")
		},
	}
	repo := &mockWaypointRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Waypoint, error) {
			return []domain.Waypoint{{
				Name:     "Market",
				Location: domain.GeoPoint{Lat: -0.0917, Lon: 34.771},
				Distance: floatPtr(334),
			}}, nil
		},
	}
	svc := newAnalysisService(vision, newMockCache(), repo)

	actx := validContext()
	actx.ReasoningToken = "tok-prev"
	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), actx)
	if err != nil {
		t.Fatalf("model failure must not surface, got %v", err)
	}
	if fa.Source != "fallback" {
		t.Errorf("expected source fallback, got %s", fa.Source)
	}
	if fa.Instruction.Landmark != "Market" {
		t.Errorf("expected geometric instruction, got %+v", fa.Instruction)
	}
	if fa.ReasoningToken != "" {
		t.Error("reasoning token must be discarded after a failed turn")
	}
}

func TestAnalyzeFrame_GarbageJSONFallsBack(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{Raw: []byte("Sure! Here is your navigation advice:")}, nil
		},
	}
	svc := newAnalysisService(vision, newMockCache(), nil)

	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.Source != "fallback" {
		t.Errorf("expected fallback on unparseable output, got %s", fa.Source)
	}
}

func TestAnalyzeFrame_UndecodableImageFallsBack(t *testing.T) {
	svc := newAnalysisService(&mockVision{}, newMockCache(), nil)

	fa, err := svc.AnalyzeFrame(context.Background(), []byte("not a jpeg"), validContext())
	if err != nil {
		t.Fatalf("decode failure must degrade, not error: %v", err)
	}
	if fa.Source != "fallback" {
		t.Errorf("expected fallback, got %s", fa.Source)
	}
}

func TestAnalyzeFrame_CacheRoundTrip(t *testing.T) {
	calls := 0
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			calls++
			return &ports.VisionResult{Raw: []byte(`{"instruction":"go","bearing_adjustment":0,"landmark_identified":"X"}`)}, nil
		},
	}
	cache := newMockCache()
	svc := newAnalysisService(vision, cache, nil)

	actx := validContext()
	if _, err := svc.AnalyzeFrame(context.Background(), testFrame(t), actx); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Jitter well inside the quantization buckets must hit the cache.
	actx.Location.Lat += 0.00002
	actx.Heading += 5
	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), actx)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if fa.Source != "cache" {
		t.Errorf("expected cache hit, got source %s", fa.Source)
	}
	if calls != 1 {
		t.Errorf("expected a single model invocation, got %d", calls)
	}
}

func TestAnalyzeFrame_ReasoningTokenBypassesCache(t *testing.T) {
	calls := 0
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			calls++
			return &ports.VisionResult{Raw: []byte(`{"instruction":"go","bearing_adjustment":0,"landmark_identified":"X"}`)}, nil
		},
	}
	cache := newMockCache()
	svc := newAnalysisService(vision, cache, nil)

	// Prime the cache with a context-free request.
	if _, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext()); err != nil {
		t.Fatalf("prime call: %v", err)
	}

	actx := validContext()
	actx.ReasoningToken = "tok-prev"
	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), actx)
	if err != nil {
		t.Fatalf("token call: %v", err)
	}
	if fa.Source != "ai" {
		t.Errorf("stateful request must not be served from cache, got %s", fa.Source)
	}
	if calls != 2 {
		t.Errorf("expected 2 model invocations, got %d", calls)
	}

	// And its result must not have been stored either.
	if len(cache.sets) != 1 {
		t.Errorf("expected a single cache store, got %d", len(cache.sets))
	}
}

func TestAnalyzeFrame_CacheFailureIsAMiss(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{Raw: []byte(`{"instruction":"go","bearing_adjustment":0,"landmark_identified":"X"}`)}, nil
		},
	}
	svc := newAnalysisService(vision, failingCache{}, nil)

	fa, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext())
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if fa.Source != "ai" {
		t.Errorf("expected ai source, got %s", fa.Source)
	}
}

func TestAnalyzeFrame_CachedResultIsWellFormed(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			return &ports.VisionResult{Raw: []byte(`{"instruction":"go","bearing_adjustment":60,"landmark_identified":"Tower","confidence":0.9}`)}, nil
		},
	}
	cache := newMockCache()
	svc := newAnalysisService(vision, cache, nil)

	if _, err := svc.AnalyzeFrame(context.Background(), testFrame(t), validContext()); err != nil {
		t.Fatal(err)
	}
	if len(cache.sets) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(cache.sets))
	}

	var stored domain.FrameAnalysis
	if err := json.Unmarshal(cache.store[cache.sets[0]], &stored); err != nil {
		t.Fatalf("stored entry not valid JSON: %v", err)
	}
	if stored.Instruction.Landmark != "Tower" {
		t.Errorf("stored entry mismatch: %+v", stored.Instruction)
	}
}
