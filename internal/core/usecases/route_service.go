package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const routeTimeout = 60 * time.Second

// RouteService pre-analyzes a whole route into an offline visual manifest.
// Generation runs inside the manifest worker; the API process only starts
// workflows and reads finished manifests from the cache.
type RouteService struct {
	vision    ports.VisionModel
	waypoints ports.WaypointRepository
	cache     ports.CacheService
	recorder  *metrics.Recorder

	manifestTTLSeconds int
}

// NewRouteService creates a RouteService.
func NewRouteService(vision ports.VisionModel, waypoints ports.WaypointRepository, cache ports.CacheService, recorder *metrics.Recorder, manifestTTLSeconds int) *RouteService {
	return &RouteService{
		vision:             vision,
		waypoints:          waypoints,
		cache:              cache,
		recorder:           recorder,
		manifestTTLSeconds: manifestTTLSeconds,
	}
}

// LoadWaypoints resolves the route's waypoint IDs, preserving order.
// Unknown IDs are an error: a manifest with silently missing legs is worse
// than no manifest.
func (s *RouteService) LoadWaypoints(ctx context.Context, ids []string) ([]domain.Waypoint, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("route has no waypoints")
	}

	wps := make([]domain.Waypoint, 0, len(ids))
	for _, id := range ids {
		wp, err := s.waypoints.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load waypoint %s: %w", id, err)
		}
		wps = append(wps, *wp)
	}
	return wps, nil
}

// GenerateManifest asks the model for per-waypoint visual cues. Unlike the
// frame pipeline there is no fallback: the workflow retries instead.
func (s *RouteService) GenerateManifest(ctx context.Context, manifestID string, origin domain.GeoPoint, wps []domain.Waypoint) (*domain.RouteManifest, error) {
	callCtx, cancel := context.WithTimeout(ctx, routeTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.vision.AnalyzeJSON(callCtx, nil, routePrompt(origin, wps), "",
		ports.VisionOptions{Thorough: true, Temperature: 0.5})
	s.recorder.RecordAILatency(time.Since(start))
	metrics.AILatency.WithLabelValues("manifest").Observe(time.Since(start).Seconds())

	if err != nil {
		s.recorder.RecordAIError("manifest", err.Error())
		metrics.AIErrors.WithLabelValues("manifest").Inc()
		return nil, domain.NewPipelineError(domain.KindUpstream, "model_invoke", err)
	}

	var entries []domain.RouteManifestEntry
	if err := json.Unmarshal(result.Raw, &entries); err != nil {
		s.recorder.RecordAIError("manifest", err.Error())
		metrics.AIErrors.WithLabelValues("manifest").Inc()
		return nil, domain.NewPipelineError(domain.KindUpstream, "parse", err)
	}

	return &domain.RouteManifest{
		ID:          manifestID,
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// StoreManifest persists a finished manifest for client pickup.
func (s *RouteService) StoreManifest(ctx context.Context, manifest *domain.RouteManifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := s.cache.Set(ctx, manifestCacheKey(manifest.ID), data, s.manifestTTLSeconds); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}
	return nil
}

// GetManifest returns a finished manifest, or nil when still pending.
func (s *RouteService) GetManifest(ctx context.Context, manifestID string) (*domain.RouteManifest, error) {
	data, err := s.cache.Get(ctx, manifestCacheKey(manifestID))
	if err != nil {
		return nil, nil
	}

	var manifest domain.RouteManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest %s: %w", manifestID, err)
	}
	return &manifest, nil
}

func manifestCacheKey(id string) string {
	return "nav:manifest:" + id
}
