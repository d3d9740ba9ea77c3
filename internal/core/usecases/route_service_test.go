package usecases_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/core/usecases"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

func routeWaypoints() []domain.Waypoint {
	return []domain.Waypoint{
		{ID: "a", Name: "Market", Location: domain.GeoPoint{Lat: -0.091, Lon: 34.768}},
		{ID: "b", Name: "Pier", Location: domain.GeoPoint{Lat: -0.089, Lon: 34.741}},
	}
}

func TestRouteService_GenerateManifest(t *testing.T) {
	vision := &mockVision{
		analyzeJSONFn: func(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
			if image != nil {
				t.Error("route analysis is text-only")
			}
			return &ports.VisionResult{
				Raw: []byte(`[
					{"waypoint_name":"Market","visual_cue":"red awnings","landmarks":["clock tower"],"approach_hint":"head east"},
					{"waypoint_name":"Pier","visual_cue":"white railings","landmarks":["ferry dock"],"approach_hint":"follow the shore"}
				]`),
			}, nil
		},
	}
	svc := usecases.NewRouteService(vision, &mockWaypointRepo{}, newMockCache(), metrics.NewRecorder(), 86400)

	manifest, err := svc.GenerateManifest(context.Background(), "m-1", domain.GeoPoint{Lat: -0.0917, Lon: 34.768}, routeWaypoints())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manifest.ID != "m-1" {
		t.Errorf("unexpected manifest ID %q", manifest.ID)
	}
	if len(manifest.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(manifest.Entries))
	}
	if manifest.Entries[1].VisualCue != "white railings" {
		t.Errorf("unexpected entry: %+v", manifest.Entries[1])
	}
}

func TestRouteService_GenerateManifest_ModelFailure(t *testing.T) {
	svc := usecases.NewRouteService(&mockVision{}, &mockWaypointRepo{}, newMockCache(), metrics.NewRecorder(), 86400)

	_, err := svc.GenerateManifest(context.Background(), "m-1", domain.GeoPoint{}, routeWaypoints())
	if err == nil {
		t.Fatal("expected error so the workflow can retry")
	}
}

func TestRouteService_StoreAndGetManifest(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewRouteService(&mockVision{}, &mockWaypointRepo{}, cache, metrics.NewRecorder(), 86400)

	manifest := &domain.RouteManifest{
		ID:      "m-2",
		Entries: []domain.RouteManifestEntry{{WaypointName: "Market", VisualCue: "red awnings"}},
	}
	if err := svc.StoreManifest(context.Background(), manifest); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := svc.GetManifest(context.Background(), "m-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Entries[0].WaypointName != "Market" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestRouteService_GetManifest_PendingIsNil(t *testing.T) {
	svc := usecases.NewRouteService(&mockVision{}, &mockWaypointRepo{}, newMockCache(), metrics.NewRecorder(), 86400)

	got, err := svc.GetManifest(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for pending manifest, got %+v", got)
	}
}

func TestRouteService_LoadWaypoints(t *testing.T) {
	repo := &mockWaypointRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Waypoint, error) {
			if id == "missing" {
				return nil, fmt.Errorf("not found")
			}
			return &domain.Waypoint{ID: id, Name: "WP " + id}, nil
		},
	}
	svc := usecases.NewRouteService(&mockVision{}, repo, newMockCache(), metrics.NewRecorder(), 86400)

	wps, err := svc.LoadWaypoints(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wps) != 2 || wps[0].ID != "a" {
		t.Errorf("unexpected waypoints: %+v", wps)
	}

	if _, err := svc.LoadWaypoints(context.Background(), []string{"a", "missing"}); err == nil {
		t.Error("expected error for unknown waypoint ID")
	}
	if _, err := svc.LoadWaypoints(context.Background(), nil); err == nil {
		t.Error("expected error for empty route")
	}
}
