package workflows

import (
	"context"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/usecases"
)

// ManifestActivities holds the activity implementations for the route
// manifest workflow.
type ManifestActivities struct {
	Routes *usecases.RouteService
}

// LoadRouteWaypoints resolves the route's waypoint IDs in order.
func (a *ManifestActivities) LoadRouteWaypoints(ctx context.Context, ids []string) ([]domain.Waypoint, error) {
	return a.Routes.LoadWaypoints(ctx, ids)
}

// GenerateVisualManifest asks the vision model for per-waypoint cues.
func (a *ManifestActivities) GenerateVisualManifest(ctx context.Context, manifestID string, origin domain.GeoPoint, waypoints []domain.Waypoint) (*domain.RouteManifest, error) {
	return a.Routes.GenerateManifest(ctx, manifestID, origin, waypoints)
}

// StoreManifest persists the finished manifest for client pickup.
func (a *ManifestActivities) StoreManifest(ctx context.Context, manifest domain.RouteManifest) error {
	return a.Routes.StoreManifest(ctx, &manifest)
}
