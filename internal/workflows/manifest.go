package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/dira-ar/dira/internal/core/domain"
)

// ManifestInput is the input for the route manifest workflow.
type ManifestInput struct {
	ManifestID  string
	WaypointIDs []string
	Origin      domain.GeoPoint
}

// RouteManifestWorkflow pre-analyzes a route into an offline visual
// manifest: resolve the waypoints, ask the model for per-waypoint visual
// cues, store the result for client pickup. Model flakiness is absorbed by
// the activity retry policy rather than a fallback path; an offline bundle
// is not latency-sensitive.
func RouteManifestWorkflow(ctx workflow.Context, input ManifestInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route manifest workflow",
		"manifestID", input.ManifestID, "waypoints", len(input.WaypointIDs))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 4,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Resolve waypoints
	var waypoints []domain.Waypoint
	if err := workflow.ExecuteActivity(ctx, "LoadRouteWaypoints", input.WaypointIDs).Get(ctx, &waypoints); err != nil {
		return err
	}

	// Step 2: Generate visual cues
	var manifest domain.RouteManifest
	if err := workflow.ExecuteActivity(ctx, "GenerateVisualManifest", input.ManifestID, input.Origin, waypoints).Get(ctx, &manifest); err != nil {
		return err
	}

	// Step 3: Store for pickup
	if err := workflow.ExecuteActivity(ctx, "StoreManifest", manifest).Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("Route manifest stored", "manifestID", input.ManifestID, "entries", len(manifest.Entries))
	return nil
}
