package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

// Starter implements ports.ManifestStarter on a Temporal client. The API
// process holds one of these; the workflow itself runs in the manifest
// worker.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter wraps an existing Temporal client.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartRouteManifest kicks off a route manifest workflow. The manifest ID
// doubles as the workflow ID, so duplicate submissions of the same route
// deduplicate on the Temporal side.
func (s *Starter) StartRouteManifest(ctx context.Context, manifestID string, waypointIDs []string, origin domain.GeoPoint) error {
	opts := client.StartWorkflowOptions{
		ID:        "route-manifest-" + manifestID,
		TaskQueue: s.taskQueue,
	}

	input := ManifestInput{
		ManifestID:  manifestID,
		WaypointIDs: waypointIDs,
		Origin:      origin,
	}

	if _, err := s.client.ExecuteWorkflow(ctx, opts, RouteManifestWorkflow, input); err != nil {
		return fmt.Errorf("start route manifest workflow: %w", err)
	}

	metrics.ManifestsStarted.Inc()
	return nil
}
