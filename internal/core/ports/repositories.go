package ports

import (
	"context"

	"github.com/dira-ar/dira/internal/core/domain"
)

// WaypointRepository persists landmarks. The analysis pipeline only reads;
// writes exist for the seeding tool.
type WaypointRepository interface {
	Upsert(ctx context.Context, wp *domain.Waypoint) error
	UpsertBatch(ctx context.Context, wps []domain.Waypoint) error
	GetByID(ctx context.Context, id string) (*domain.Waypoint, error)
	// FindNearby returns waypoints within radiusMeters, ordered by ascending
	// distance, each with its Distance field populated.
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Waypoint, error)
	// SearchByName performs case-insensitive partial matching on names.
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Waypoint, error)
}
