package usecases

import (
	"context"
	"fmt"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/geospatial"
)

// CelestialService projects waypoints into the observer's sky: bearing,
// distance, curvature-corrected elevation angle, and a rendering height
// hint, so the client can anchor a marker above the horizon.
type CelestialService struct {
	waypoints ports.WaypointRepository
	terrain   *TerrainService
}

// NewCelestialService creates a CelestialService. terrain may be nil, in
// which case occlusion is not checked.
func NewCelestialService(waypoints ports.WaypointRepository, terrain *TerrainService) *CelestialService {
	return &CelestialService{waypoints: waypoints, terrain: terrain}
}

// ErrPOINotFound is returned when no waypoint matches the search query.
var ErrPOINotFound = fmt.Errorf("poi not found")

// Search finds the best waypoint match for query and computes its sky
// placement relative to the observer.
func (s *CelestialService) Search(ctx context.Context, query string, observer domain.GeoPoint) (*domain.CelestialPOI, error) {
	if query == "" {
		return nil, domain.NewPipelineError(domain.KindValidation, "input",
			fmt.Errorf("search query must not be empty"))
	}
	if err := observer.Validate(); err != nil {
		return nil, domain.NewPipelineError(domain.KindValidation, "input", err)
	}

	matches, err := s.waypoints.SearchByName(ctx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("search waypoints: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrPOINotFound
	}

	return s.Project(ctx, observer, matches[0]), nil
}

// Project computes the sky placement of one waypoint for the observer.
func (s *CelestialService) Project(ctx context.Context, observer domain.GeoPoint, wp domain.Waypoint) *domain.CelestialPOI {
	bearing := geospatial.Bearing(observer.Lat, observer.Lon, wp.Location.Lat, wp.Location.Lon)
	distance := geospatial.Haversine(observer.Lat, observer.Lon, wp.Location.Lat, wp.Location.Lon)
	elevation := geospatial.ElevationAngle(
		observer.Lat, observer.Lon, observer.Alt,
		wp.Location.Lat, wp.Location.Lon, wp.Location.Alt,
	)

	return &domain.CelestialPOI{
		Waypoint:       wp,
		BearingDegrees: round2(bearing),
		DistanceMeters: round2(distance),
		ElevationAngle: round2(elevation),
		VisualHeight:   round2(geospatial.VisualHeight(distance)),
	}
}

// VisibleCone returns the waypoints within radiusM whose bearing falls
// inside the observer's field of view, as VisiblePOIs ready for horizon
// refinement. Waypoints behind terrain are dropped when a terrain service
// is configured.
func (s *CelestialService) VisibleCone(ctx context.Context, observer domain.GeoPoint, heading, fovDeg, radiusM float64, limit int) ([]domain.VisiblePOI, error) {
	if err := observer.Validate(); err != nil {
		return nil, domain.NewPipelineError(domain.KindValidation, "input", err)
	}

	waypoints, err := s.waypoints.FindNearby(ctx, observer.Lat, observer.Lon, radiusM, limit)
	if err != nil {
		return nil, fmt.Errorf("find nearby waypoints: %w", err)
	}

	half := fovDeg / 2
	pois := make([]domain.VisiblePOI, 0, len(waypoints))
	for _, wp := range waypoints {
		bearing := geospatial.Bearing(observer.Lat, observer.Lon, wp.Location.Lat, wp.Location.Lon)
		if delta := geospatial.SignedDelta(bearing, heading); delta < -half || delta > half {
			continue
		}
		if s.terrain != nil && !s.terrain.HasLineOfSight(ctx, observer, wp.Location) {
			continue
		}

		dist := geospatial.Haversine(observer.Lat, observer.Lon, wp.Location.Lat, wp.Location.Lon)
		pois = append(pois, domain.VisiblePOI{
			Name:           wp.Name,
			BearingDegrees: round2(bearing),
			DistanceMeters: round2(dist),
		})
	}
	return pois, nil
}
