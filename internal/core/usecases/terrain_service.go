package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/metrics"
)

const (
	// Terrain flatter than this across the sample radius carries nothing
	// worth refining on the skyline.
	flatVariationM = 100

	// Degrees per meter at the equator. Rough, good enough for coarse
	// elevation sampling.
	degPerMeter = 1.0 / 111000

	// Tolerance for line-of-sight checks, absorbing curvature and tile
	// resolution error.
	losToleranceM = 50

	losSamples = 10
)

// TerrainService gates expensive skyline analysis on terrain shape and
// answers visibility questions from coarse elevation data.
type TerrainService struct {
	elevation ports.ElevationSource
}

// NewTerrainService creates a TerrainService.
func NewTerrainService(elevation ports.ElevationSource) *TerrainService {
	return &TerrainService{elevation: elevation}
}

// ShouldSkipAnalysis samples elevation in a cross pattern around center and
// reports whether skyline analysis can be skipped. Skipping is purely an
// optimization: on any lookup failure the gate fails closed and reports the
// terrain as complex, because a wrong skip mis-places POI markers while a
// wasted analysis only costs money.
func (s *TerrainService) ShouldSkipAnalysis(ctx context.Context, center domain.GeoPoint, radiusM float64) (bool, string) {
	offset := radiusM * degPerMeter

	points := [][2]float64{
		{center.Lat, center.Lon},
		{center.Lat + offset, center.Lon},
		{center.Lat - offset, center.Lon},
		{center.Lat, center.Lon + offset},
		{center.Lat, center.Lon - offset},
	}

	var minElev, maxElev float64
	for i, p := range points {
		elev, err := s.elevation.Elevation(ctx, p[0], p[1])
		if err != nil {
			metrics.TerrainLookupErrors.Inc()
			slog.Warn("elevation lookup failed, treating terrain as complex",
				"lat", p[0], "lon", p[1], "error", err)
			return false, "complex_terrain"
		}
		if i == 0 || elev < minElev {
			minElev = elev
		}
		if i == 0 || elev > maxElev {
			maxElev = elev
		}
	}

	variation := maxElev - minElev
	if variation < flatVariationM {
		return true, fmt.Sprintf("flat_terrain (variation: %.1fm)", variation)
	}
	return false, "complex_terrain"
}

// HasLineOfSight reports whether the target is visible from the observer
// without terrain in the way, by sampling elevation along the connecting
// line. Errs on the side of visibility: lookup failures report true.
func (s *TerrainService) HasLineOfSight(ctx context.Context, observer, target domain.GeoPoint) bool {
	observerElev, err := s.elevation.Elevation(ctx, observer.Lat, observer.Lon)
	if err != nil {
		metrics.TerrainLookupErrors.Inc()
		return true
	}
	targetElev, err := s.elevation.Elevation(ctx, target.Lat, target.Lon)
	if err != nil {
		metrics.TerrainLookupErrors.Inc()
		return true
	}

	for i := 1; i < losSamples; i++ {
		t := float64(i) / losSamples
		sampleLat := observer.Lat + t*(target.Lat-observer.Lat)
		sampleLon := observer.Lon + t*(target.Lon-observer.Lon)

		sampleElev, err := s.elevation.Elevation(ctx, sampleLat, sampleLon)
		if err != nil {
			metrics.TerrainLookupErrors.Inc()
			return true
		}

		expected := observerElev + t*(targetElev-observerElev)
		if sampleElev > expected+losToleranceM {
			return false
		}
	}
	return true
}
