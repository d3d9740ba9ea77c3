package usecases

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
	"github.com/dira-ar/dira/internal/pkg/geospatial"
)

const (
	fallbackRadiusM = 500
	fallbackLimit   = 5

	// Confidence attached to geometry-only instructions. Low enough that
	// clients can visually distinguish them from model output.
	fallbackConfidence = 0.3
)

// FallbackPlanner produces a walking instruction from nearby waypoints and
// heading alone, with no model involvement. It never fails: when the
// waypoint store is unreachable or empty it degrades to a generic
// instruction instead of returning an error.
type FallbackPlanner struct {
	waypoints ports.WaypointRepository
}

// NewFallbackPlanner creates a FallbackPlanner.
func NewFallbackPlanner(waypoints ports.WaypointRepository) *FallbackPlanner {
	return &FallbackPlanner{waypoints: waypoints}
}

// Plan computes an instruction for the given context. The destination hint,
// when it names a waypoint in range, wins over the nearest one.
func (p *FallbackPlanner) Plan(ctx context.Context, actx domain.AnalysisContext) domain.NavigationInstruction {
	nearby, err := p.waypoints.FindNearby(ctx, actx.Location.Lat, actx.Location.Lon, fallbackRadiusM, fallbackLimit)
	if err != nil || len(nearby) == 0 {
		return domain.NavigationInstruction{
			Direction:  domain.DirectionForward,
			Message:    "Continue exploring",
			Confidence: 0,
		}
	}

	target := nearby[0]
	if actx.DestinationHint != "" {
		for _, wp := range nearby {
			if strings.EqualFold(wp.Name, actx.DestinationHint) {
				target = wp
				break
			}
		}
	}

	bearing := geospatial.Bearing(
		actx.Location.Lat, actx.Location.Lon,
		target.Location.Lat, target.Location.Lon,
	)
	dist := geospatial.Haversine(
		actx.Location.Lat, actx.Location.Lon,
		target.Location.Lat, target.Location.Lon,
	)
	if target.Distance != nil {
		dist = *target.Distance
	}

	direction := directionFromDelta(math.Mod(bearing-actx.Heading+360, 360))

	return domain.NavigationInstruction{
		Direction:      direction,
		DistanceMeters: dist,
		Message:        composeMessage(direction, target.Name, dist),
		Landmark:       target.Name,
		Confidence:     fallbackConfidence,
	}
}

// directionFromDelta maps a clockwise heading delta in [0, 360) to a coarse
// walking direction.
func directionFromDelta(delta float64) domain.Direction {
	switch {
	case delta < 45 || delta > 315:
		return domain.DirectionForward
	case delta < 135:
		return domain.DirectionRight
	case delta < 225:
		return domain.DirectionTurnAround
	default:
		return domain.DirectionLeft
	}
}

func composeMessage(d domain.Direction, landmark string, distM float64) string {
	verb := map[domain.Direction]string{
		domain.DirectionForward:    "Continue forward toward",
		domain.DirectionLeft:       "Turn left toward",
		domain.DirectionRight:      "Turn right toward",
		domain.DirectionTurnAround: "Turn around toward",
	}[d]
	return fmt.Sprintf("%s %s, %s", verb, landmark, FormatDistance(distM))
}

// FormatDistance renders a distance the way a person would say it: exact
// meters close up, 50 m buckets within a kilometer, tenths of a kilometer
// beyond that.
func FormatDistance(m float64) string {
	switch {
	case m < 50:
		return fmt.Sprintf("%dm ahead", int(math.Round(m)))
	case m < 1000:
		return fmt.Sprintf("%dm away", int(math.Round(m/50)*50))
	default:
		return fmt.Sprintf("%.1fkm away", m/1000)
	}
}
