package usecases_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/usecases"
)

func TestTerrainService_FlatTerrainSkips(t *testing.T) {
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			return 100, nil
		},
	}
	svc := usecases.NewTerrainService(elev)

	skip, reason := svc.ShouldSkipAnalysis(context.Background(), domain.GeoPoint{Lat: 0.1, Lon: 34.75}, 5000)
	if !skip {
		t.Fatal("expected skip on flat terrain")
	}
	if reason != "flat_terrain (variation: 0.0m)" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestTerrainService_ComplexTerrainRuns(t *testing.T) {
	center := domain.GeoPoint{Lat: 0.1, Lon: 34.75}
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			if lat > center.Lat {
				return 300, nil // ridge to the north
			}
			return 100, nil
		},
	}
	svc := usecases.NewTerrainService(elev)

	skip, reason := svc.ShouldSkipAnalysis(context.Background(), center, 5000)
	if skip {
		t.Fatal("expected no skip with 200m variation")
	}
	if reason != "complex_terrain" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestTerrainService_FailsClosedOnLookupError(t *testing.T) {
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			return 0, fmt.Errorf("tile fetch failed")
		},
	}
	svc := usecases.NewTerrainService(elev)

	skip, reason := svc.ShouldSkipAnalysis(context.Background(), domain.GeoPoint{Lat: 0.1, Lon: 34.75}, 5000)
	if skip {
		t.Fatal("gate must fail closed on elevation errors")
	}
	if reason != "complex_terrain" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestTerrainService_SkipReasonCarriesVariation(t *testing.T) {
	calls := 0
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			calls++
			if calls == 1 {
				return 50, nil
			}
			return 92.5, nil
		},
	}
	svc := usecases.NewTerrainService(elev)

	skip, reason := svc.ShouldSkipAnalysis(context.Background(), domain.GeoPoint{}, 1000)
	if !skip {
		t.Fatal("expected skip with 42.5m variation")
	}
	if !strings.Contains(reason, "42.5m") {
		t.Errorf("expected variation in reason, got %q", reason)
	}
	if calls != 5 {
		t.Errorf("expected 5 cross samples, got %d", calls)
	}
}

func TestTerrainService_LineOfSightBlocked(t *testing.T) {
	observer := domain.GeoPoint{Lat: 0, Lon: 0}
	target := domain.GeoPoint{Lat: 0, Lon: 0.1}

	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			// A wall halfway along the line.
			if lon > 0.04 && lon < 0.06 {
				return 500, nil
			}
			return 10, nil
		},
	}
	svc := usecases.NewTerrainService(elev)

	if svc.HasLineOfSight(context.Background(), observer, target) {
		t.Error("expected line of sight blocked by ridge")
	}
}

func TestTerrainService_LineOfSightClear(t *testing.T) {
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			return 10, nil
		},
	}
	svc := usecases.NewTerrainService(elev)

	clear := svc.HasLineOfSight(context.Background(),
		domain.GeoPoint{Lat: 0, Lon: 0}, domain.GeoPoint{Lat: 0, Lon: 0.1})
	if !clear {
		t.Error("expected clear line of sight over flat terrain")
	}
}

func TestTerrainService_LineOfSightAssumesVisibleOnError(t *testing.T) {
	elev := &mockElevation{
		elevationFn: func(ctx context.Context, lat, lon float64) (float64, error) {
			return 0, fmt.Errorf("tile fetch failed")
		},
	}
	svc := usecases.NewTerrainService(elev)

	if !svc.HasLineOfSight(context.Background(), domain.GeoPoint{}, domain.GeoPoint{Lat: 0.1}) {
		t.Error("lookup failure must err on the side of visibility")
	}
}
