package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dira-ar/dira/internal/core/domain"
	"github.com/dira-ar/dira/internal/core/ports"
)

// WaypointService handles waypoint reads and seeding writes.
type WaypointService struct {
	waypoints ports.WaypointRepository
	cache     ports.CacheService
}

// NewWaypointService creates a new WaypointService.
func NewWaypointService(waypoints ports.WaypointRepository, cache ports.CacheService) *WaypointService {
	return &WaypointService{waypoints: waypoints, cache: cache}
}

// FindNearby returns waypoints within radiusMeters of the given point.
func (s *WaypointService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Waypoint, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	// Try cache
	cacheKey := fmt.Sprintf("waypoints:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var wps []domain.Waypoint
			if err := json.Unmarshal(data, &wps); err == nil {
				return wps, nil
			}
		}
	}

	wps, err := s.waypoints.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// Cache for 5 minutes (waypoints don't change frequently)
	if s.cache != nil {
		if data, err := json.Marshal(wps); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return wps, nil
}

// Search performs partial name matching on waypoints.
func (s *WaypointService) Search(ctx context.Context, query string, limit int) ([]domain.Waypoint, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("waypoints:search:%s:%d", query, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var wps []domain.Waypoint
			if err := json.Unmarshal(data, &wps); err == nil {
				return wps, nil
			}
		}
	}

	wps, err := s.waypoints.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(wps); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return wps, nil
}

// GetByID returns a single waypoint.
func (s *WaypointService) GetByID(ctx context.Context, id string) (*domain.Waypoint, error) {
	cacheKey := "waypoints:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var wp domain.Waypoint
			if err := json.Unmarshal(data, &wp); err == nil {
				return &wp, nil
			}
		}
	}

	wp, err := s.waypoints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(wp); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return wp, nil
}

// Upsert stores one waypoint and drops its cache entry.
func (s *WaypointService) Upsert(ctx context.Context, wp *domain.Waypoint) error {
	if wp.Name == "" {
		return fmt.Errorf("waypoint name must not be empty")
	}
	if err := wp.Location.Validate(); err != nil {
		return err
	}

	if err := s.waypoints.Upsert(ctx, wp); err != nil {
		return err
	}
	if s.cache != nil && wp.ID != "" {
		_ = s.cache.Delete(ctx, "waypoints:id:"+wp.ID)
	}
	return nil
}

// UpsertBatch stores many waypoints at once, used by the seeding tool.
func (s *WaypointService) UpsertBatch(ctx context.Context, wps []domain.Waypoint) error {
	for i := range wps {
		if wps[i].Name == "" {
			return fmt.Errorf("waypoint %d: name must not be empty", i)
		}
		if err := wps[i].Location.Validate(); err != nil {
			return fmt.Errorf("waypoint %d: %w", i, err)
		}
	}
	return s.waypoints.UpsertBatch(ctx, wps)
}
