package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dira-ar/dira/internal/core/domain"
)

// WaypointRepo implements ports.WaypointRepository with pgx on PostGIS.
// Altitude rides in its own column; location is a geography point so
// ST_DWithin works in meters.
type WaypointRepo struct {
	db *DB
}

// NewWaypointRepo creates a new WaypointRepo.
func NewWaypointRepo(db *DB) *WaypointRepo {
	return &WaypointRepo{db: db}
}

const upsertWaypointSQL = `
	INSERT INTO waypoints (id, name, description, location, altitude, metadata)
	VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3,
	        ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, description = EXCLUDED.description,
	    location = EXCLUDED.location, altitude = EXCLUDED.altitude,
	    metadata = EXCLUDED.metadata
`

// Upsert inserts or updates a single waypoint.
func (r *WaypointRepo) Upsert(ctx context.Context, wp *domain.Waypoint) error {
	_, err := r.db.Pool.Exec(ctx, upsertWaypointSQL,
		wp.ID, wp.Name, wp.Description,
		wp.Location.Lon, wp.Location.Lat, wp.Location.Alt, wp.Metadata)
	return err
}

// UpsertBatch inserts many waypoints using pgx.Batch.
func (r *WaypointRepo) UpsertBatch(ctx context.Context, wps []domain.Waypoint) error {
	batch := &pgx.Batch{}
	for _, wp := range wps {
		batch.Queue(upsertWaypointSQL,
			wp.ID, wp.Name, wp.Description,
			wp.Location.Lon, wp.Location.Lat, wp.Location.Alt, wp.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range wps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a waypoint by UUID.
func (r *WaypointRepo) GetByID(ctx context.Context, id string) (*domain.Waypoint, error) {
	var wp domain.Waypoint
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(altitude, 0), COALESCE(metadata, '{}'), created_at
		FROM waypoints WHERE id = $1
	`, id).Scan(
		&wp.ID, &wp.Name, &wp.Description,
		&wp.Location.Lat, &wp.Location.Lon, &wp.Location.Alt,
		&wp.Metadata, &wp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// FindNearby returns waypoints within radiusMeters using PostGIS ST_DWithin,
// ordered by ascending distance, each with Distance populated.
func (r *WaypointRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Waypoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(altitude, 0), COALESCE(metadata, '{}'),
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance,
		       created_at
		FROM waypoints
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWaypoints(rows, true)
}

// SearchByName performs case-insensitive partial matching on names.
func (r *WaypointRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.Waypoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(altitude, 0), COALESCE(metadata, '{}'), created_at
		FROM waypoints
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWaypoints(rows, false)
}

func scanWaypoints(rows pgx.Rows, withDistance bool) ([]domain.Waypoint, error) {
	var wps []domain.Waypoint
	for rows.Next() {
		var wp domain.Waypoint
		var err error
		if withDistance {
			var distance float64
			err = rows.Scan(
				&wp.ID, &wp.Name, &wp.Description,
				&wp.Location.Lat, &wp.Location.Lon, &wp.Location.Alt,
				&wp.Metadata, &distance, &wp.CreatedAt,
			)
			wp.Distance = &distance
		} else {
			err = rows.Scan(
				&wp.ID, &wp.Name, &wp.Description,
				&wp.Location.Lat, &wp.Location.Lon, &wp.Location.Alt,
				&wp.Metadata, &wp.CreatedAt,
			)
		}
		if err != nil {
			return nil, err
		}
		wps = append(wps, wp)
	}
	return wps, rows.Err()
}
