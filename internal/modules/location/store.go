// README: Location store: PostgreSQL row per driver plus a Redis GEO mirror.
package location

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"courier/internal/infra"
	"courier/internal/types"
)

const driverGeoKey = "location:drivers"

type Store struct {
	db    infra.DB
	redis *redis.Client
}

func NewStore(db infra.DB, rdb *redis.Client) *Store {
	return &Store{db: db, redis: rdb}
}

// Upsert writes the driver's current position. One row per driver.
func (s *Store) Upsert(ctx context.Context, l *DriverLocation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_locations (
			driver_id, lat, lng, accuracy_m, heading, speed_kmh, recorded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (driver_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			accuracy_m = EXCLUDED.accuracy_m,
			heading = EXCLUDED.heading,
			speed_kmh = EXCLUDED.speed_kmh,
			recorded_at = EXCLUDED.recorded_at,
			updated_at = EXCLUDED.updated_at`,
		string(l.DriverID),
		l.Position.Lat, l.Position.Lng,
		l.AccuracyM, l.Heading, l.SpeedKmh,
		l.RecordedAt, l.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, driverID types.ID) (*DriverLocation, error) {
	row := s.db.QueryRow(ctx, `
		SELECT driver_id, lat, lng, accuracy_m, heading, speed_kmh, recorded_at, updated_at
		FROM driver_locations
		WHERE driver_id = $1`, string(driverID),
	)
	var l DriverLocation
	err := row.Scan(&l.DriverID, &l.Position.Lat, &l.Position.Lng, &l.AccuracyM, &l.Heading, &l.SpeedKmh, &l.RecordedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GeoAdd(ctx context.Context, driverID types.ID, p types.Point) error {
	return s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *Store) GeoRemove(ctx context.Context, driverID types.ID) error {
	return s.redis.ZRem(ctx, driverGeoKey, string(driverID)).Err()
}

// GeoSearch returns driver ids within radiusKm of p, nearest first.
func (s *Store) GeoSearch(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// OnlinePositions filters candidate ids down to online, non-deleted drivers
// and returns their authoritative positions from Postgres.
func (s *Store) OnlinePositions(ctx context.Context, ids []types.ID) (map[types.ID]types.Point, error) {
	if len(ids) == 0 {
		return map[types.ID]types.Point{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT l.driver_id, l.lat, l.lng
		FROM driver_locations l
		JOIN drivers d ON d.id = l.driver_id
		WHERE l.driver_id = ANY($1)
		  AND d.status = 'online'
		  AND d.deleted = FALSE`, raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.ID]types.Point, len(ids))
	for rows.Next() {
		var id types.ID
		var p types.Point
		if err := rows.Scan(&id, &p.Lat, &p.Lng); err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, rows.Err()
}
