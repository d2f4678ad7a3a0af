// README: Location service: position updates and the nearby-driver query.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courier/internal/types"
)

var (
	ErrValidation = errors.New("location validation failed")
	ErrNotFound   = errors.New("location not found")
)

type Service struct {
	store           *Store
	defaultRadiusKm float64
	maxResults      int
	log             *slog.Logger
}

func NewService(store *Store, defaultRadiusKm float64, maxResults int, log *slog.Logger) *Service {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 5
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, defaultRadiusKm: defaultRadiusKm, maxResults: maxResults, log: log}
}

type UpdateCommand struct {
	DriverID   types.ID
	Lat        float64
	Lng        float64
	AccuracyM  float64
	Heading    float64
	SpeedKmh   float64
	RecordedAt time.Time
}

type NearbyCommand struct {
	Lat        float64
	Lng        float64
	RadiusKm   float64
	MaxResults int
}

// Update stores the reported position and mirrors it into the GEO index the
// nearby query searches.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*DriverLocation, error) {
	l, err := NewDriverLocation(cmd.DriverID, types.Point{Lat: cmd.Lat, Lng: cmd.Lng}, cmd.AccuracyM, cmd.Heading, cmd.SpeedKmh, cmd.RecordedAt)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, l); err != nil {
		return nil, err
	}
	if err := s.store.GeoAdd(ctx, l.DriverID, l.Position); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, driverID types.ID) (*DriverLocation, error) {
	return s.store.Get(ctx, driverID)
}

// FindNearby returns online drivers within the radius, nearest first, with
// distances rounded to two decimals.
func (s *Service) FindNearby(ctx context.Context, cmd NearbyCommand) ([]NearbyDriver, error) {
	center := types.Point{Lat: cmd.Lat, Lng: cmd.Lng}
	if !center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	radius := cmd.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}
	max := cmd.MaxResults
	if max <= 0 || max > s.maxResults {
		max = s.maxResults
	}

	ids, err := s.store.GeoSearch(ctx, center, radius)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.OnlinePositions(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyDriver, 0, len(positions))
	for _, id := range ids {
		p, ok := positions[id]
		if !ok {
			// Stale GEO entry: the driver went offline or away since their
			// last report. Prune it; the next Update re-adds them.
			if err := s.store.GeoRemove(ctx, id); err != nil {
				s.log.Warn("prune geo entry failed", "driver_id", id, "err", err)
			}
			continue
		}
		km := HaversineKm(cmd.Lat, cmd.Lng, p.Lat, p.Lng)
		if km > radius {
			continue
		}
		out = append(out, NearbyDriver{DriverID: id, Position: p, DistanceKm: roundKm(km)})
	}
	sortByDistance(out, func(n NearbyDriver) float64 { return n.DistanceKm })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}
