// README: Current driver position, one row per driver.
package location

import (
	"fmt"
	"time"

	"courier/internal/types"
)

type DriverLocation struct {
	DriverID   types.ID
	Position   types.Point
	AccuracyM  float64
	Heading    float64
	SpeedKmh   float64
	RecordedAt time.Time
	UpdatedAt  time.Time
}

// NewDriverLocation validates a reported position. Heading is degrees from
// north, accuracy metres, speed km/h.
func NewDriverLocation(driverID types.ID, p types.Point, accuracyM, heading, speedKmh float64, recordedAt time.Time) (*DriverLocation, error) {
	if driverID == "" {
		return nil, fmt.Errorf("%w: driver id is required", ErrValidation)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	if accuracyM < 0 {
		return nil, fmt.Errorf("%w: accuracy cannot be negative", ErrValidation)
	}
	if heading < 0 || heading > 360 {
		return nil, fmt.Errorf("%w: heading must be between 0 and 360", ErrValidation)
	}
	if speedKmh < 0 {
		return nil, fmt.Errorf("%w: speed cannot be negative", ErrValidation)
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return &DriverLocation{
		DriverID:   driverID,
		Position:   p,
		AccuracyM:  accuracyM,
		Heading:    heading,
		SpeedKmh:   speedKmh,
		RecordedAt: recordedAt,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// NearbyDriver is a query result row: a driver and their distance from the
// search point, rounded to two decimals.
type NearbyDriver struct {
	DriverID   types.ID
	Position   types.Point
	DistanceKm float64
}
