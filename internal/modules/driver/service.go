// README: Driver service implements registration, verification and lifecycle.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"courier/internal/events"
	"courier/internal/types"
)

var (
	ErrValidation = errors.New("driver validation failed")
	ErrNotFound   = errors.New("driver not found")
	ErrConflict   = errors.New("driver was modified concurrently")
	ErrDuplicate  = errors.New("driver with this email or phone already exists")
	ErrBadRequest = errors.New("bad request")
)

// ActiveTripChecker reports whether the driver still has an unfinished trip.
// The trip module's store satisfies it.
type ActiveTripChecker interface {
	HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error)
}

type Service struct {
	store  *Store
	trips  ActiveTripChecker
	events events.Publisher
	log    *slog.Logger
}

// NewService wires the driver module. trips may be nil; deletion then skips
// the active-trip guard.
func NewService(store *Store, trips ActiveTripChecker, publisher events.Publisher, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, trips: trips, events: publisher, log: log}
}

type RegisterCommand struct {
	FullName      string
	Phone         string
	Email         string
	LicenseNumber string
}

type RejectCommand struct {
	DriverID types.ID
	Reason   string
}

type SetStatusCommand struct {
	DriverID types.ID
	Status   Status
}

type UpdateProfileCommand struct {
	DriverID types.ID
	Update   ProfileUpdate
}

type UpdateVehicleCommand struct {
	DriverID types.ID
	Type     string
	Plate    string
	Brand    string
	Model    string
	Year     int
	Color    string
}

type SetFCMTokenCommand struct {
	DriverID types.ID
	Token    string
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	d, err := New(newID(), cmd.FullName, cmd.Phone, cmd.Email, cmd.LicenseNumber)
	if err != nil {
		return nil, err
	}
	taken, err := s.store.ExistsByEmailOrPhone(ctx, d.Email, d.Phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicate
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.publish(ctx, "driver.registered", d, nil)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Verify(ctx context.Context, id types.ID) (*Driver, error) {
	return s.mutate(ctx, id, "driver.verified", func(d *Driver) error {
		return d.Verify()
	})
}

func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (*Driver, error) {
	d, err := s.mutate(ctx, cmd.DriverID, "driver.rejected", func(d *Driver) error {
		return d.Reject(cmd.Reason)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetStatus moves the driver between online and offline. Busy is managed by
// trip orchestration, not by this endpoint.
func (s *Service) SetStatus(ctx context.Context, cmd SetStatusCommand) (*Driver, error) {
	var apply func(*Driver) error
	switch cmd.Status {
	case StatusOnline:
		apply = func(d *Driver) error {
			if d.Status == StatusBusy || d.Status == StatusWaitingForAcceptance {
				return d.MarkAvailable()
			}
			return d.GoOnline()
		}
	case StatusOffline:
		apply = (*Driver).GoOffline
	case StatusBusy:
		apply = (*Driver).MarkBusy
	case StatusWaitingForAcceptance:
		apply = (*Driver).MarkWaitingForAcceptance
	default:
		return nil, ErrBadRequest
	}
	return s.mutate(ctx, cmd.DriverID, "driver.status_changed", apply)
}

func (s *Service) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (*Driver, error) {
	return s.mutate(ctx, cmd.DriverID, "driver.profile_updated", func(d *Driver) error {
		return d.UpdateProfile(cmd.Update)
	})
}

func (s *Service) UpdateVehicle(ctx context.Context, cmd UpdateVehicleCommand) (*Driver, error) {
	v, err := NewVehicleInfo(cmd.Type, cmd.Plate, cmd.Brand, cmd.Model, cmd.Year, cmd.Color)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.DriverID, "driver.vehicle_updated", func(d *Driver) error {
		d.UpdateVehicle(v)
		return nil
	})
}

func (s *Service) SetFCMToken(ctx context.Context, cmd SetFCMTokenCommand) error {
	_, err := s.mutate(ctx, cmd.DriverID, "", func(d *Driver) error {
		d.FCMToken = cmd.Token
		d.touch()
		return nil
	})
	return err
}

func (s *Service) Delete(ctx context.Context, id types.ID) error {
	if s.trips != nil {
		active, err := s.trips.HasActiveByDriver(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("%w: driver has an active trip", ErrConflict)
		}
	}
	_, err := s.mutate(ctx, id, "driver.deleted", func(d *Driver) error {
		d.SoftDelete()
		return nil
	})
	return err
}

// mutate loads the driver, applies the change and writes it back under the
// loaded version. A lost CAS race surfaces as ErrConflict; clients retry.
func (s *Service) mutate(ctx context.Context, id types.ID, eventName string, apply func(*Driver) error) (*Driver, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(d); err != nil {
		return nil, err
	}
	ok, err := s.store.Update(ctx, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	d.Version++
	if eventName != "" {
		s.publish(ctx, eventName, d, map[string]any{"status": string(d.Status), "verification": string(d.Verification)})
	}
	return d, nil
}

func (s *Service) publish(ctx context.Context, name string, d *Driver, payload map[string]any) {
	err := s.events.Publish(ctx, events.Event{
		Name:        name,
		AggregateID: d.ID,
		DriverID:    d.ID,
		Payload:     payload,
		OccurredAt:  d.UpdatedAt,
	})
	if err != nil {
		s.log.Warn("publish driver event failed", "event", name, "driver_id", d.ID, "err", err)
	}
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}
