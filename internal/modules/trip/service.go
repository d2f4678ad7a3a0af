// README: Trip service: assignment, status orchestration, order-service
// coupling and driver payout.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/events"
	"courier/internal/infra"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/wallet"
	"courier/internal/types"
)

var (
	ErrValidation        = errors.New("trip validation failed")
	ErrInvalidState      = errors.New("invalid trip state transition")
	ErrNotFound          = errors.New("trip not found")
	ErrConflict          = errors.New("trip state conflict")
	ErrDriverUnavailable = errors.New("driver is not available for assignment")
)

// OrderClient pushes status updates to the external order service. The call
// happens before anything is persisted so a failure aborts the whole use case.
type OrderClient interface {
	UpdateStatus(ctx context.Context, orderID types.ID, status string) error
}

// DistanceEstimator returns road distance in km between two points.
type DistanceEstimator interface {
	DistanceKm(ctx context.Context, from, to types.Point) (float64, error)
}

// AssignmentNotifier pushes "new assignment" notifications to the driver.
type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, token string, t *Trip) error
}

// Ledger couples driver payout to trip completion inside one transaction.
type Ledger interface {
	EarnInTx(ctx context.Context, db infra.DB, cmd wallet.EarnCommand) error
	CollectCashInTx(ctx context.Context, db infra.DB, cmd wallet.CollectCashCommand) error
}

type Service struct {
	pool     *pgxpool.Pool
	store    *Store
	drivers  *driver.Store
	orders   OrderClient
	ledger   Ledger
	distance DistanceEstimator
	notifier AssignmentNotifier
	events   events.Publisher
	log      *slog.Logger
}

// NewService wires the trip module. orders, ledger, distance and notifier
// may be nil; the matching side effects are then skipped.
func NewService(pool *pgxpool.Pool, store *Store, drivers *driver.Store, orders OrderClient, ledger Ledger, distance DistanceEstimator, notifier AssignmentNotifier, publisher events.Publisher, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:     pool,
		store:    store,
		drivers:  drivers,
		orders:   orders,
		ledger:   ledger,
		distance: distance,
		notifier: notifier,
		events:   publisher,
		log:      log,
	}
}

type CreateCommand struct {
	DriverID        types.ID
	OrderID         types.ID
	PickupAddress   string
	Pickup          types.Point
	DeliveryAddress string
	Delivery        types.Point
	Fare            types.Money
	CustomerNotes   string
}

type UpdateStatusCommand struct {
	TripID types.ID
	Status Status
}

type CompleteCommand struct {
	TripID        types.ID
	CashCollected *types.Money
	DriverNotes   string
}

type CancelCommand struct {
	TripID types.ID
	Reason string
}

type FailCommand struct {
	TripID types.ID
	Reason string
}

type RateCommand struct {
	TripID   types.ID
	Rating   int
	Feedback string
}

type ListCommand struct {
	DriverID types.ID
	Status   Status
	Limit    int
	Offset   int
}

// Create assigns an order to a named driver. The driver must be online; the
// assignment parks them in waiting_for_acceptance until they answer.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Trip, error) {
	d, err := s.drivers.Get(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}

	t, err := New(newID(), cmd.DriverID, cmd.OrderID, cmd.PickupAddress, cmd.Pickup, cmd.DeliveryAddress, cmd.Delivery, cmd.Fare, cmd.CustomerNotes)
	if err != nil {
		return nil, err
	}
	t.DistanceKm = ptr(s.estimateKm(ctx, cmd.Pickup, cmd.Delivery))

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.WithTx(tx).Create(ctx, t); err != nil {
			return err
		}
		ok, err := s.drivers.WithTx(tx).UpdateStatus(ctx, d.ID, driver.StatusOnline, driver.StatusWaitingForAcceptance)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDriverUnavailable
		}
		return s.store.WithTx(tx).AppendEvent(ctx, &Event{
			TripID: t.ID, OrderID: t.OrderID, DriverID: t.DriverID,
			FromStatus: "", ToStatus: StatusAssigned, CreatedAt: t.AssignedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "trip.assigned", t, nil)
	if s.notifier != nil && d.FCMToken != "" {
		if err := s.notifier.NotifyAssignment(ctx, d.FCMToken, t); err != nil {
			s.log.Warn("assignment push failed", "trip_id", t.ID, "driver_id", d.ID, "err", err)
		}
	}
	return t, nil
}

// UpdateStatus drives accept/reject/picked_up/in_transit. Accept and reject
// notify the order service first; if that call fails nothing is persisted.
func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*Trip, error) {
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	from := t.Status

	var orderStatus string
	var driverFrom, driverTo driver.Status
	switch cmd.Status {
	case StatusAccepted:
		if err := t.Accept(); err != nil {
			return nil, err
		}
		orderStatus = "delivering"
		driverFrom, driverTo = driver.StatusWaitingForAcceptance, driver.StatusBusy
	case StatusRejected:
		if err := t.Reject(); err != nil {
			return nil, err
		}
		orderStatus = "cancelled"
		driverFrom, driverTo = driver.StatusWaitingForAcceptance, driver.StatusOnline
	case StatusPickedUp:
		if err := t.MarkPickedUp(); err != nil {
			return nil, err
		}
	case StatusInTransit:
		if err := t.StartDelivery(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: status %s is not settable via this operation", ErrValidation, cmd.Status)
	}

	if err := s.updateOrder(ctx, t.OrderID, orderStatus); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.commitTransition(ctx, tx, t, from, ""); err != nil {
			return err
		}
		return s.flipDriver(ctx, tx, t.DriverID, driverFrom, driverTo)
	})
	if err != nil {
		return nil, err
	}
	t.Version++

	s.publish(ctx, "trip."+string(t.Status), t, nil)
	return t, nil
}

// Complete closes the delivery: order service first, then trip CAS, driver
// back to online, fare credited to the wallet and any COD moved to cash on
// hand, all in one transaction.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Trip, error) {
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if err := t.CompleteDelivery(cmd.CashCollected, cmd.DriverNotes); err != nil {
		return nil, err
	}

	if err := s.updateOrder(ctx, t.OrderID, "delivered"); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.commitTransition(ctx, tx, t, from, ""); err != nil {
			return err
		}
		if err := s.flipDriver(ctx, tx, t.DriverID, driver.StatusBusy, driver.StatusOnline); err != nil {
			return err
		}
		if s.ledger == nil {
			return nil
		}
		if err := s.ledger.EarnInTx(ctx, tx, wallet.EarnCommand{
			DriverID: t.DriverID, OrderID: t.OrderID, Amount: t.Fare,
		}); err != nil {
			return err
		}
		if t.CashCollected != nil {
			return s.ledger.CollectCashInTx(ctx, tx, wallet.CollectCashCommand{
				DriverID: t.DriverID, OrderID: t.OrderID, Amount: *t.CashCollected,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.Version++

	s.publish(ctx, "trip.delivered", t, map[string]any{"fare": t.Fare.Float64(), "duration_minutes": t.DurationMinutes})
	return t, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Trip, error) {
	return s.abort(ctx, cmd.TripID, func(t *Trip) error { return t.Cancel(cmd.Reason) }, cmd.Reason)
}

func (s *Service) Fail(ctx context.Context, cmd FailCommand) (*Trip, error) {
	return s.abort(ctx, cmd.TripID, func(t *Trip) error { return t.MarkFailed(cmd.Reason) }, cmd.Reason)
}

// abort handles cancel and fail: order service is told "cancelled" and the
// driver is released back to online.
func (s *Service) abort(ctx context.Context, tripID types.ID, apply func(*Trip) error, reason string) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if err := apply(t); err != nil {
		return nil, err
	}

	if err := s.updateOrder(ctx, t.OrderID, "cancelled"); err != nil {
		return nil, err
	}

	driverFrom := driver.StatusBusy
	if from == StatusAssigned {
		driverFrom = driver.StatusWaitingForAcceptance
	}
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.commitTransition(ctx, tx, t, from, reason); err != nil {
			return err
		}
		return s.flipDriver(ctx, tx, t.DriverID, driverFrom, driver.StatusOnline)
	})
	if err != nil {
		return nil, err
	}
	t.Version++

	s.publish(ctx, "trip."+string(t.Status), t, map[string]any{"reason": reason})
	return t, nil
}

func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*Trip, error) {
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if err := t.AddCustomerRating(cmd.Rating, cmd.Feedback); err != nil {
		return nil, err
	}
	ok, err := s.store.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	t.Version++
	s.publish(ctx, "trip.rated", t, map[string]any{"rating": cmd.Rating})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByOrder(ctx context.Context, orderID types.ID) (*Trip, error) {
	return s.store.GetByOrderID(ctx, orderID)
}

func (s *Service) ListByDriver(ctx context.Context, cmd ListCommand) ([]*Trip, error) {
	return s.store.ListByDriver(ctx, cmd.DriverID, cmd.Status, cmd.Limit, cmd.Offset)
}

func (s *Service) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// commitTransition writes the trip CAS update and the state event.
func (s *Service) commitTransition(ctx context.Context, tx pgx.Tx, t *Trip, from Status, reason string) error {
	store := s.store.WithTx(tx)
	ok, err := store.Update(ctx, t)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return store.AppendEvent(ctx, &Event{
		TripID: t.ID, OrderID: t.OrderID, DriverID: t.DriverID,
		FromStatus: from, ToStatus: t.Status, Reason: reason, CreatedAt: t.UpdatedAt,
	})
}

func (s *Service) flipDriver(ctx context.Context, tx pgx.Tx, driverID types.ID, from, to driver.Status) error {
	if from == "" && to == "" {
		return nil
	}
	ok, err := s.drivers.WithTx(tx).UpdateStatus(ctx, driverID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: driver is not in status %s", ErrConflict, from)
	}
	return nil
}

func (s *Service) updateOrder(ctx context.Context, orderID types.ID, status string) error {
	if status == "" || s.orders == nil {
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("update order %s to %s: %w", orderID, status, err)
	}
	return nil
}

func (s *Service) estimateKm(ctx context.Context, from, to types.Point) float64 {
	if s.distance != nil {
		if km, err := s.distance.DistanceKm(ctx, from, to); err == nil {
			return km
		} else {
			s.log.Warn("road distance estimate failed, falling back to haversine", "err", err)
		}
	}
	return location.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
}

func (s *Service) publish(ctx context.Context, name string, t *Trip, payload map[string]any) {
	err := s.events.Publish(ctx, events.Event{
		Name:        name,
		AggregateID: t.ID,
		DriverID:    t.DriverID,
		OrderID:     t.OrderID,
		Payload:     payload,
		OccurredAt:  t.UpdatedAt,
	})
	if err != nil {
		s.log.Warn("publish trip event failed", "event", name, "trip_id", t.ID, "err", err)
	}
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}

func ptr[T any](v T) *T { return &v }
