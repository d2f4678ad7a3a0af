// README: Trip store backed by PostgreSQL.
package trip

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"courier/internal/infra"
	"courier/internal/types"
)

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const tripColumns = `
	id, driver_id, order_id, status, version,
	pickup_address, pickup_lat, pickup_lng,
	delivery_address, delivery_lat, delivery_lng,
	distance_km, duration_minutes, currency, fare, cash_collected,
	assigned_at, accepted_at, picked_up_at, delivered_at, cancelled_at, rejected_at,
	cancellation_reason, failure_reason, customer_notes, driver_notes,
	customer_rating, customer_feedback, created_at, updated_at`

func (s *Store) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (
			id, driver_id, order_id, status, version,
			pickup_address, pickup_lat, pickup_lng,
			delivery_address, delivery_lat, delivery_lng,
			distance_km, currency, fare,
			assigned_at, customer_notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18
		)`,
		string(t.ID),
		string(t.DriverID),
		string(t.OrderID),
		string(t.Status),
		t.Version,
		t.PickupAddress,
		t.Pickup.Lat, t.Pickup.Lng,
		t.DeliveryAddress,
		t.Delivery.Lat, t.Delivery.Lng,
		t.DistanceKm,
		t.Fare.Currency,
		t.Fare.Amount,
		t.AssignedAt,
		t.CustomerNotes,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE id = $1`, string(id),
	)
	return scanTrip(row)
}

func (s *Store) GetByOrderID(ctx context.Context, orderID types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE order_id = $1`, string(orderID),
	)
	return scanTrip(row)
}

// ListByDriver pages the driver's history, newest assignment first. An empty
// status means all statuses.
func (s *Store) ListByDriver(ctx context.Context, driverID types.ID, status Status, limit, offset int) ([]*Trip, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE driver_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY assigned_at DESC
		LIMIT $3 OFFSET $4`, string(driverID), string(status), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trips
			WHERE driver_id = $1
			  AND status IN ('assigned','accepted','picked_up','in_transit')
		)`, string(driverID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Update writes the full trip row guarded by the loaded version. Reports
// false when a concurrent writer already bumped it.
func (s *Store) Update(ctx context.Context, t *Trip) (bool, error) {
	var cashCollected *int64
	if t.CashCollected != nil {
		cashCollected = &t.CashCollected.Amount
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET status = $1,
		    version = version + 1,
		    distance_km = $2,
		    duration_minutes = $3,
		    cash_collected = $4,
		    accepted_at = $5,
		    picked_up_at = $6,
		    delivered_at = $7,
		    cancelled_at = $8,
		    rejected_at = $9,
		    cancellation_reason = $10,
		    failure_reason = $11,
		    driver_notes = $12,
		    customer_rating = $13,
		    customer_feedback = $14,
		    updated_at = $15
		WHERE id = $16 AND version = $17`,
		string(t.Status),
		t.DistanceKm,
		t.DurationMinutes,
		cashCollected,
		t.AcceptedAt,
		t.PickedUpAt,
		t.DeliveredAt,
		t.CancelledAt,
		t.RejectedAt,
		t.CancellationReason,
		t.FailureReason,
		t.DriverNotes,
		t.CustomerRating,
		t.CustomerFeedback,
		t.UpdatedAt,
		string(t.ID),
		t.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_state_events (
			trip_id, order_id, driver_id, from_status, to_status, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.TripID),
		string(e.OrderID),
		string(e.DriverID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.Reason,
		e.CreatedAt,
	)
	return err
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var (
		distanceKm                                                  sql.NullFloat64
		durationMinutes, customerRating                             sql.NullInt64
		currency                                                    string
		cashCollected                                               sql.NullInt64
		acceptedAt, pickedUpAt, deliveredAt, cancelledAt, rejectedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.DriverID, &t.OrderID, &t.Status, &t.Version,
		&t.PickupAddress, &t.Pickup.Lat, &t.Pickup.Lng,
		&t.DeliveryAddress, &t.Delivery.Lat, &t.Delivery.Lng,
		&distanceKm, &durationMinutes, &currency, &t.Fare.Amount, &cashCollected,
		&t.AssignedAt, &acceptedAt, &pickedUpAt, &deliveredAt, &cancelledAt, &rejectedAt,
		&t.CancellationReason, &t.FailureReason, &t.CustomerNotes, &t.DriverNotes,
		&customerRating, &t.CustomerFeedback, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Fare.Currency = currency
	if distanceKm.Valid {
		v := distanceKm.Float64
		t.DistanceKm = &v
	}
	if durationMinutes.Valid {
		v := int(durationMinutes.Int64)
		t.DurationMinutes = &v
	}
	if cashCollected.Valid {
		v := types.Money{Amount: cashCollected.Int64, Currency: currency}
		t.CashCollected = &v
	}
	if customerRating.Valid {
		v := int(customerRating.Int64)
		t.CustomerRating = &v
	}
	t.AcceptedAt = toTimePtr(acceptedAt)
	t.PickedUpAt = toTimePtr(pickedUpAt)
	t.DeliveredAt = toTimePtr(deliveredAt)
	t.CancelledAt = toTimePtr(cancelledAt)
	t.RejectedAt = toTimePtr(rejectedAt)
	return &t, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
