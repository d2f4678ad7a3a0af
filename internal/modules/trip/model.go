// README: Trip aggregate: delivery state machine and history record.
package trip

import (
	"fmt"
	"strings"
	"time"

	"courier/internal/types"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusAccepted  Status = "accepted"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// AllowedTransitions is the single source of truth for the delivery state
// machine. Terminal statuses have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusAssigned:  {StatusAccepted, StatusRejected, StatusCancelled, StatusFailed},
	StatusAccepted:  {StatusPickedUp, StatusCancelled, StatusFailed},
	StatusPickedUp:  {StatusInTransit, StatusCancelled, StatusFailed},
	StatusInTransit: {StatusDelivered, StatusCancelled, StatusFailed},
	StatusDelivered: {},
	StatusCancelled: {},
	StatusFailed:    {},
	StatusRejected:  {},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Trip struct {
	ID       types.ID
	DriverID types.ID
	OrderID  types.ID
	Status   Status

	PickupAddress   string
	Pickup          types.Point
	DeliveryAddress string
	Delivery        types.Point

	DistanceKm      *float64
	DurationMinutes *int

	Fare          types.Money
	CashCollected *types.Money

	AssignedAt  time.Time
	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	RejectedAt  *time.Time

	CancellationReason string
	FailureReason      string
	CustomerNotes      string
	DriverNotes        string

	CustomerRating   *int
	CustomerFeedback string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New assigns an order to a driver. The trip starts in assigned and waits
// for the driver to accept or reject.
func New(id, driverID, orderID types.ID, pickupAddress string, pickup types.Point, deliveryAddress string, delivery types.Point, fare types.Money, customerNotes string) (*Trip, error) {
	if driverID == "" {
		return nil, fmt.Errorf("%w: driver id is required", ErrValidation)
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	pickupAddress = strings.TrimSpace(pickupAddress)
	deliveryAddress = strings.TrimSpace(deliveryAddress)
	if pickupAddress == "" {
		return nil, fmt.Errorf("%w: pickup address is required", ErrValidation)
	}
	if deliveryAddress == "" {
		return nil, fmt.Errorf("%w: delivery address is required", ErrValidation)
	}
	if !pickup.Valid() || !delivery.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	if !fare.IsPositive() {
		return nil, fmt.Errorf("%w: fare must be greater than zero", ErrValidation)
	}
	now := time.Now().UTC()
	return &Trip{
		ID:              id,
		DriverID:        driverID,
		OrderID:         orderID,
		Status:          StatusAssigned,
		PickupAddress:   pickupAddress,
		Pickup:          pickup,
		DeliveryAddress: deliveryAddress,
		Delivery:        delivery,
		Fare:            fare,
		CustomerNotes:   strings.TrimSpace(customerNotes),
		AssignedAt:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (t *Trip) Accept() error {
	if !CanTransition(t.Status, StatusAccepted) {
		return transitionErr(t.Status, StatusAccepted)
	}
	now := time.Now().UTC()
	t.Status = StatusAccepted
	t.AcceptedAt = &now
	t.touch()
	return nil
}

func (t *Trip) Reject() error {
	if !CanTransition(t.Status, StatusRejected) {
		return transitionErr(t.Status, StatusRejected)
	}
	now := time.Now().UTC()
	t.Status = StatusRejected
	t.RejectedAt = &now
	t.touch()
	return nil
}

func (t *Trip) MarkPickedUp() error {
	if !CanTransition(t.Status, StatusPickedUp) {
		return transitionErr(t.Status, StatusPickedUp)
	}
	now := time.Now().UTC()
	t.Status = StatusPickedUp
	t.PickedUpAt = &now
	t.touch()
	return nil
}

func (t *Trip) StartDelivery() error {
	if !CanTransition(t.Status, StatusInTransit) {
		return transitionErr(t.Status, StatusInTransit)
	}
	t.Status = StatusInTransit
	t.touch()
	return nil
}

// CompleteDelivery closes the trip. Duration is whole minutes between accept
// and delivery.
func (t *Trip) CompleteDelivery(cashCollected *types.Money, driverNotes string) error {
	if !CanTransition(t.Status, StatusDelivered) {
		return transitionErr(t.Status, StatusDelivered)
	}
	now := time.Now().UTC()
	t.Status = StatusDelivered
	t.DeliveredAt = &now
	t.CashCollected = cashCollected
	t.DriverNotes = strings.TrimSpace(driverNotes)
	if t.AcceptedAt != nil {
		mins := int(now.Sub(*t.AcceptedAt).Minutes())
		t.DurationMinutes = &mins
	}
	t.touch()
	return nil
}

func (t *Trip) Cancel(reason string) error {
	if !CanTransition(t.Status, StatusCancelled) {
		return transitionErr(t.Status, StatusCancelled)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	}
	now := time.Now().UTC()
	t.Status = StatusCancelled
	t.CancelledAt = &now
	t.CancellationReason = reason
	t.touch()
	return nil
}

func (t *Trip) MarkFailed(reason string) error {
	if !CanTransition(t.Status, StatusFailed) {
		return transitionErr(t.Status, StatusFailed)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: failure reason is required", ErrValidation)
	}
	t.Status = StatusFailed
	t.FailureReason = reason
	t.touch()
	return nil
}

func (t *Trip) UpdateDistance(distanceKm float64) error {
	if distanceKm < 0 {
		return fmt.Errorf("%w: distance cannot be negative", ErrValidation)
	}
	t.DistanceKm = &distanceKm
	t.touch()
	return nil
}

func (t *Trip) AddCustomerRating(rating int, feedback string) error {
	if t.Status != StatusDelivered {
		return fmt.Errorf("%w: only delivered trips can be rated", ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	t.CustomerRating = &rating
	t.CustomerFeedback = strings.TrimSpace(feedback)
	t.touch()
	return nil
}

func (t *Trip) IsCompleted() bool { return t.Status == StatusDelivered }
func (t *Trip) IsCancelled() bool { return t.Status == StatusCancelled }
func (t *Trip) IsFailed() bool    { return t.Status == StatusFailed }

func (t *Trip) IsActive() bool {
	switch t.Status {
	case StatusDelivered, StatusCancelled, StatusFailed, StatusRejected:
		return false
	}
	return true
}

func (t *Trip) touch() {
	t.UpdatedAt = time.Now().UTC()
}

func transitionErr(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
}

// Event is an append-only record of one state transition.
type Event struct {
	TripID     types.ID
	OrderID    types.ID
	DriverID   types.ID
	FromStatus Status
	ToStatus   Status
	Reason     string
	CreatedAt  time.Time
}
