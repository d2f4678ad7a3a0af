// README: Trip state machine tests (no database).
package trip

import (
	"errors"
	"testing"
	"time"

	"courier/internal/types"
)

// TestCanTransition verifies the state machine transition table.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusAssigned, StatusAccepted, true},
		{StatusAccepted, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		// rejection only from assigned
		{StatusAssigned, StatusRejected, true},
		{StatusAccepted, StatusRejected, false},
		{StatusInTransit, StatusRejected, false},
		// cancel and fail from every non-terminal state
		{StatusAssigned, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusPickedUp, StatusCancelled, true},
		{StatusInTransit, StatusCancelled, true},
		{StatusAssigned, StatusFailed, true},
		{StatusAccepted, StatusFailed, true},
		{StatusPickedUp, StatusFailed, true},
		{StatusInTransit, StatusFailed, true},
		// terminal states have no outgoing transitions
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusFailed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusFailed, false},
		{StatusFailed, StatusFailed, false},
		{StatusFailed, StatusCancelled, false},
		{StatusRejected, StatusAccepted, false},
		// skipping states
		{StatusAssigned, StatusPickedUp, false},
		{StatusAssigned, StatusInTransit, false},
		{StatusAssigned, StatusDelivered, false},
		{StatusAccepted, StatusInTransit, false},
		{StatusAccepted, StatusDelivered, false},
		{StatusPickedUp, StatusDelivered, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNewTripValidation(t *testing.T) {
	fare := types.Money{Amount: 1500, Currency: "USD"}
	pickup := types.Point{Lat: 10.7769, Lng: 106.7009}
	delivery := types.Point{Lat: 10.8231, Lng: 106.6297}

	if _, err := New("t1", "", "o1", "1 Pickup St", pickup, "2 Delivery St", delivery, fare, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("missing driver: expected ErrValidation, got %v", err)
	}
	if _, err := New("t1", "d1", "", "1 Pickup St", pickup, "2 Delivery St", delivery, fare, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("missing order: expected ErrValidation, got %v", err)
	}
	if _, err := New("t1", "d1", "o1", "  ", pickup, "2 Delivery St", delivery, fare, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank pickup address: expected ErrValidation, got %v", err)
	}
	if _, err := New("t1", "d1", "o1", "1 Pickup St", pickup, "", delivery, fare, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank delivery address: expected ErrValidation, got %v", err)
	}
	if _, err := New("t1", "d1", "o1", "1 Pickup St", types.Point{Lat: 91}, "2 Delivery St", delivery, fare, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("bad coordinates: expected ErrValidation, got %v", err)
	}
	if _, err := New("t1", "d1", "o1", "1 Pickup St", pickup, "2 Delivery St", delivery, types.Money{Currency: "USD"}, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("zero fare: expected ErrValidation, got %v", err)
	}

	tr, err := New("t1", "d1", "o1", "1 Pickup St", pickup, "2 Delivery St", delivery, fare, "leave at door")
	if err != nil {
		t.Fatalf("valid trip: %v", err)
	}
	if tr.Status != StatusAssigned {
		t.Fatalf("expected assigned, got %s", tr.Status)
	}
	if tr.AssignedAt.IsZero() {
		t.Fatal("expected assigned_at to be set")
	}
}

func TestHappyPathWithDuration(t *testing.T) {
	tr := newTrip(t)

	if err := tr.Accept(); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if tr.AcceptedAt == nil {
		t.Fatal("expected accepted_at")
	}
	// backdate acceptance so duration is non-zero
	early := tr.AcceptedAt.Add(-42 * time.Minute)
	tr.AcceptedAt = &early

	if err := tr.MarkPickedUp(); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if err := tr.StartDelivery(); err != nil {
		t.Fatalf("start delivery: %v", err)
	}
	cash := types.Money{Amount: 2000, Currency: "USD"}
	if err := tr.CompleteDelivery(&cash, "handed to customer"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if tr.Status != StatusDelivered || tr.DeliveredAt == nil {
		t.Fatalf("not delivered: %s", tr.Status)
	}
	if tr.DurationMinutes == nil || *tr.DurationMinutes != 42 {
		t.Fatalf("expected 42 whole minutes, got %v", tr.DurationMinutes)
	}
	if tr.CashCollected == nil || tr.CashCollected.Amount != 2000 {
		t.Fatalf("cash not recorded: %v", tr.CashCollected)
	}
}

func TestDoubleAcceptFails(t *testing.T) {
	tr := newTrip(t)
	if err := tr.Accept(); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := tr.Accept(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second accept: expected ErrInvalidState, got %v", err)
	}
}

func TestRejectOnlyFromAssigned(t *testing.T) {
	tr := newTrip(t)
	if err := tr.Accept(); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := tr.Reject(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reject after accept: expected ErrInvalidState, got %v", err)
	}

	tr2 := newTrip(t)
	if err := tr2.Reject(); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if tr2.Status != StatusRejected || tr2.RejectedAt == nil {
		t.Fatalf("rejection not recorded: %s", tr2.Status)
	}
}

func TestCancelGuards(t *testing.T) {
	tr := newTrip(t)
	if err := tr.Cancel("  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason: expected ErrValidation, got %v", err)
	}
	if err := tr.Cancel("customer no-show"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if tr.CancellationReason != "customer no-show" || tr.CancelledAt == nil {
		t.Fatal("cancellation not recorded")
	}

	// cancel after delivery is refused
	done := deliveredTrip(t)
	if err := done.Cancel("too late"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel delivered: expected ErrInvalidState, got %v", err)
	}
}

func TestMarkFailedGuards(t *testing.T) {
	tr := newTrip(t)
	if err := tr.MarkFailed(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason: expected ErrValidation, got %v", err)
	}
	if err := tr.MarkFailed("address not found"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	done := deliveredTrip(t)
	if err := done.MarkFailed("nope"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("fail delivered: expected ErrInvalidState, got %v", err)
	}
}

func TestRatingBounds(t *testing.T) {
	tr := newTrip(t)
	if err := tr.AddCustomerRating(5, "great"); !errors.Is(err, ErrValidation) {
		t.Fatalf("rating before delivery: expected ErrValidation, got %v", err)
	}

	done := deliveredTrip(t)
	if err := done.AddCustomerRating(0, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("rating 0: expected ErrValidation, got %v", err)
	}
	if err := done.AddCustomerRating(6, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("rating 6: expected ErrValidation, got %v", err)
	}
	if err := done.AddCustomerRating(4, "on time"); err != nil {
		t.Fatalf("rating: %v", err)
	}
	if done.CustomerRating == nil || *done.CustomerRating != 4 || done.CustomerFeedback != "on time" {
		t.Fatal("rating not recorded")
	}
}

func TestUpdateDistance(t *testing.T) {
	tr := newTrip(t)
	if err := tr.UpdateDistance(-1); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative distance: expected ErrValidation, got %v", err)
	}
	if err := tr.UpdateDistance(7.25); err != nil {
		t.Fatalf("distance: %v", err)
	}
	if tr.DistanceKm == nil || *tr.DistanceKm != 7.25 {
		t.Fatal("distance not recorded")
	}
}

func TestIsActive(t *testing.T) {
	tr := newTrip(t)
	if !tr.IsActive() {
		t.Fatal("assigned trip should be active")
	}
	for _, terminal := range []func(*Trip) error{
		func(x *Trip) error { return x.Reject() },
		func(x *Trip) error { return x.Cancel("r") },
		func(x *Trip) error { return x.MarkFailed("r") },
	} {
		x := newTrip(t)
		if err := terminal(x); err != nil {
			t.Fatalf("terminal op: %v", err)
		}
		if x.IsActive() {
			t.Fatalf("%s trip should not be active", x.Status)
		}
	}
	if deliveredTrip(t).IsActive() {
		t.Fatal("delivered trip should not be active")
	}
}

func TestTerminalPredicates(t *testing.T) {
	delivered := deliveredTrip(t)
	if !delivered.IsCompleted() || delivered.IsCancelled() || delivered.IsFailed() {
		t.Errorf("delivered trip predicates wrong: completed=%v cancelled=%v failed=%v",
			delivered.IsCompleted(), delivered.IsCancelled(), delivered.IsFailed())
	}

	cancelled := newTrip(t)
	if err := cancelled.Cancel("customer no-show"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.IsCancelled() || cancelled.IsCompleted() || cancelled.IsFailed() {
		t.Errorf("cancelled trip predicates wrong")
	}

	failed := newTrip(t)
	if err := failed.MarkFailed("vehicle breakdown"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if !failed.IsFailed() || failed.IsCompleted() || failed.IsCancelled() {
		t.Errorf("failed trip predicates wrong")
	}

	active := newTrip(t)
	if active.IsCompleted() || active.IsCancelled() || active.IsFailed() {
		t.Errorf("assigned trip should satisfy no terminal predicate")
	}
}

func newTrip(t *testing.T) *Trip {
	t.Helper()
	tr, err := New("t1", "d1", "o1",
		"1 Pickup St", types.Point{Lat: 10.7769, Lng: 106.7009},
		"2 Delivery St", types.Point{Lat: 10.8231, Lng: 106.6297},
		types.Money{Amount: 1500, Currency: "USD"}, "")
	if err != nil {
		t.Fatalf("new trip: %v", err)
	}
	return tr
}

func deliveredTrip(t *testing.T) *Trip {
	t.Helper()
	tr := newTrip(t)
	for _, step := range []func() error{tr.Accept, tr.MarkPickedUp, tr.StartDelivery} {
		if err := step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := tr.CompleteDelivery(nil, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	return tr
}
