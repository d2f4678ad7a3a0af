// README: Domain event records and publisher interface.
package events

import (
	"context"
	"time"

	"courier/internal/types"
)

// Event is a tagged record of a domain fact. Events are accumulated during a
// use case and published only after the owning transaction commits.
type Event struct {
	Name        string         `json:"name"`
	AggregateID types.ID       `json:"aggregate_id"`
	DriverID    types.ID       `json:"driver_id,omitempty"`
	OrderID     types.ID       `json:"order_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Publisher dispatches committed events to interested consumers.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
