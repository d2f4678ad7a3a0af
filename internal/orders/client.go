// README: HTTP client for the external order service.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"courier/internal/types"
)

// ErrUnavailable means the order service could not be reached after retries,
// or the circuit breaker is open. Callers must not persist anything.
var ErrUnavailable = errors.New("order service unavailable")

// ErrRejected means the order service answered with a non-retryable status.
var ErrRejected = errors.New("order service rejected the update")

const maxRetries = 3

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewClient builds a client whose breaker opens after breakerTrips
// consecutive failures and half-opens after breakerReset.
func NewClient(baseURL string, timeout time.Duration, breakerTrips uint32, breakerReset time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if breakerTrips == 0 {
		breakerTrips = 5
	}
	if breakerReset <= 0 {
		breakerReset = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "order-service",
		Timeout: breakerReset,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("order service breaker state change", "from", from.String(), "to", to.String())
		},
	})
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		log:     log,
	}
}

// UpdateStatus tells the order service the order moved to status
// (delivering, delivered or cancelled). Transient failures are retried with
// exponential backoff; the breaker sees one aggregate outcome per call.
func (c *Client) UpdateStatus(ctx context.Context, orderID types.ID, status string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.updateWithRetry(ctx, orderID, status)
	})
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) updateWithRetry(ctx context.Context, orderID types.ID, status string) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries-1), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.doUpdate(ctx, orderID, status)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRejected) {
			return backoff.Permanent(err)
		}
		c.log.Warn("order status update failed", "order_id", orderID, "status", status, "attempt", attempt, "err", err)
		return err
	}, policy)
}

func (c *Client) doUpdate(ctx context.Context, orderID types.ID, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// client errors will not heal on retry
		return fmt.Errorf("%w: http %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("http %d", resp.StatusCode)
	}
}
