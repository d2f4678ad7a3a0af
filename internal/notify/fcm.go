// README: FCM push notifications for driver assignments.
package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"courier/internal/modules/trip"
)

// FCM sends pushes through Firebase Cloud Messaging. A nil *FCM is valid and
// drops every notification, so the broker stays optional in dev setups.
type FCM struct {
	client *messaging.Client
}

// NewFCM initialises the Firebase Admin SDK. If credentialsFile is empty,
// application-default credentials are used.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Messaging: %w", err)
	}
	return &FCM{client: client}, nil
}

// NotifyAssignment tells the driver's device about a new delivery waiting
// for their answer.
func (f *FCM) NotifyAssignment(ctx context.Context, token string, t *trip.Trip) error {
	if f == nil || token == "" {
		return nil
	}
	_, err := f.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "New delivery assignment",
			Body:  fmt.Sprintf("Pickup at %s", t.PickupAddress),
		},
		Data: map[string]string{
			"type":     "trip_assigned",
			"trip_id":  string(t.ID),
			"order_id": string(t.OrderID),
		},
	})
	return err
}
