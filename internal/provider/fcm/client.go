// Package fcm adapts Firebase Cloud Messaging to the ProviderClient port.
package fcm

import (
	"context"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// MessagingClient is the subset of the Firebase Messaging API we call.
// *messaging.Client satisfies it; tests substitute a mock.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Client struct {
	client MessagingClient
	logger *slog.Logger
}

func NewClient(client MessagingClient, logger *slog.Logger) *Client {
	return &Client{
		client: client,
		logger: logger.With("component", "FCMProvider"),
	}
}

func (c *Client) Send(ctx context.Context, token string, payload notify.NotificationPayload) (notify.Receipt, error) {
	msg := &messaging.Message{
		Token: token,
		Data:  payload.Data,
		Notification: &messaging.Notification{
			Title:    payload.Title,
			Body:     payload.Body,
			ImageURL: payload.Image,
		},
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(payload.Priority),
			Notification: &messaging.AndroidNotification{
				Icon:        payload.Icon,
				Sound:       payload.Sound,
				Tag:         payload.Tag,
				ClickAction: payload.ClickAction,
			},
		},
		// Browsers registered through FCM read the Webpush section.
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{"Urgency": webpushUrgency(payload.Priority)},
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Icon:  payload.Icon,
				Tag:   payload.Tag,
			},
		},
	}

	id, err := c.client.Send(ctx, msg)
	if err != nil {
		return notify.Receipt{}, classify(err)
	}
	return notify.Receipt{MessageID: id}, nil
}

// classify maps Firebase SDK errors onto the provider error taxonomy. The
// SDK exposes predicate helpers rather than sentinel values, so the mapping
// lives here instead of leaking messaging imports into the engine.
func classify(err error) error {
	switch {
	case messaging.IsRegistrationTokenNotRegistered(err):
		return notify.NewProviderError(notify.InvalidToken, err)
	case messaging.IsInvalidArgument(err):
		return notify.NewProviderError(notify.PayloadRejected, err)
	default:
		return notify.NewProviderError(notify.TransientFailure, err)
	}
}

func androidPriority(p notify.Priority) string {
	if p == notify.PriorityHigh {
		return "high"
	}
	return "normal"
}

func webpushUrgency(p notify.Priority) string {
	if p == notify.PriorityHigh {
		return "high"
	}
	return "normal"
}
