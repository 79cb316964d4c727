// Package web adapts VAPID Web Push to the ProviderClient port.
//
// For web devices the registry's opaque token is the JSON-encoded browser
// subscription captured at registration time. Only this adapter decodes it;
// the registry and engine still treat it as an opaque credential.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Config holds the VAPID signing material.
type Config struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type Client struct {
	subscriber string
	privateKey string
	publicKey  string
	logger     *slog.Logger
	httpClient *http.Client
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		subscriber: cfg.SubscriberEmail,
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		logger:     logger.With("component", "WebPushProvider"),
		httpClient: &http.Client{},
	}
}

// subscription mirrors the standard PushSubscription JSON a browser produces.
type subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (c *Client) Send(ctx context.Context, token string, p notify.NotificationPayload) (notify.Receipt, error) {
	var sub subscription
	if err := json.Unmarshal([]byte(token), &sub); err != nil || sub.Endpoint == "" {
		// A token that doesn't decode to a subscription can never be
		// delivered to; report it as dead so it gets cleaned up.
		return notify.Receipt{}, notify.NewProviderError(notify.InvalidToken, fmt.Errorf("malformed web subscription: %v", err))
	}

	body, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{
			"title":        p.Title,
			"body":         p.Body,
			"icon":         p.Icon,
			"image":        p.Image,
			"tag":          p.Tag,
			"click_action": p.ClickAction,
		},
		"data": p.Data,
	})
	if err != nil {
		return notify.Receipt{}, notify.NewProviderError(notify.PayloadRejected, fmt.Errorf("failed to marshal payload: %w", err))
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             60,
		Urgency:         urgency(p.Priority),
		HTTPClient:      c.httpClient,
	})
	if err != nil {
		return notify.Receipt{}, notify.NewProviderError(notify.TransientFailure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return notify.Receipt{MessageID: resp.Header.Get("Location")}, nil
	case http.StatusNotFound, http.StatusGone:
		// The push service has forgotten this subscription.
		return notify.Receipt{}, notify.NewProviderError(notify.InvalidToken, fmt.Errorf("subscription gone (status %d)", resp.StatusCode))
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return notify.Receipt{}, notify.NewProviderError(notify.PayloadRejected, fmt.Errorf("push service rejected payload (status %d)", resp.StatusCode))
	default:
		return notify.Receipt{}, notify.NewProviderError(notify.TransientFailure, fmt.Errorf("push service returned status %d", resp.StatusCode))
	}
}

func urgency(p notify.Priority) webpush.Urgency {
	if p == notify.PriorityHigh {
		return webpush.UrgencyHigh
	}
	return webpush.UrgencyNormal
}
