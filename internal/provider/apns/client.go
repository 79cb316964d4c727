// Package apns adapts the Apple Push Notification Service to the
// ProviderClient port.
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// APNSClient is the subset of apns2.Client methods we use, kept as an
// interface so tests can mock the HTTP/2 transport.
type APNSClient interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

type Client struct {
	client APNSClient
	topic  string // the app bundle ID
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw content of the .p8 signing key file.
	P8KeyContent string
}

// NewClient parses the P8 key immediately to fail fast on startup if the
// credentials are bad.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	return &Client{
		client: apns2.NewTokenClient(tokenSource),
		topic:  cfg.BundleID,
		logger: logger.With("component", "APNSProvider"),
	}, nil
}

func (c *Client) Send(ctx context.Context, deviceToken string, p notify.NotificationPayload) (notify.Receipt, error) {
	// apns2.Client.Push is synchronous and does not take a context, so honour
	// the caller's deadline before starting the request.
	if err := ctx.Err(); err != nil {
		return notify.Receipt{}, notify.NewProviderError(notify.TransientFailure, err)
	}

	builder := payload.NewPayload().
		AlertTitle(p.Title).
		AlertBody(p.Body)
	if p.Sound != "" {
		builder.Sound(p.Sound)
	}
	if p.Badge > 0 {
		builder.Badge(p.Badge)
	}
	for k, v := range p.Data {
		builder.Custom(k, v)
	}

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.topic,
		Payload:     builder,
	}
	if p.Priority == notify.PriorityHigh {
		n.Priority = apns2.PriorityHigh
	}

	res, err := c.client.Push(n)
	if err != nil {
		return notify.Receipt{}, notify.NewProviderError(notify.TransientFailure, err)
	}
	if res.Sent() {
		return notify.Receipt{MessageID: res.ApnsID}, nil
	}

	reasonErr := fmt.Errorf("apns rejected notification: %s (status %d)", res.Reason, res.StatusCode)
	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return notify.Receipt{}, notify.NewProviderError(notify.InvalidToken, reasonErr)
	case apns2.ReasonPayloadEmpty, apns2.ReasonPayloadTooLarge:
		return notify.Receipt{}, notify.NewProviderError(notify.PayloadRejected, reasonErr)
	default:
		return notify.Receipt{}, notify.NewProviderError(notify.TransientFailure, reasonErr)
	}
}
