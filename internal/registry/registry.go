// Package registry validates registration requests and performs idempotent
// token upserts against the token store.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Registry enforces one-record-per-(user, token) semantics on top of a
// TokenStore. It holds no per-call state and is safe for concurrent use.
type Registry struct {
	store  notify.TokenStore
	logger *slog.Logger
	now    func() time.Time
}

func New(store notify.TokenStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With("component", "TokenRegistry"),
		now:    time.Now,
	}
}

// RegisterToken upserts a device token for a user. Re-registering the same
// token preserves the original CreatedAt and refreshes UpdatedAt, so the
// operation is idempotent up to the UpdatedAt timestamp. Under concurrent
// registration for the same user the last completed write wins.
func (r *Registry) RegisterToken(ctx context.Context, userID, token, deviceInfo string, platform notify.Platform) (notify.TokenRecord, error) {
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return notify.TokenRecord{}, &notify.ValidationError{Fields: missing}
	}

	if deviceInfo == "" {
		deviceInfo = notify.DefaultDeviceInfo
	}
	if platform == "" {
		platform = notify.PlatformFCM
	}

	nowMillis := r.now().UnixMilli()
	record := notify.TokenRecord{
		Token:      token,
		DeviceInfo: deviceInfo,
		Platform:   platform,
		CreatedAt:  nowMillis,
		UpdatedAt:  nowMillis,
	}

	existing, err := r.store.Get(ctx, userID)
	if err != nil {
		return notify.TokenRecord{}, fmt.Errorf("token lookup failed: %w", err)
	}
	for _, prior := range existing {
		if prior.Token == token {
			record.CreatedAt = prior.CreatedAt
			break
		}
	}

	if err := r.store.Put(ctx, userID, record); err != nil {
		return notify.TokenRecord{}, fmt.Errorf("token write failed: %w", err)
	}

	r.logger.Debug("Token registered", "user_id", userID, "platform", record.Platform)
	return record, nil
}

// UnregisterToken removes a device token for a user. Unregistering a token
// that was never registered is not an error.
func (r *Registry) UnregisterToken(ctx context.Context, userID, token string) error {
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return &notify.ValidationError{Fields: missing}
	}

	if err := r.store.Delete(ctx, userID, token); err != nil {
		return fmt.Errorf("token delete failed: %w", err)
	}
	r.logger.Debug("Token unregistered", "user_id", userID)
	return nil
}
