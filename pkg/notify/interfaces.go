package notify

import "context"

// TokenStore defines the contract for durable storage of device token records.
// Implementations perform no validation (that is the registry's job) and must
// make writes to a single user's record atomic.
type TokenStore interface {
	// Get returns every device record registered for a user. An unknown user
	// yields an empty slice, not an error.
	Get(ctx context.Context, userID string) ([]TokenRecord, error)

	// Put inserts or overwrites the record for (userID, record.Token).
	Put(ctx context.Context, userID string, record TokenRecord) error

	// Delete removes the record for (userID, token). Deleting an absent
	// record is a no-op.
	Delete(ctx context.Context, userID string, token string) error
}

// ProviderClient is the outbound delivery port to a push provider
// (e.g. Apple's APNS, Google's FCM). It is treated as a black box.
type ProviderClient interface {
	// Send delivers one payload to one device token. Failures are reported
	// as *ProviderError so callers can distinguish dead tokens from
	// transient faults and rejected payloads.
	Send(ctx context.Context, token string, payload NotificationPayload) (Receipt, error)
}
