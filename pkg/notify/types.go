// Package notify contains the public domain models, error taxonomy and
// service ports for the push dispatch service.
package notify

// DefaultDeviceInfo is recorded when a registration omits a device descriptor.
const DefaultDeviceInfo = "unknown device"

// Platform identifies which provider adapter a device token belongs to.
type Platform string

const (
	PlatformFCM     Platform = "fcm"
	PlatformAPNS    Platform = "apns"
	PlatformWebPush Platform = "webpush"
)

// TokenRecord is a single registered delivery address for a user's device.
// The token is an opaque provider credential and is never parsed by the core.
// Timestamps are epoch milliseconds; CreatedAt is set once at first insert
// and preserved across upserts, UpdatedAt is refreshed on every upsert.
type TokenRecord struct {
	Token      string   `json:"token"`
	DeviceInfo string   `json:"deviceInfo"`
	Platform   Platform `json:"platform"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
}

// Priority mirrors the provider-side delivery priority knob.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// NotificationPayload is the immutable content of one dispatch call. The
// engine never mutates it across recipients; Data is forwarded verbatim.
type NotificationPayload struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Image       string            `json:"image,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	ClickAction string            `json:"clickAction,omitempty"`
	Priority    Priority          `json:"priority,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Badge       int               `json:"badge,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// DispatchRequest targets one payload at an ordered list of users.
// Duplicate userIds are permitted and removed (first occurrence wins)
// before any delivery is attempted.
type DispatchRequest struct {
	UserIDs []string            `json:"userIds"`
	Payload NotificationPayload `json:"payload"`
}

// DispatchResult is the terminal outcome for a single recipient.
// Token is populated on success for traceability; Error on failure.
type DispatchResult struct {
	UserID  string `json:"userId"`
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DispatchResponse is the fully-accounted outcome of one dispatch call.
// Results holds exactly one entry per deduplicated input userId, in input
// order, and TotalSent+TotalFailed always equals len(Results).
type DispatchResponse struct {
	Success     bool             `json:"success"`
	Results     []DispatchResult `json:"results"`
	TotalSent   int              `json:"totalSent"`
	TotalFailed int              `json:"totalFailed"`
}

// Receipt carries provider call metadata back from a successful delivery.
type Receipt struct {
	MessageID string `json:"messageId,omitempty"`
}
