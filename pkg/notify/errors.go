package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStorageUnavailable indicates the token store's backing medium could not
// be reached. Store implementations wrap it so callers can fail closed.
var ErrStorageUnavailable = errors.New("token store unavailable")

// ValidationError reports malformed registration or dispatch input, naming
// the offending fields. It is surfaced to the caller immediately, never retried.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: missing or malformed field(s): %s", strings.Join(e.Fields, ", "))
}

// ProviderErrorKind partitions provider failures by what a higher layer may
// do about them.
type ProviderErrorKind string

const (
	// InvalidToken means the provider no longer recognises the device token.
	// The token is a candidate for registry cleanup.
	InvalidToken ProviderErrorKind = "invalid_token"
	// TransientFailure is a network or provider-side fault a higher layer may retry.
	TransientFailure ProviderErrorKind = "transient_failure"
	// PayloadRejected means the provider refused the payload itself.
	PayloadRejected ProviderErrorKind = "payload_rejected"
)

// ProviderError is the typed failure returned by ProviderClient adapters.
// It never propagates past an attempt boundary; the engine converts it into
// the recipient's DispatchResult.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps a raw provider fault with its classification.
func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}
