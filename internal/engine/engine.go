// Package engine implements the dispatch fan-out: it resolves recipients to
// their registered device tokens, attempts delivery concurrently through the
// configured providers, and aggregates per-recipient outcomes into a single
// deterministic response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// ErrNoTokenRegistered is the per-recipient cause recorded when a user has no
// device records. It is data in the response, never an engine-level error.
const ErrNoTokenRegistered = "no token registered"

const defaultMaxInFlight = 32

// Engine owns no mutable state across calls; each Dispatch invocation has its
// own accumulator, so a single Engine serves many concurrent callers.
type Engine struct {
	store       notify.TokenStore
	providers   map[notify.Platform]notify.ProviderClient
	maxInFlight int
	logger      *slog.Logger
}

func New(store notify.TokenStore, providers map[notify.Platform]notify.ProviderClient, maxInFlight int, logger *slog.Logger) *Engine {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Engine{
		store:       store,
		providers:   providers,
		maxInFlight: maxInFlight,
		logger:      logger.With("component", "DispatchEngine"),
	}
}

// Dispatch fans one payload out to every resolved device of every recipient.
// Recipient-level failures are data in the response; the returned error is
// non-nil only for request-level problems (malformed payload, or the token
// store unreachable for every lookup).
//
// Results are reassembled in deduplicated-input order regardless of which
// attempt completes first, and TotalSent+TotalFailed == len(Results) always
// holds on a nil-error return.
func (e *Engine) Dispatch(ctx context.Context, req notify.DispatchRequest) (notify.DispatchResponse, error) {
	var missing []string
	if req.Payload.Title == "" {
		missing = append(missing, "payload.title")
	}
	if req.Payload.Body == "" {
		missing = append(missing, "payload.body")
	}
	if len(missing) > 0 {
		return notify.DispatchResponse{}, &notify.ValidationError{Fields: missing}
	}

	recipients := dedupe(req.UserIDs)
	if len(recipients) == 0 {
		return notify.DispatchResponse{Success: true, Results: []notify.DispatchResult{}}, nil
	}

	dispatchLogger := e.logger.With("dispatch_id", uuid.NewString(), "recipients", len(recipients))

	// Each slot in results is owned by exactly one recipient, so attempt
	// tasks write their slot without further synchronisation.
	results := make([]notify.DispatchResult, len(recipients))

	type target struct {
		index   int
		records []notify.TokenRecord
	}
	targets := make([]target, 0, len(recipients))
	storageFailures := 0

	for i, userID := range recipients {
		records, err := e.store.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, notify.ErrStorageUnavailable) {
				storageFailures++
			}
			results[i] = notify.DispatchResult{UserID: userID, Error: fmt.Sprintf("token lookup failed: %v", err)}
			continue
		}
		if len(records) == 0 {
			results[i] = notify.DispatchResult{UserID: userID, Error: ErrNoTokenRegistered}
			continue
		}
		targets = append(targets, target{index: i, records: records})
	}

	if storageFailures == len(recipients) {
		return notify.DispatchResponse{}, fmt.Errorf("dispatch aborted, no recipient could be resolved: %w", notify.ErrStorageUnavailable)
	}

	g := new(errgroup.Group)
	g.SetLimit(e.maxInFlight)
	for _, tgt := range targets {
		g.Go(func() error {
			results[tgt.index] = e.attempt(ctx, recipients[tgt.index], tgt.records, req.Payload, dispatchLogger)
			return nil
		})
	}
	_ = g.Wait()

	resp := notify.DispatchResponse{Results: results}
	for _, res := range results {
		if res.Success {
			resp.TotalSent++
		} else {
			resp.TotalFailed++
		}
	}
	resp.Success = resp.TotalFailed == 0

	dispatchLogger.Info("Dispatch complete", "sent", resp.TotalSent, "failed", resp.TotalFailed)
	return resp, nil
}

// attempt delivers the payload to every device of one recipient and reduces
// the device outcomes to a single terminal result: success iff at least one
// device delivery succeeded. Any fault, including a panic from a provider
// adapter, is converted into a failure result here and never reaches sibling
// attempts.
func (e *Engine) attempt(ctx context.Context, userID string, records []notify.TokenRecord, payload notify.NotificationPayload, logger *slog.Logger) (result notify.DispatchResult) {
	result = notify.DispatchResult{UserID: userID}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Delivery attempt panicked", "user_id", userID, "panic", r)
			result = notify.DispatchResult{UserID: userID, Error: fmt.Sprintf("delivery attempt panicked: %v", r)}
		}
	}()

	// Attempts that have not started by the deadline are reported, not run.
	if err := ctx.Err(); err != nil {
		result.Error = cancelCause(err)
		return result
	}

	var firstErr string
	for _, rec := range records {
		client, ok := e.providers[rec.Platform]
		if !ok {
			if firstErr == "" {
				firstErr = fmt.Sprintf("no provider configured for platform %q", rec.Platform)
			}
			continue
		}

		receipt, err := client.Send(ctx, rec.Token, payload)
		if err != nil {
			var provErr *notify.ProviderError
			if errors.As(err, &provErr) && provErr.Kind == notify.InvalidToken {
				// The provider disowned this token; drop it so the next
				// dispatch does not retry a dead device. Best-effort.
				if delErr := e.store.Delete(ctx, userID, rec.Token); delErr != nil {
					logger.Warn("Failed to delete invalid token", "user_id", userID, "err", delErr)
				}
			}
			if firstErr == "" {
				if ctx.Err() != nil {
					firstErr = cancelCause(ctx.Err())
				} else {
					firstErr = err.Error()
				}
			}
			continue
		}

		if !result.Success {
			result.Success = true
			result.Token = rec.Token
		}
		logger.Debug("Delivered", "user_id", userID, "platform", rec.Platform, "message_id", receipt.MessageID)
	}

	if !result.Success {
		result.Error = firstErr
	}
	return result
}

// dedupe removes duplicate userIds preserving first-occurrence order. The
// returned slice is the authoritative attempted-recipient list.
func dedupe(userIDs []string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cancelCause(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	return "DeadlineExceeded"
}
