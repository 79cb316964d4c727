package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Dispatcher is the slice of the dispatch engine the processor needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notify.DispatchRequest) (notify.DispatchResponse, error)
}

// NewProcessor runs each validated DispatchRequest through the engine.
// Recipient-level failures are already accounted for inside the response, so
// the processor only returns an error for systemic faults (store unreachable)
// where a redelivery might succeed.
func NewProcessor(engine Dispatcher, logger *slog.Logger) messagepipeline.StreamProcessor[notify.DispatchRequest] {
	return func(ctx context.Context, original messagepipeline.Message, req *notify.DispatchRequest) error {
		procLogger := logger.With(
			"pubsub_msg_id", original.ID,
			"target_users", len(req.UserIDs),
		)

		resp, err := engine.Dispatch(ctx, *req)
		if err != nil {
			var vErr *notify.ValidationError
			if errors.As(err, &vErr) {
				// Malformed content will never succeed; drop instead of retry.
				procLogger.Error("Dropping invalid dispatch request", "err", err)
				return nil
			}
			procLogger.Error("Dispatch failed", "err", err)
			return err // Retryable
		}

		procLogger.Info("Dispatch processed", "sent", resp.TotalSent, "failed", resp.TotalFailed)
		return nil
	}
}
