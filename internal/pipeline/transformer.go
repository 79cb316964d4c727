// Package pipeline contains the Pub/Sub-driven dispatch path: a transformer
// that validates raw messages into DispatchRequests and a processor that runs
// them through the dispatch engine.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// DispatchRequestTransformer unmarshals and validates a raw message payload
// into a structured DispatchRequest. Loosely-typed bodies are rejected here
// so the engine only ever sees already-validated input; a failed transform
// returns skip=true and lets the StreamingService handle Nack/DLQ routing.
func DispatchRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*notify.DispatchRequest, bool, error) {
	var req notify.DispatchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal dispatch request from message %s: %w", msg.ID, err)
	}

	if req.Payload.Title == "" || req.Payload.Body == "" {
		return nil, true, fmt.Errorf("dispatch request from message %s is missing payload title or body", msg.ID)
	}

	return &req, false, nil
}
