package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Dispatcher is the slice of the dispatch engine the handler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notify.DispatchRequest) (notify.DispatchResponse, error)
}

type DispatchAPI struct {
	Engine Dispatcher
	Logger *slog.Logger
}

func NewDispatchAPI(engine Dispatcher, logger *slog.Logger) *DispatchAPI {
	return &DispatchAPI{
		Engine: engine,
		Logger: logger,
	}
}

// Dispatch handles POST /api/v1/dispatch. Per-recipient failures are part of
// the 200 response body; only request-level problems produce an error status.
func (api *DispatchAPI) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req notify.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := api.Engine.Dispatch(r.Context(), req)
	if err != nil {
		var vErr *notify.ValidationError
		switch {
		case errors.As(err, &vErr):
			response.WriteJSONError(w, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, notify.ErrStorageUnavailable):
			api.Logger.Error("Dispatch failed, token store unavailable", "err", err)
			response.WriteJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		default:
			api.Logger.Error("Dispatch failed", "err", err)
			response.WriteJSONError(w, http.StatusInternalServerError, "dispatch failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
