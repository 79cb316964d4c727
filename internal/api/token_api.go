// Package api contains the HTTP handlers for token registration and dispatch.
// Handlers translate between wire shapes and the core's typed errors; the
// core itself never produces wire formats.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// TokenRegistrar is the slice of the registry the handlers need.
type TokenRegistrar interface {
	RegisterToken(ctx context.Context, userID, token, deviceInfo string, platform notify.Platform) (notify.TokenRecord, error)
	UnregisterToken(ctx context.Context, userID, token string) error
}

type TokenAPI struct {
	Registry TokenRegistrar
	Logger   *slog.Logger
}

func NewTokenAPI(registry TokenRegistrar, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Registry: registry,
		Logger:   logger,
	}
}

type RegisterTokenRequest struct {
	Token      string `json:"token"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

type UnregisterTokenRequest struct {
	Token string `json:"token"`
}

// RegisterToken handles POST /api/v1/tokens. The userId comes from the
// authenticated principal, never from the request body.
func (api *TokenAPI) RegisterToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userURN, err := urn.Parse(userID)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return
	}

	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	record, err := api.Registry.RegisterToken(ctx, userURN.String(), req.Token, req.DeviceInfo, notify.Platform(req.Platform))
	if err != nil {
		api.writeRegistryError(w, "register", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(record)
}

// UnregisterToken handles POST /api/v1/tokens/unregister.
func (api *TokenAPI) UnregisterToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userURN, err := urn.Parse(userID)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return
	}

	var req UnregisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := api.Registry.UnregisterToken(ctx, userURN.String(), req.Token); err != nil {
		api.writeRegistryError(w, "unregister", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *TokenAPI) writeRegistryError(w http.ResponseWriter, op string, err error) {
	var vErr *notify.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.WriteJSONError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, notify.ErrStorageUnavailable):
		api.Logger.Error("Token store unavailable", "op", op, "err", err)
		response.WriteJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		api.Logger.Error("Token registry failed", "op", op, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
	}
}
