package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/formbricks/callhub/internal/api/response"
	"github.com/formbricks/callhub/internal/huberrors"
	"github.com/formbricks/callhub/internal/api/validation"
	"github.com/formbricks/callhub/internal/models"
	"github.com/formbricks/callhub/pkg/retell"
)

// Error bodies returned by POST /create-web-call
const (
	errRateLimitExceeded   = "Rate Limit Exceeded"
	errAPIStatus           = "API Status Error"
	errFailedToCreateCall  = "Failed to create web call"
	errAPIConnection       = "API Connection Error"
	errInternalServerError = "Internal Server Error"
)

// CallsService defines the interface for the call proxy operations.
type CallsService interface {
	ApplyRegisterCallDefaults(req *models.RegisterCallRequest)
	ApplyCreateWebCallDefaults(req *models.CreateWebCallRequest)
	RegisterCall(ctx context.Context, req *models.RegisterCallRequest) (*retell.CallResponse, error)
	CreateWebCall(ctx context.Context, req *models.CreateWebCallRequest) (json.RawMessage, error)
}

// CallsHandler handles call registration and web call creation
type CallsHandler struct {
	service CallsService
}

// NewCallsHandler creates a new calls handler
func NewCallsHandler(service CallsService) *CallsHandler {
	return &CallsHandler{service: service}
}

// RegisterCall handles POST /register-call-on-your-server
// Lets a web frontend register a call without holding the API key.
// Success is 200 with an empty body; every failure is 500.
func (h *CallsHandler) RegisterCall(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterCallRequest

	if err := validation.DecodeJSON(r, &req); err != nil {
		logInvalidRequest(r.Context(), "Error in register call", err)
		response.RespondInternalServerError(w)

		return
	}

	h.service.ApplyRegisterCallDefaults(&req)

	if err := validation.ValidateStruct(&req); err != nil {
		logInvalidRequest(r.Context(), "Error in register call", err)
		response.RespondInternalServerError(w)

		return
	}

	if _, err := h.service.RegisterCall(r.Context(), &req); err != nil {
		slog.ErrorContext(r.Context(), "Error in register call", "agent_id", req.AgentID, "error", err)
		response.RespondInternalServerError(w)

		return
	}

	response.RespondEmpty(w, http.StatusOK)
}

// CreateWebCall handles POST /create-web-call
// Success is 201 with the upstream body unchanged.
func (h *CallsHandler) CreateWebCall(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWebCallRequest

	if err := validation.DecodeJSON(r, &req); err != nil {
		logInvalidRequest(r.Context(), "Invalid create web call request", err)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errInternalServerError)

		return
	}

	h.service.ApplyCreateWebCallDefaults(&req)

	if err := validation.ValidateStruct(&req); err != nil {
		logInvalidRequest(r.Context(), "Invalid create web call request", err)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errInternalServerError)

		return
	}

	body, err := h.service.CreateWebCall(r.Context(), &req)
	if err != nil {
		respondCreateWebCallError(r.Context(), w, err)

		return
	}

	response.RespondRawJSON(w, http.StatusCreated, body)
}

// logInvalidRequest logs client input problems at warn with the offending field,
// and anything else (unreadable body, broken stream) at error.
func logInvalidRequest(ctx context.Context, msg string, err error) {
	var validationErr *huberrors.ValidationError
	if errors.Is(err, huberrors.ErrValidation) && errors.As(err, &validationErr) {
		slog.WarnContext(ctx, msg, "field", validationErr.Field, "error", err)

		return
	}

	slog.ErrorContext(ctx, msg, "error", err)
}

// respondCreateWebCallError maps an upstream failure to the service response.
// Upstream bodies are logged and never returned.
func respondCreateWebCallError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr, ok := retell.AsAPIError(err)
	if !ok {
		slog.ErrorContext(ctx, "Unexpected error creating web call", "error", err)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errInternalServerError)

		return
	}

	switch apiErr.Kind {
	case retell.KindRateLimited:
		slog.WarnContext(ctx, "Rate limit exceeded", "status_code", apiErr.StatusCode, "body", string(apiErr.Body))
		response.RespondErrorMessage(w, http.StatusTooManyRequests, errRateLimitExceeded)
	case retell.KindAPIStatus:
		slog.ErrorContext(ctx, "API status error", "status_code", apiErr.StatusCode, "body", string(apiErr.Body))
		response.RespondErrorMessage(w, apiErr.StatusCode, errAPIStatus)
	case retell.KindHTTPStatus:
		slog.ErrorContext(ctx, "Error creating web call", "status_code", apiErr.StatusCode, "body", string(apiErr.Body))
		response.RespondErrorMessage(w, http.StatusInternalServerError, errFailedToCreateCall)
	case retell.KindConnection:
		slog.ErrorContext(ctx, "API connection error", "error", apiErr)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errAPIConnection)
	case retell.KindMalformed, retell.KindUnknown:
		slog.ErrorContext(ctx, "Unexpected error creating web call", "error", apiErr)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errInternalServerError)
	default:
		slog.ErrorContext(ctx, "Unexpected error creating web call", "error", apiErr)
		response.RespondErrorMessage(w, http.StatusInternalServerError, errInternalServerError)
	}
}
