package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/formbricks/callhub/internal/api/response"
	"github.com/formbricks/callhub/internal/huberrors"
	"github.com/formbricks/callhub/internal/models"
	"github.com/formbricks/callhub/pkg/retell"
)

// fallbackSignatureHeader is accepted when the provider header is absent.
const fallbackSignatureHeader = "X-Signature"

// WebhookReceiver verifies and dispatches a raw provider notification.
type WebhookReceiver interface {
	Receive(ctx context.Context, body []byte, signature string) (models.WebhookEvent, error)
}

// WebhookHandler handles call lifecycle notifications from Retell
type WebhookHandler struct {
	service WebhookReceiver
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service WebhookReceiver) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Handle processes incoming webhook requests
// Route: POST /webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read webhook request body", "error", err)
		response.RespondInternalServerError(w)

		return
	}

	_, err = h.service.Receive(r.Context(), body, signatureFromRequest(r))
	if err != nil {
		if errors.Is(err, huberrors.ErrUnauthorized) {
			response.RespondUnauthorized(w)

			return
		}

		slog.ErrorContext(r.Context(), "Error in webhook", "error", err)
		response.RespondInternalServerError(w)

		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// signatureFromRequest reads the signature header; a missing header yields "", which never verifies.
func signatureFromRequest(r *http.Request) string {
	if signature := r.Header.Get(retell.SignatureHeader); signature != "" {
		return signature
	}

	return r.Header.Get(fallbackSignatureHeader)
}
