package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/formbricks/callhub/internal/huberrors"
	"github.com/formbricks/callhub/internal/models"
	"github.com/formbricks/callhub/internal/observability"
)

// Verifier authenticates a raw webhook body.
type Verifier interface {
	Verify(body []byte, signature string) (bool, error)
}

// Dispatcher handles a verified webhook event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.WebhookEvent)
}

// WebhookRejectionMetrics records webhooks rejected before dispatch. Pass nil when metrics are disabled.
type WebhookRejectionMetrics interface {
	RecordWebhookRejected(ctx context.Context, reason string)
}

// WebhookService verifies incoming provider notifications and dispatches the authentic ones.
type WebhookService struct {
	verifier   Verifier
	dispatcher Dispatcher
	metrics    WebhookRejectionMetrics
}

// NewWebhookService creates a webhook service; metrics may be nil.
func NewWebhookService(verifier Verifier, dispatcher Dispatcher, metrics WebhookRejectionMetrics) *WebhookService {
	return &WebhookService{
		verifier:   verifier,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Receive verifies body against signature and dispatches the event.
// Returns *huberrors.UnauthorizedError when the signature does not verify, and a
// wrapped error when verification itself fails. Nothing is dispatched in either case.
func (s *WebhookService) Receive(ctx context.Context, body []byte, signature string) (models.WebhookEvent, error) {
	event := models.ParseWebhookEvent(body)
	ctx = observability.WithCallID(ctx, event.CallID)

	ok, err := s.verifier.Verify(body, signature)
	if err != nil {
		s.recordRejected(ctx, observability.ReasonVerificationError)

		return event, fmt.Errorf("webhook verification: %w", err)
	}

	if !ok {
		s.recordRejected(ctx, observability.ReasonInvalidSignature)
		slog.WarnContext(ctx, "Received Unauthorized", "event", event.Event, "call_id", event.CallID)

		return event, huberrors.NewUnauthorizedError(event.Event, event.CallID)
	}

	s.dispatcher.Dispatch(ctx, event)

	return event, nil
}

func (s *WebhookService) recordRejected(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookRejected(ctx, reason)
	}
}
