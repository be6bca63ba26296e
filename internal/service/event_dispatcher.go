package service

import (
	"context"
	"log/slog"

	"github.com/formbricks/callhub/internal/datatypes"
	"github.com/formbricks/callhub/internal/models"
)

// Classification tags returned by Classify.
const (
	ClassStarted  = "started"
	ClassEnded    = "ended"
	ClassAnalyzed = "analyzed"
	ClassUnknown  = "unknown"
)

// EventMetrics records dispatched webhook events. Pass nil when metrics are disabled.
type EventMetrics interface {
	RecordWebhookEvent(ctx context.Context, eventType string)
}

// EventDispatcher routes verified webhook events by type. Handling is logging only.
type EventDispatcher struct {
	metrics EventMetrics
}

// NewEventDispatcher creates a dispatcher; metrics may be nil.
func NewEventDispatcher(metrics EventMetrics) *EventDispatcher {
	return &EventDispatcher{metrics: metrics}
}

// Classify maps an event to its outcome tag. Every tag outside the known set is "unknown".
func Classify(event models.WebhookEvent) string {
	switch event.Type {
	case datatypes.CallStarted:
		return ClassStarted
	case datatypes.CallEnded:
		return ClassEnded
	case datatypes.CallAnalyzed:
		return ClassAnalyzed
	default:
		return ClassUnknown
	}
}

// Dispatch handles a verified event. It never fails and never panics.
func (d *EventDispatcher) Dispatch(ctx context.Context, event models.WebhookEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Webhook dispatch panicked", "event", event.Event, "call_id", event.CallID, "panic", r)
		}
	}()

	switch Classify(event) {
	case ClassStarted:
		slog.InfoContext(ctx, "Call started event", "call_id", event.CallID)
	case ClassEnded:
		slog.InfoContext(ctx, "Call ended event", "call_id", event.CallID)
	case ClassAnalyzed:
		slog.InfoContext(ctx, "Call analyzed event", "call_id", event.CallID)
	default:
		slog.InfoContext(ctx, "Unknown event", "event", event.Event, "call_id", event.CallID)
	}

	if d.metrics != nil {
		d.metrics.RecordWebhookEvent(ctx, event.Type.String())
	}
}
