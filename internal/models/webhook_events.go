package models

import (
	"github.com/tidwall/gjson"

	"github.com/formbricks/callhub/internal/datatypes"
)

// WebhookEvent is the part of a provider notification the service acts on.
// It is read from the raw body without re-encoding it, so the bytes that were
// signed stay untouched.
type WebhookEvent struct {
	// Event is the tag exactly as received ("call_started", or anything else)
	Event  string
	Type   datatypes.EventType
	CallID string
}

// ParseWebhookEvent extracts the event tag and call id from a notification body.
// Missing fields come back empty; it never fails.
func ParseWebhookEvent(body []byte) WebhookEvent {
	results := gjson.GetManyBytes(body, "event", "data.call_id")

	event := results[0].String()
	eventType, _ := datatypes.ParseEventType(event)

	return WebhookEvent{
		Event:  event,
		Type:   eventType,
		CallID: results[1].String(),
	}
}
