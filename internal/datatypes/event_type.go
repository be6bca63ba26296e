// Package datatypes defines shared types for call lifecycle events.
package datatypes

import "github.com/formbricks/callhub/pkg/retell"

// EventType represents a webhook event type as an enum.
// Any tag the provider sends that is not listed here parses to EventTypeUnknown.
type EventType uint8

// Event type constants; string form is given in eventTypeMap.
const (
	EventTypeUnknown EventType = iota
	CallStarted
	CallEnded
	CallAnalyzed
)

// eventTypeMap maps wire tags to EventType enums.
var eventTypeMap = map[string]EventType{
	retell.EventCallStarted:  CallStarted,
	retell.EventCallEnded:    CallEnded,
	retell.EventCallAnalyzed: CallAnalyzed,
}

// String returns the wire tag of an EventType, or "unknown".
func (et EventType) String() string {
	switch et {
	case CallStarted:
		return retell.EventCallStarted
	case CallEnded:
		return retell.EventCallEnded
	case CallAnalyzed:
		return retell.EventCallAnalyzed
	default:
		return "unknown"
	}
}

// ParseEventType converts a wire tag to an EventType enum.
// Returns EventTypeUnknown and false for tags outside the known set.
func ParseEventType(s string) (EventType, bool) {
	et, ok := eventTypeMap[s]

	return et, ok
}

// IsValidEventType checks if an event type tag is known.
func IsValidEventType(eventType string) bool {
	_, ok := eventTypeMap[eventType]

	return ok
}
