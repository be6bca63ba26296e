package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in     string
		want   EventType
		wantOK bool
	}{
		{"call_started", CallStarted, true},
		{"call_ended", CallEnded, true},
		{"call_analyzed", CallAnalyzed, true},
		{"call_transferred", EventTypeUnknown, false},
		{"CALL_STARTED", EventTypeUnknown, false},
		{"", EventTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEventType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestEventType_StringRoundTrip(t *testing.T) {
	for _, s := range []string{"call_started", "call_ended", "call_analyzed"} {
		et, ok := ParseEventType(s)
		assert.True(t, ok)
		assert.Equal(t, s, et.String())
		assert.True(t, IsValidEventType(s))
	}

	assert.False(t, IsValidEventType("call_transferred"))
	assert.Equal(t, "unknown", EventTypeUnknown.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
