package retell

import "encoding/json"

// Fixed audio settings for calls registered on behalf of a web frontend
const (
	AudioWebsocketProtocolWeb = "web"
	AudioEncodingS16LE        = "s16le"
)

// Webhook event types sent by Retell
const (
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// RegisterCallParams is the request body for POST /register-call
type RegisterCallParams struct {
	AgentID                string `json:"agent_id"`
	AudioWebsocketProtocol string `json:"audio_websocket_protocol"`
	AudioEncoding          string `json:"audio_encoding"`
	SampleRate             int    `json:"sample_rate"` // Must be 8000 for Twilio
}

// CallResponse represents a call object returned by the Retell API
type CallResponse struct {
	CallID                 string          `json:"call_id"`
	AgentID                string          `json:"agent_id"`
	AudioWebsocketProtocol string          `json:"audio_websocket_protocol"`
	AudioEncoding          string          `json:"audio_encoding"`
	SampleRate             int             `json:"sample_rate"`
	CallStatus             string          `json:"call_status"`
	StartTimestamp         int64           `json:"start_timestamp,omitempty"`
	EndTimestamp           int64           `json:"end_timestamp,omitempty"`
	Metadata               json.RawMessage `json:"metadata,omitempty"`
}

// CreateWebCallParams is the request body for POST /v2/create-web-call.
// Optional fields are raw JSON so they are forwarded untouched; a nil value is
// omitted from the outbound payload entirely.
type CreateWebCallParams struct {
	AgentID                   string          `json:"agent_id"`
	Metadata                  json.RawMessage `json:"metadata,omitempty"`
	RetellLLMDynamicVariables json.RawMessage `json:"retell_llm_dynamic_variables,omitempty"`
}
