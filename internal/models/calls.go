package models

import "encoding/json"

// RegisterCallRequest is the body of POST /register-call-on-your-server
type RegisterCallRequest struct {
	AgentID    string `json:"agent_id" validate:"required,no_null_bytes,max=255"`
	SampleRate int    `json:"sample_rate" validate:"required,gt=0"` // 8000 for Twilio
}

// CreateWebCallRequest is the body of POST /create-web-call.
// Metadata and dynamic variables are opaque to the service and forwarded as-is.
type CreateWebCallRequest struct {
	AgentID                   string          `json:"agent_id" validate:"required,no_null_bytes,max=255"`
	Metadata                  json.RawMessage `json:"metadata,omitempty"`
	RetellLLMDynamicVariables json.RawMessage `json:"retell_llm_dynamic_variables,omitempty"`
}
