// Package observability provides structured-logging context and OpenTelemetry metrics for callhub.
package observability

import (
	"github.com/formbricks/callhub/internal/datatypes"
)

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount        = "http.server.request_count"
	MetricNameRequestDuration     = "http.server.duration"
	MetricNameRequestBodyTooLarge = "http.server.request_body_too_large_total"
	MetricNameWebhookEvents       = "callhub_webhook_events_total"
	MetricNameWebhookRejected     = "callhub_webhook_rejected_total"
	MetricNameUpstreamRequests    = "callhub_upstream_requests_total"
	MetricNameUpstreamDuration    = "callhub_upstream_duration_seconds"
)

// Attribute keys.
const (
	AttrEventType = "event_type"
	AttrReason    = "reason"
	AttrOperation = "operation"
	AttrOutcome   = "outcome"
)

// Webhook rejection reasons.
const (
	ReasonInvalidSignature  = "invalid_signature"
	ReasonVerificationError = "verification_error"
)

// AllowedRejectReasons for callhub_webhook_rejected_total.
var AllowedRejectReasons = map[string]bool{
	ReasonInvalidSignature:  true,
	ReasonVerificationError: true,
}

// AllowedOperations for callhub_upstream_* metrics.
var AllowedOperations = map[string]bool{
	"register_call":   true,
	"create_web_call": true,
}

// AllowedOutcomes for callhub_upstream_* metrics: "success" plus one value per upstream error kind.
var AllowedOutcomes = map[string]bool{
	"success":           true,
	"connection_error":  true,
	"rate_limited":      true,
	"api_status_error":  true,
	"http_status_error": true,
	"malformed":         true,
}

// NormalizeEventType returns eventType if it is a known call event, otherwise "unknown".
func NormalizeEventType(eventType string) string {
	if datatypes.IsValidEventType(eventType) {
		return eventType
	}

	return "unknown"
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
