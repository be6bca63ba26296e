package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/formbricks/callhub/internal/models"
	"github.com/formbricks/callhub/pkg/retell"
)

// RetellClient is the subset of the Retell API the service calls.
type RetellClient interface {
	RegisterCall(ctx context.Context, params retell.RegisterCallParams) (*retell.CallResponse, error)
	CreateWebCall(ctx context.Context, params retell.CreateWebCallParams) (json.RawMessage, error)
}

// UpstreamMetrics records calls to the Retell API. Pass nil when metrics are disabled.
type UpstreamMetrics interface {
	RecordUpstreamRequest(ctx context.Context, operation, outcome string, duration time.Duration)
}

// CallsService proxies call registration and web call creation to Retell.
type CallsService struct {
	client         RetellClient
	defaultAgentID string
	metrics        UpstreamMetrics
}

// NewCallsService creates a calls service. defaultAgentID fills requests that omit agent_id; metrics may be nil.
func NewCallsService(client RetellClient, defaultAgentID string, metrics UpstreamMetrics) *CallsService {
	return &CallsService{
		client:         client,
		defaultAgentID: defaultAgentID,
		metrics:        metrics,
	}
}

// ApplyRegisterCallDefaults fills agent_id when the request omits it.
func (s *CallsService) ApplyRegisterCallDefaults(req *models.RegisterCallRequest) {
	if req.AgentID == "" {
		req.AgentID = s.defaultAgentID
	}
}

// ApplyCreateWebCallDefaults fills agent_id when the request omits it.
func (s *CallsService) ApplyCreateWebCallDefaults(req *models.CreateWebCallRequest) {
	if req.AgentID == "" {
		req.AgentID = s.defaultAgentID
	}
}

// RegisterCall registers a web-protocol call with fixed audio settings.
func (s *CallsService) RegisterCall(ctx context.Context, req *models.RegisterCallRequest) (*retell.CallResponse, error) {
	start := time.Now()

	call, err := s.client.RegisterCall(ctx, retell.RegisterCallParams{
		AgentID:                req.AgentID,
		AudioWebsocketProtocol: retell.AudioWebsocketProtocolWeb,
		AudioEncoding:          retell.AudioEncodingS16LE,
		SampleRate:             req.SampleRate,
	})
	s.recordUpstream(ctx, retell.OperationRegisterCall, err, time.Since(start))

	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Call registered",
		"call_id", call.CallID,
		"agent_id", call.AgentID,
		"call_status", call.CallStatus,
	)

	return call, nil
}

// CreateWebCall creates a web call and returns the upstream body unchanged.
// Optional fields are forwarded only when they hold a truthy JSON value.
func (s *CallsService) CreateWebCall(ctx context.Context, req *models.CreateWebCallRequest) (json.RawMessage, error) {
	params := retell.CreateWebCallParams{AgentID: req.AgentID}

	if isTruthy(req.Metadata) {
		params.Metadata = req.Metadata
	}

	if isTruthy(req.RetellLLMDynamicVariables) {
		params.RetellLLMDynamicVariables = req.RetellLLMDynamicVariables
	}

	start := time.Now()
	body, err := s.client.CreateWebCall(ctx, params)
	s.recordUpstream(ctx, retell.OperationCreateWebCall, err, time.Since(start))

	if err != nil {
		return nil, err
	}

	return body, nil
}

func (s *CallsService) recordUpstream(ctx context.Context, operation string, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordUpstreamRequest(ctx, operation, upstreamOutcome(err), duration)
}

// upstreamOutcome maps a client result to a bounded metric label.
func upstreamOutcome(err error) string {
	if err == nil {
		return "success"
	}

	apiErr, ok := retell.AsAPIError(err)
	if !ok {
		return "other"
	}

	switch apiErr.Kind {
	case retell.KindConnection:
		return "connection_error"
	case retell.KindRateLimited:
		return "rate_limited"
	case retell.KindAPIStatus:
		return "api_status_error"
	case retell.KindHTTPStatus:
		return "http_status_error"
	case retell.KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// isTruthy reports whether raw holds a JSON value other than null, false, 0, "", {} or [].
func isTruthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	result := gjson.ParseBytes(raw)

	switch result.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return result.Num != 0
	case gjson.String:
		return result.Str != ""
	case gjson.JSON:
		nonEmpty := false
		result.ForEach(func(_, _ gjson.Result) bool {
			nonEmpty = true
			return false
		})

		return nonEmpty
	default:
		return false
	}
}
