package retell

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestClient_CreateWebCall(t *testing.T) {
	t.Run("sends authenticated request and returns body verbatim", func(t *testing.T) {
		upstreamBody := `{"call_id":"w1","access_token":"tok","agent_id":"a1"}`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/create-web-call", r.URL.Path)
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(upstreamBody))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-api-key")

		body, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})

		require.NoError(t, err)
		assert.JSONEq(t, upstreamBody, string(body))
	})

	t.Run("omits absent optional fields", func(t *testing.T) {
		var received map[string]json.RawMessage

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.NoError(t, json.Unmarshal(raw, &received))

			_, _ = w.Write([]byte(`{"call_id":"w1"}`))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-api-key")

		_, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})
		require.NoError(t, err)

		assert.Len(t, received, 1)
		assert.JSONEq(t, `"a1"`, string(received["agent_id"]))
		assert.NotContains(t, received, "metadata")
		assert.NotContains(t, received, "retell_llm_dynamic_variables")
	})

	t.Run("forwards optional fields untouched", func(t *testing.T) {
		var received map[string]json.RawMessage

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"call_id":"w1"}`))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-api-key")

		_, err := client.CreateWebCall(context.Background(), CreateWebCallParams{
			AgentID:                   "a1",
			Metadata:                  json.RawMessage(`{"user":"u1"}`),
			RetellLLMDynamicVariables: json.RawMessage(`{"name":"Ada"}`),
		})
		require.NoError(t, err)

		assert.JSONEq(t, `{"user":"u1"}`, string(received["metadata"]))
		assert.JSONEq(t, `{"name":"Ada"}`, string(received["retell_llm_dynamic_variables"]))
	})
}

func TestClient_CreateWebCall_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   ErrorKind
		wantTarget error
	}{
		{"429 is rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, KindRateLimited, ErrRateLimited},
		{"400 is http status", http.StatusBadRequest, `{"message":"bad agent"}`, KindHTTPStatus, ErrHTTPStatus},
		{"401 is http status", http.StatusUnauthorized, `{"message":"bad key"}`, KindHTTPStatus, ErrHTTPStatus},
		{"404 is http status", http.StatusNotFound, `{"message":"missing"}`, KindHTTPStatus, ErrHTTPStatus},
		{"422 is http status", http.StatusUnprocessableEntity, `{"message":"invalid"}`, KindHTTPStatus, ErrHTTPStatus},
		{"500 is http status", http.StatusInternalServerError, `{"message":"boom"}`, KindHTTPStatus, ErrHTTPStatus},
		{"503 is http status", http.StatusServiceUnavailable, `unavailable`, KindHTTPStatus, ErrHTTPStatus},
		{"2xx with non-JSON body is malformed", http.StatusOK, `not json`, KindMalformed, ErrMalformedResponse},
		{"204 with empty body is malformed", http.StatusNoContent, ``, KindMalformed, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClientWithBaseURL(server.URL, "test-api-key")

			body, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})

			require.Error(t, err)
			assert.Nil(t, body)
			assert.ErrorIs(t, err, tt.wantTarget)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, OperationCreateWebCall, apiErr.Operation)

			if tt.wantKind != KindMalformed {
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Equal(t, tt.body, string(apiErr.Body))
			}
		})
	}
}

func TestClient_RegisterCall_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{"429 is rate limited", http.StatusTooManyRequests, KindRateLimited},
		{"400 is api status", http.StatusBadRequest, KindAPIStatus},
		{"422 is api status", http.StatusUnprocessableEntity, KindAPIStatus},
		{"502 is http status", http.StatusBadGateway, KindHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClientWithBaseURL(server.URL, "test-api-key")

			call, err := client.RegisterCall(context.Background(), RegisterCallParams{AgentID: "a1", SampleRate: 8000})

			require.Error(t, err)
			assert.Nil(t, call)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, OperationRegisterCall, apiErr.Operation)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClientWithBaseURL(url, "test-api-key")

	_, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrHTTPStatus)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClientWithOptions(ClientOptions{
		BaseURL: server.URL,
		APIKey:  "test-api-key",
		Timeout: 50 * time.Millisecond,
	})

	_, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClient_DoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-api-key")

	_, err := client.CreateWebCall(context.Background(), CreateWebCallParams{AgentID: "a1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RecordsClientSpan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"call_id":"w1"}`))
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	defer func() { _ = tp.Shutdown(context.Background()) }()

	client := NewClientWithOptions(ClientOptions{
		BaseURL:        server.URL,
		APIKey:         "test-api-key",
		TracerProvider: tp,
	})

	ctx, parent := tp.Tracer("test").Start(context.Background(), "create-web-call")
	_, err := client.CreateWebCall(ctx, CreateWebCallParams{AgentID: "a1"})
	parent.End()

	require.NoError(t, err)

	var clientSpans []sdktrace.ReadOnlySpan

	for _, span := range recorder.Ended() {
		if span.SpanKind() == trace.SpanKindClient {
			clientSpans = append(clientSpans, span)
		}
	}

	require.Len(t, clientSpans, 1)
	assert.Equal(t, parent.SpanContext().TraceID(), clientSpans[0].SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), clientSpans[0].Parent().SpanID())
}

func TestClient_RegisterCall(t *testing.T) {
	t.Run("sends fixed audio settings and decodes call", func(t *testing.T) {
		var received RegisterCallParams

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/register-call", r.URL.Path)
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"call_id":"c1","agent_id":"a1","audio_websocket_protocol":"web",` +
				`"audio_encoding":"s16le","sample_rate":8000,"call_status":"registered"}`))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-api-key")

		call, err := client.RegisterCall(context.Background(), RegisterCallParams{
			AgentID:                "a1",
			AudioWebsocketProtocol: AudioWebsocketProtocolWeb,
			AudioEncoding:          AudioEncodingS16LE,
			SampleRate:             8000,
		})

		require.NoError(t, err)
		require.NotNil(t, call)
		assert.Equal(t, "c1", call.CallID)
		assert.Equal(t, "registered", call.CallStatus)
		assert.Equal(t, 8000, call.SampleRate)

		assert.Equal(t, "a1", received.AgentID)
		assert.Equal(t, "web", received.AudioWebsocketProtocol)
		assert.Equal(t, "s16le", received.AudioEncoding)
		assert.Equal(t, 8000, received.SampleRate)
	})

	t.Run("unexpected JSON shape is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`["not","a","call"]`))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-api-key")

		call, err := client.RegisterCall(context.Background(), RegisterCallParams{AgentID: "a1", SampleRate: 8000})

		assert.Nil(t, call)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestNewClientWithOptions_NormalizesBaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", DefaultBaseURL},
		{"trailing slash removed", "https://api.example.com/", "https://api.example.com"},
		{"v2 suffix removed", "https://api.example.com/v2", "https://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClientWithOptions(ClientOptions{BaseURL: tt.in})
			assert.Equal(t, tt.want, client.baseURL)
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		Kind:       KindHTTPStatus,
		Operation:  OperationCreateWebCall,
		StatusCode: http.StatusBadGateway,
		Err:        errors.New("upstream hiccup"),
	}

	assert.Equal(t, "retell create_web_call: http status error (status 502): upstream hiccup", err.Error())
	assert.Equal(t, "retell: connection error", ErrConnection.Error())
}
