package retell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the production Retell API.
	DefaultBaseURL = "https://api.retellai.com"

	defaultTimeout       = 30 * time.Second
	maxResponseBodyBytes = 10 << 20
)

// Operation names, used in errors, logs and metrics
const (
	OperationRegisterCall  = "register_call"
	OperationCreateWebCall = "create_web_call"
)

// ClientOptions configures the Retell API client
type ClientOptions struct {
	// BaseURL is the base URL for the Retell API (default: "https://api.retellai.com")
	BaseURL string
	// APIKey is the Retell API key, sent as a bearer token
	APIKey string
	// RetryMax is the maximum number of retries (default: 0, no retries)
	RetryMax int
	// Timeout is the HTTP client timeout (default: 30 seconds)
	Timeout time.Duration
	// TracerProvider records a client span per upstream request (default: the global provider)
	TracerProvider trace.TracerProvider
}

// Client is the Retell API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient creates a new Retell API client with default settings
func NewClient(apiKey string) *Client {
	return NewClientWithOptions(ClientOptions{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
	})
}

// NewClientWithBaseURL creates a new Retell API client with a custom base URL
func NewClientWithBaseURL(baseURL, apiKey string) *Client {
	return NewClientWithOptions(ClientOptions{
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
}

// NewClientWithOptions creates a new Retell API client with custom options
func NewClientWithOptions(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/v2")

	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.HTTPClient.Transport = newTransport(retryClient.HTTPClient.Transport, opts.TracerProvider)
	retryClient.Logger = nil
	// Hand the final response back as-is so 429 and 5xx reach classification
	// instead of being turned into a generic "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

// newTransport wraps base so each upstream attempt becomes a client span and
// carries the caller's trace context.
func newTransport(base http.RoundTripper, tp trace.TracerProvider) http.RoundTripper {
	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}

	return otelhttp.NewTransport(base, opts...)
}

// RegisterCall registers a call so a web frontend can connect its audio websocket
// without holding the API key.
func (c *Client) RegisterCall(ctx context.Context, params RegisterCallParams) (*CallResponse, error) {
	body, err := c.post(ctx, OperationRegisterCall, "/register-call", params)
	if err != nil {
		return nil, err
	}

	var call CallResponse
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, &APIError{
			Kind:      KindMalformed,
			Operation: OperationRegisterCall,
			Body:      body,
			Err:       fmt.Errorf("failed to unmarshal call: %w", err),
		}
	}

	return &call, nil
}

// CreateWebCall creates a web call and returns the upstream JSON body untouched.
func (c *Client) CreateWebCall(ctx context.Context, params CreateWebCallParams) (json.RawMessage, error) {
	body, err := c.post(ctx, OperationCreateWebCall, "/v2/create-web-call", params)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}

// post sends an authenticated JSON POST and returns the 2xx body.
// Every failure after the request is built is an *APIError.
func (c *Client) post(ctx context.Context, operation, path string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{
			Kind:      KindMalformed,
			Operation: operation,
			Err:       fmt.Errorf("failed to marshal request: %w", err),
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payloadJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}

		return nil, &APIError{
			Kind:      KindConnection,
			Operation: operation,
			Err:       err,
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "operation", operation, "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, &APIError{
			Kind:       KindConnection,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(operation, resp.StatusCode, body)
	}

	if int64(len(body)) > maxResponseBodyBytes {
		return nil, &APIError{
			Kind:       KindMalformed,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response body exceeds %d bytes", maxResponseBodyBytes),
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, &APIError{
			Kind:       KindMalformed,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        errors.New("response is not valid JSON"),
		}
	}

	return body, nil
}
