package retell

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed call to the Retell API.
type ErrorKind int

const (
	// KindUnknown is the zero value and never produced by the client.
	KindUnknown ErrorKind = iota
	// KindConnection means the API could not be reached (dial, TLS, timeout, cancellation, broken body).
	KindConnection
	// KindRateLimited means the API answered 429 Too Many Requests.
	KindRateLimited
	// KindAPIStatus means the API rejected a typed call (RegisterCall) with a 4xx status other than 429.
	KindAPIStatus
	// KindHTTPStatus means the API answered with any other non-2xx status. Every non-2xx
	// CreateWebCall response except 429 lands here.
	KindHTTPStatus
	// KindMalformed means the request could not be encoded or the 2xx response was not JSON.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindRateLimited:
		return "rate limited"
	case KindAPIStatus:
		return "api status error"
	case KindHTTPStatus:
		return "http status error"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *APIError of the same kind.
var (
	ErrConnection        = &APIError{Kind: KindConnection}
	ErrRateLimited       = &APIError{Kind: KindRateLimited}
	ErrAPIStatus         = &APIError{Kind: KindAPIStatus}
	ErrHTTPStatus        = &APIError{Kind: KindHTTPStatus}
	ErrMalformedResponse = &APIError{Kind: KindMalformed}
)

// APIError is returned by every Client operation that fails after the request was built.
type APIError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder

	b.WriteString("retell")

	if e.Operation != "" {
		b.WriteString(" " + e.Operation)
	}

	b.WriteString(": " + e.Kind.String())

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}

	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying transport or decoding error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *APIError of the same kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)

	return ok && t.Kind == e.Kind
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// newStatusError classifies a non-2xx response. 429 is rate limited for every operation.
// Only the typed RegisterCall operation reports other 4xx as KindAPIStatus; the raw
// CreateWebCall pass-through treats every other non-2xx as KindHTTPStatus.
func newStatusError(operation string, statusCode int, body []byte) *APIError {
	kind := KindHTTPStatus

	switch {
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case operation == OperationRegisterCall && statusCode >= 400 && statusCode < 500:
		kind = KindAPIStatus
	}

	return &APIError{
		Kind:       kind,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
	}
}
