package retell

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// SignatureHeader is the header Retell puts the webhook signature in.
const SignatureHeader = "X-Retell-Signature"

// SignatureTolerance is how far the signed timestamp may drift from the verifier's clock.
const SignatureTolerance = 5 * time.Minute

var (
	// ErrInvalidPayload is returned when a webhook body is not valid JSON.
	ErrInvalidPayload = errors.New("retell: webhook payload is not valid JSON")
	// ErrMissingAPIKey is returned when signing or verifying without a key.
	ErrMissingAPIKey = errors.New("retell: api key is required")
)

// v=<unix millis>,d=<hex hmac-sha256>
var signaturePattern = regexp.MustCompile(`^v=(\d+),d=(.*)$`)

// Canonicalize returns the compact form of a JSON body: insignificant whitespace
// removed, field order and string escapes kept exactly as received. This is the
// input Retell signs.
func Canonicalize(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidPayload
	}

	return pretty.Ugly(body), nil
}

// Sign produces a signature header value for body at the given time.
func Sign(body []byte, apiKey string, at time.Time) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	canonical, err := Canonicalize(body)
	if err != nil {
		return "", err
	}

	timestamp := at.UnixMilli()

	return fmt.Sprintf("v=%d,d=%s", timestamp, digest(canonical, apiKey, timestamp)), nil
}

// Verify reports whether signature was produced by Retell for body with apiKey.
//
// A malformed header, a stale timestamp or a digest mismatch yield (false, nil).
// An error is returned only when verification could not be attempted: the body is
// not JSON or no key is configured. The result is never true alongside an error.
func Verify(body []byte, apiKey, signature string, now time.Time) (bool, error) {
	if apiKey == "" {
		return false, ErrMissingAPIKey
	}

	canonical, err := Canonicalize(body)
	if err != nil {
		return false, err
	}

	match := signaturePattern.FindStringSubmatch(strings.TrimSpace(signature))
	if match == nil {
		return false, nil
	}

	timestamp, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return false, nil
	}

	drift := now.UnixMilli() - timestamp
	if drift < 0 {
		drift = -drift
	}

	if drift > SignatureTolerance.Milliseconds() {
		return false, nil
	}

	expected := digest(canonical, apiKey, timestamp)

	return subtle.ConstantTimeCompare([]byte(expected), []byte(match[2])) == 1, nil
}

func digest(canonical []byte, apiKey string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	_, _ = mac.Write(canonical)
	_, _ = mac.Write([]byte(strconv.FormatInt(timestamp, 10)))

	return hex.EncodeToString(mac.Sum(nil))
}
