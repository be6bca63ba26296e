package service

import (
	"fmt"
	"time"

	"github.com/formbricks/callhub/pkg/retell"
)

// SignatureVerifier checks webhook signatures against the configured API key.
type SignatureVerifier struct {
	apiKey string
	now    func() time.Time
}

// NewSignatureVerifier creates a verifier bound to apiKey and the wall clock.
func NewSignatureVerifier(apiKey string) *SignatureVerifier {
	return &SignatureVerifier{
		apiKey: apiKey,
		now:    time.Now,
	}
}

// Verify reports whether signature authenticates body.
// A malformed body or missing key is an error; ok is true only when err is nil.
func (v *SignatureVerifier) Verify(body []byte, signature string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("signature verification panicked: %v", r)
		}
	}()

	ok, err = retell.Verify(body, v.apiKey, signature, v.now())
	if err != nil {
		return false, fmt.Errorf("verify signature: %w", err)
	}

	return ok, nil
}
