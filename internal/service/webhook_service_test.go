package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/callhub/internal/huberrors"
	"github.com/formbricks/callhub/internal/models"
	"github.com/formbricks/callhub/internal/observability"
	"github.com/formbricks/callhub/pkg/retell"
)

type stubVerifier struct {
	ok  bool
	err error
}

func (v stubVerifier) Verify([]byte, string) (bool, error) {
	return v.ok, v.err
}

type capturingDispatcher struct {
	events []models.WebhookEvent
}

func (d *capturingDispatcher) Dispatch(_ context.Context, event models.WebhookEvent) {
	d.events = append(d.events, event)
}

type capturingRejections struct {
	reasons []string
}

func (m *capturingRejections) RecordWebhookRejected(_ context.Context, reason string) {
	m.reasons = append(m.reasons, reason)
}

func TestWebhookService_Receive(t *testing.T) {
	body := []byte(`{"event":"call_started","data":{"call_id":"c1"}}`)

	t.Run("verified event is dispatched", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		rejections := &capturingRejections{}
		svc := NewWebhookService(stubVerifier{ok: true}, dispatcher, rejections)

		event, err := svc.Receive(context.Background(), body, "v=1,d=ab")

		require.NoError(t, err)
		assert.Equal(t, "call_started", event.Event)
		require.Len(t, dispatcher.events, 1)
		assert.Equal(t, "c1", dispatcher.events[0].CallID)
		assert.Empty(t, rejections.reasons)
	})

	t.Run("invalid signature is unauthorized and not dispatched", func(t *testing.T) {
		logs := captureLogs(t)
		dispatcher := &capturingDispatcher{}
		rejections := &capturingRejections{}
		svc := NewWebhookService(stubVerifier{ok: false}, dispatcher, rejections)

		_, err := svc.Receive(context.Background(), body, "")

		require.Error(t, err)
		assert.ErrorIs(t, err, huberrors.ErrUnauthorized)

		var unauthorized *huberrors.UnauthorizedError
		require.ErrorAs(t, err, &unauthorized)
		assert.Equal(t, "call_started", unauthorized.Event)
		assert.Equal(t, "c1", unauthorized.CallID)

		assert.Empty(t, dispatcher.events)
		assert.Equal(t, []string{observability.ReasonInvalidSignature}, rejections.reasons)
		assert.Contains(t, logs.String(), "Received Unauthorized")
	})

	t.Run("verification error is not unauthorized", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		rejections := &capturingRejections{}
		svc := NewWebhookService(stubVerifier{err: errors.New("boom")}, dispatcher, rejections)

		_, err := svc.Receive(context.Background(), body, "v=1,d=ab")

		require.Error(t, err)
		assert.NotErrorIs(t, err, huberrors.ErrUnauthorized)
		assert.Empty(t, dispatcher.events)
		assert.Equal(t, []string{observability.ReasonVerificationError}, rejections.reasons)
	})

	t.Run("nil metrics are allowed", func(t *testing.T) {
		svc := NewWebhookService(stubVerifier{ok: false}, &capturingDispatcher{}, nil)

		_, err := svc.Receive(context.Background(), body, "")
		assert.ErrorIs(t, err, huberrors.ErrUnauthorized)
	})
}

func TestWebhookService_ReceiveTwiceIsIdempotent(t *testing.T) {
	at := time.Now()
	body := []byte(`{"event":"call_analyzed","data":{"call_id":"c7"}}`)

	signature, err := retell.Sign(body, testAPIKey, at)
	require.NoError(t, err)

	verifier := NewSignatureVerifier(testAPIKey)
	verifier.now = fixedClock(at)

	dispatcher := &capturingDispatcher{}
	svc := NewWebhookService(verifier, dispatcher, nil)

	first, err := svc.Receive(context.Background(), body, signature)
	require.NoError(t, err)

	second, err := svc.Receive(context.Background(), body, signature)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, dispatcher.events, 2)
	assert.Equal(t, Classify(dispatcher.events[0]), Classify(dispatcher.events[1]))
	assert.Equal(t, ClassAnalyzed, Classify(dispatcher.events[0]))
}
