package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/sankofatours/paygate/pkg/config"

	"github.com/stretchr/testify/require"
)

func signStripe(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestStripeAdapter(now time.Time) *StripeAdapter {
	a := NewStripeAdapter(config.StripeConfig{Enabled: true, SecretKey: "sk", WebhookSecret: "whsec_test"})
	a.now = func() time.Time { return now }
	return a
}

func TestStripeParseCallback(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestStripeAdapter(now)
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_123","client_reference_id":"PAY-S1"}}}`)

	t.Run("valid", func(t *testing.T) {
		cb, err := a.ParseCallback(payload, signStripe("whsec_test", now, payload))
		require.NoError(t, err)
		require.Equal(t, "cs_123", cb.ExternalReference)
		require.Equal(t, "PAY-S1", cb.PaymentReference)
		require.Equal(t, StatusSucceeded, cb.Status)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := a.ParseCallback(payload, signStripe("whsec_other", now, payload))
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := a.ParseCallback(payload, signStripe("whsec_test", now.Add(-10*time.Minute), payload))
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("garbled header", func(t *testing.T) {
		_, err := a.ParseCallback(payload, "not-a-signature")
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("unknown event maps to accepted_pending", func(t *testing.T) {
		body := []byte(`{"type":"charge.updated","data":{"object":{"id":"cs_9"}}}`)
		cb, err := a.ParseCallback(body, signStripe("whsec_test", now, body))
		require.NoError(t, err)
		require.Equal(t, StatusAcceptedPending, cb.Status)
	})
}

func TestStripeEventMap(t *testing.T) {
	cases := []struct {
		event string
		want  NormalizedStatus
	}{
		{"checkout.session.completed", StatusSucceeded},
		{"checkout.session.async_payment_succeeded", StatusSucceeded},
		{"checkout.session.async_payment_failed", StatusFailed},
		{"checkout.session.expired", StatusCancelled},
		{"charge.refunded", StatusRefunded},
	}
	for _, c := range cases {
		require.Equal(t, c.want, stripeEventMap[c.event], "event %q", c.event)
	}
}
