package providers

import (
	"testing"

	"github.com/sankofatours/paygate/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMsisdn(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"local format", "0244000000", "233244000000", false},
		{"e164 without plus", "233244000000", "233244000000", false},
		{"e164 with plus", "+233244000000", "233244000000", false},
		{"spaced", "024 400 0000", "233244000000", false},
		{"dashed", "024-400-0000", "233244000000", false},
		{"other network prefix", "0594000000", "233594000000", false},
		{"unsupported prefix", "0204000000", "", true},
		{"too short", "024400", "", true},
		{"too long", "02440000001", "", true},
		{"letters", "02440abc00", "", true},
		{"empty", "", "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := NormalizeMsisdn(c.in)
			if c.wantErr {
				require.ErrorIs(t, err, ErrInvalidPayerContact)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestMapMomoStatus(t *testing.T) {
	cases := []struct {
		in   string
		want NormalizedStatus
	}{
		{"PENDING", StatusAcceptedPending},
		{"pending", StatusAcceptedPending},
		{"SUCCESSFUL", StatusSucceeded},
		{"FAILED", StatusFailed},
		{"REJECTED", StatusFailed},
		{"TIMEOUT", StatusFailed},
		{"EXPIRED", StatusCancelled},
		{"whatever", StatusAcceptedPending},
	}
	for _, c := range cases {
		require.Equal(t, c.want, mapMomoStatus(c.in), "status %q", c.in)
	}
}

func TestMomoParseCallback(t *testing.T) {
	a := NewMomoAdapter(config.MomoConfig{Enabled: true, CallbackKey: "cb-secret"})
	payload := []byte(`{"referenceId":"ext-123","externalId":"PAY-M1","status":"SUCCESSFUL"}`)

	t.Run("accepted with key", func(t *testing.T) {
		cb, err := a.ParseCallback(payload, "cb-secret")
		require.NoError(t, err)
		require.Equal(t, "ext-123", cb.ExternalReference)
		require.Equal(t, "PAY-M1", cb.PaymentReference)
		require.Equal(t, StatusSucceeded, cb.Status)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := a.ParseCallback(payload, "guess")
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("no key configured rejects everything", func(t *testing.T) {
		unconfigured := NewMomoAdapter(config.MomoConfig{Enabled: true})
		_, err := unconfigured.ParseCallback(payload, "")
		require.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("missing identifiers", func(t *testing.T) {
		_, err := a.ParseCallback([]byte(`{"status":"SUCCESSFUL"}`), "cb-secret")
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}
