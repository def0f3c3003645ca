package ledger

import (
	"testing"

	"github.com/sankofatours/paygate/internal/providers"
	"github.com/sankofatours/paygate/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.PaymentStatus
		want     bool
	}{
		{types.PaymentStatusPending, types.PaymentStatusProcessing, true},
		{types.PaymentStatusPending, types.PaymentStatusFailed, true},
		{types.PaymentStatusPending, types.PaymentStatusCancelled, true},
		{types.PaymentStatusPending, types.PaymentStatusSuccessful, false},
		{types.PaymentStatusProcessing, types.PaymentStatusSuccessful, true},
		{types.PaymentStatusProcessing, types.PaymentStatusFailed, true},
		{types.PaymentStatusProcessing, types.PaymentStatusCancelled, true},
		{types.PaymentStatusProcessing, types.PaymentStatusPending, false},
		{types.PaymentStatusSuccessful, types.PaymentStatusRefunded, true},
		{types.PaymentStatusSuccessful, types.PaymentStatusFailed, false},
		{types.PaymentStatusFailed, types.PaymentStatusSuccessful, false},
		{types.PaymentStatusFailed, types.PaymentStatusProcessing, false},
		{types.PaymentStatusCancelled, types.PaymentStatusSuccessful, false},
		{types.PaymentStatusRefunded, types.PaymentStatusSuccessful, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCanTransitionSameStatusIsNotAnEdge(t *testing.T) {
	for from := range transitionGraph {
		require.False(t, CanTransition(from, from), "%s -> %s", from, from)
	}
}

func TestStatusFromNormalized(t *testing.T) {
	require.Equal(t, types.PaymentStatusSuccessful, StatusFromNormalized(providers.StatusSucceeded))
	require.Equal(t, types.PaymentStatusFailed, StatusFromNormalized(providers.StatusFailed))
	require.Equal(t, types.PaymentStatusCancelled, StatusFromNormalized(providers.StatusCancelled))
	require.Equal(t, types.PaymentStatusRefunded, StatusFromNormalized(providers.StatusRefunded))
	require.Equal(t, types.PaymentStatusProcessing, StatusFromNormalized(providers.StatusAcceptedPending))
	// Anything an adapter failed to classify must stay non-terminal.
	require.Equal(t, types.PaymentStatusProcessing, StatusFromNormalized(providers.NormalizedStatus("weird")))
}
