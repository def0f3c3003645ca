package sweeper

import (
	"testing"
	"time"

	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/pkg/config"
	types "github.com/sankofatours/paygate/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestShouldAutoComplete(t *testing.T) {
	now := time.Now()
	grace := 10 * time.Second
	eligible := &models.Payment{
		Method:           types.PaymentMethodMobileMoney,
		Status:           types.PaymentStatusProcessing,
		LastTransitionAt: now.Add(-time.Minute),
	}

	t.Run("eligible in sandbox", func(t *testing.T) {
		require.True(t, shouldAutoComplete(true, eligible, grace, now))
	})

	t.Run("never fires outside sandbox mode", func(t *testing.T) {
		require.False(t, shouldAutoComplete(false, eligible, grace, now))
	})

	t.Run("card payments are left alone", func(t *testing.T) {
		p := *eligible
		p.Method = types.PaymentMethodCard
		require.False(t, shouldAutoComplete(true, &p, grace, now))
	})

	t.Run("only processing rows qualify", func(t *testing.T) {
		for _, st := range []types.PaymentStatus{
			types.PaymentStatusPending,
			types.PaymentStatusSuccessful,
			types.PaymentStatusFailed,
			types.PaymentStatusCancelled,
			types.PaymentStatusRefunded,
		} {
			p := *eligible
			p.Status = st
			require.False(t, shouldAutoComplete(true, &p, grace, now), "status %s", st)
		}
	})

	t.Run("waits out the grace period", func(t *testing.T) {
		p := *eligible
		p.LastTransitionAt = now.Add(-grace / 2)
		require.False(t, shouldAutoComplete(true, &p, grace, now))

		p.LastTransitionAt = now.Add(-grace)
		require.True(t, shouldAutoComplete(true, &p, grace, now))
	})
}

func TestProcessingTimeout(t *testing.T) {
	cfg := &config.SweeperConfig{
		ProcessingTimeout: 2 * time.Minute,
		ProcessingTimeouts: map[string]time.Duration{
			"momo":   10 * time.Minute,
			"stripe": 30 * time.Second,
			"broken": 0,
		},
	}

	require.Equal(t, 10*time.Minute, processingTimeout(cfg, types.PaymentProviderMomo))
	require.Equal(t, 30*time.Second, processingTimeout(cfg, types.PaymentProviderStripe))
	require.Equal(t, 2*time.Minute, processingTimeout(cfg, types.PaymentProviderPaystack))
	require.Equal(t, 2*time.Minute, processingTimeout(cfg, types.PaymentProvider("broken")))
}

func TestMinProcessingTimeout(t *testing.T) {
	require.Equal(t, 2*time.Minute, minProcessingTimeout(&config.SweeperConfig{ProcessingTimeout: 2 * time.Minute}))

	cfg := &config.SweeperConfig{
		ProcessingTimeout: 2 * time.Minute,
		ProcessingTimeouts: map[string]time.Duration{
			"momo":   10 * time.Minute,
			"stripe": 30 * time.Second,
		},
	}
	require.Equal(t, 30*time.Second, minProcessingTimeout(cfg))
}
