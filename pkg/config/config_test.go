package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, EnvDev, cfg.Env)
	require.Equal(t, 8888, cfg.Server.Port)
	require.False(t, cfg.SandboxMode, "sandbox mode must default off")
	require.Equal(t, 5*time.Second, cfg.Sweeper.Interval)
	require.Equal(t, 10*time.Second, cfg.Sweeper.SandboxGrace)
	require.Equal(t, 2*time.Minute, cfg.Sweeper.ProcessingTimeout)
	require.Equal(t, 100, cfg.Sweeper.BatchSize)
	require.Equal(t, "https://api.paystack.co", cfg.Providers.Paystack.BaseURL)
}

func TestNew_SandboxFromEnv(t *testing.T) {
	t.Setenv("APP_SANDBOX_MODE", "true")
	cfg, err := New()
	require.NoError(t, err)
	require.True(t, cfg.SandboxMode)
}
