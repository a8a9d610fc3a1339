package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, uint32(3), cfg.Auth.PasswordTime)
	require.Equal(t, uint32(65536), cfg.Auth.PasswordMemory)
	require.Equal(t, 10, cfg.RateLimit.LoginLimit)
	require.Equal(t, time.Minute, cfg.RateLimit.LoginWindow)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("SITEPULSE_ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "tokensecret")
}

func TestLoadProductionWithSecret(t *testing.T) {
	t.Setenv("SITEPULSE_ENVIRONMENT", "production")
	t.Setenv("SITEPULSE_AUTH_TOKENSECRET", "a-real-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "a-real-secret", cfg.Auth.TokenSecret)
}
