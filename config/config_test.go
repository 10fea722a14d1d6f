package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoEnv(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.BindHost)
	assert.Equal(t, 30*time.Second, cfg.DiscoveryPeriod)
	assert.Equal(t, 1, cfg.VoiceTTL)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DEFAULT_TTL", "5")
	t.Setenv("VAD_THRESHOLD", "0.75")
	t.Setenv("INACTIVE_THRESHOLD_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 5, cfg.DefaultTTL)
	assert.Equal(t, 0.75, cfg.VADThreshold)
	assert.Equal(t, 120*time.Second, cfg.InactiveThreshold)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.IsType(t, &LoadError{}, err)
}
