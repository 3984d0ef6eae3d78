package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "PORT", "WS_WRITE_TIMEOUT", "SERVICE_NAME")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
	assert.Equal(t, "relay-service", cfg.ServiceName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WS_WRITE_TIMEOUT", "250ms")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.WSWriteTimeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("WS_WRITE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
