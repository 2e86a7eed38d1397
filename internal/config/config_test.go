package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every AZPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"AZPANEL_ORGANIZATION",
	"AZPANEL_PAT",
	"AZPANEL_LISTEN_ADDR",
	"AZPANEL_DB_PATH",
	"AZPANEL_SECRET_KEY",
	"AZPANEL_MAX_ATTEMPTS",
	"AZPANEL_RETRY_DELAY",
}

// isolateConfigEnv saves and unsets all AZPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AZPANEL_ORGANIZATION", "contoso")
	t.Setenv("AZPANEL_PAT", "azdo-pat")
	t.Setenv("AZPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("AZPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("AZPANEL_MAX_ATTEMPTS", "3")
	t.Setenv("AZPANEL_RETRY_DELAY", "250ms")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "contoso", cfg.Organization)
	assert.Equal(t, "azdo-pat", cfg.PAT)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.Organization)
	assert.Empty(t, cfg.PAT)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "azpanel.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AZPANEL_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZPANEL_MAX_ATTEMPTS")
}

func TestLoad_InvalidRetryDelay(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AZPANEL_RETRY_DELAY", "-1s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZPANEL_RETRY_DELAY")
}

func TestSecretKeyBytes(t *testing.T) {
	t.Run("unset disables storage", func(t *testing.T) {
		cfg := &Config{}
		key, err := cfg.SecretKeyBytes()
		require.NoError(t, err)
		assert.Nil(t, key)
	})

	t.Run("valid 32-byte key", func(t *testing.T) {
		cfg := &Config{SecretKey: strings.Repeat("ab", 32)}
		key, err := cfg.SecretKeyBytes()
		require.NoError(t, err)
		assert.Len(t, key, 32)
	})

	t.Run("not hex", func(t *testing.T) {
		cfg := &Config{SecretKey: "zz"}
		_, err := cfg.SecretKeyBytes()
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		cfg := &Config{SecretKey: "abcd"}
		_, err := cfg.SecretKeyBytes()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})
}
