package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKey(t *testing.T) {
	t.Run("empty secret generates a random key", func(t *testing.T) {
		a, generated, err := SessionKey("")
		require.NoError(t, err)
		assert.True(t, generated)
		assert.Len(t, a, MinSessionSecretLength)

		b, _, err := SessionKey("")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("published default is rejected", func(t *testing.T) {
		_, _, err := SessionKey("session-secret-must-be-overridden-in-prod")
		assert.Error(t, err)
	})

	t.Run("short secret is rejected", func(t *testing.T) {
		_, _, err := SessionKey("too-short")
		assert.Error(t, err)
	})

	t.Run("configured secret is used as is", func(t *testing.T) {
		secret := strings.Repeat("k", MinSessionSecretLength)
		key, generated, err := SessionKey(secret)
		require.NoError(t, err)
		assert.False(t, generated)
		assert.Equal(t, []byte(secret), key)
	})
}

func TestLoad_DefaultsLeaveSessionSecretEmpty(t *testing.T) {
	t.Setenv("APP_SESSION_SECRET", "")
	cfg, err := Load("config_test")
	require.NoError(t, err)
	assert.Empty(t, cfg.SessionSecret)
	assert.Greater(t, cfg.SessionVolatileTTL.Hours(), 0.0)
}
