package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
	"github.com/aradsms/sms_inbox_site/internal/site_service/repository/memory"
)

func newTestGate(t *testing.T, cfg AuthGateConfig) (*AuthGate, *memory.MarkerStore, *memory.MarkerStore) {
	t.Helper()
	store, _ := newTestStore(t)
	return NewAuthGate(store, cfg, testLogger()), &memory.MarkerStore{}, &memory.MarkerStore{}
}

func TestAuthSession_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("remember me writes durable marker", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{RememberFor: time.Hour})
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		gate.now = func() time.Time { return fixed }
		sess := gate.Session(durable, volatile)

		ok, err := sess.Login(ctx, "admin", "admin123", true)
		require.NoError(t, err)
		assert.True(t, ok)

		m, err := durable.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, m.IsAuthenticated)
		require.NotNil(t, m.ExpiresAt)
		assert.Equal(t, fixed.Add(time.Hour).UnixMilli(), *m.ExpiresAt)

		v, _ := volatile.Get(ctx)
		assert.Nil(t, v)
		assert.True(t, sess.IsAuthenticated(ctx))
	})

	t.Run("without remember me writes volatile marker", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{})
		sess := gate.Session(durable, volatile)

		ok, err := sess.Login(ctx, "admin", "admin123", false)
		require.NoError(t, err)
		assert.True(t, ok)

		m, _ := durable.Get(ctx)
		assert.Nil(t, m)
		v, _ := volatile.Get(ctx)
		require.NotNil(t, v)
		assert.Nil(t, v.ExpiresAt)
		assert.True(t, sess.IsAuthenticated(ctx))
	})

	t.Run("wrong password", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{})
		sess := gate.Session(durable, volatile)

		ok, err := sess.Login(ctx, "admin", "wrong", true)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, sess.IsAuthenticated(ctx))
	})

	t.Run("new login clears previous marker", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{})
		sess := gate.Session(durable, volatile)

		_, err := sess.Login(ctx, "admin", "admin123", true)
		require.NoError(t, err)
		_, err = sess.Login(ctx, "admin", "admin123", false)
		require.NoError(t, err)

		m, _ := durable.Get(ctx)
		assert.Nil(t, m)
		v, _ := volatile.Get(ctx)
		assert.NotNil(t, v)
	})

	t.Run("cancelled during delay", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{LoginDelay: time.Hour})
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		ok, err := gate.Session(durable, volatile).Login(cctx, "admin", "admin123", false)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ok)
	})

	t.Run("rate limited", func(t *testing.T) {
		gate, durable, volatile := newTestGate(t, AuthGateConfig{AttemptsPerMinute: 2})
		sess := gate.Session(durable, volatile)

		for i := 0; i < 2; i++ {
			_, err := sess.Login(ctx, "admin", "wrong", false)
			require.NoError(t, err)
		}
		ok, err := sess.Login(ctx, "admin", "admin123", false)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.False(t, ok)
	})
}

func TestAuthSession_Expiry(t *testing.T) {
	ctx := context.Background()
	gate, durable, volatile := newTestGate(t, AuthGateConfig{RememberFor: time.Hour})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	sess := gate.Session(durable, volatile)

	_, err := sess.Login(ctx, "admin", "admin123", true)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	assert.True(t, sess.IsAuthenticated(ctx))

	now = now.Add(2 * time.Minute)
	assert.False(t, sess.IsAuthenticated(ctx))
	m, _ := durable.Get(ctx)
	assert.Nil(t, m, "expired marker is removed")
}

func TestAuthSession_Logout(t *testing.T) {
	ctx := context.Background()
	gate, durable, volatile := newTestGate(t, AuthGateConfig{})
	sess := gate.Session(durable, volatile)

	_, err := sess.Login(ctx, "admin", "admin123", true)
	require.NoError(t, err)
	require.NoError(t, volatile.Set(ctx, domain.SessionMarker{IsAuthenticated: true}))

	require.NoError(t, sess.Logout(ctx))
	assert.False(t, sess.IsAuthenticated(ctx))
}

func TestAuthGate_UpdateCredentials(t *testing.T) {
	ctx := context.Background()
	gate, durable, volatile := newTestGate(t, AuthGateConfig{})
	sess := gate.Session(durable, volatile)

	assert.ErrorIs(t, gate.UpdateCredentials(ctx, " ", "x"), domain.ErrValidation)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, gate.UpdateCredentials(ctx, "owner", string(hash)))

	ok, err := sess.Login(ctx, "owner", "s3cret", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sess.Login(ctx, "admin", "admin123", false)
	require.NoError(t, err)
	assert.False(t, ok)
}
