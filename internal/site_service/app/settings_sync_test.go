package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

func withGist(t *testing.T, store *SettingsStore, cfg domain.GistConfig) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(s *domain.Settings) error {
		s.Gist = cfg
		return nil
	}))
}

func TestSettingsSync_Export(t *testing.T) {
	ctx := context.Background()
	withoutToken := mock.MatchedBy(func(b []byte) bool { return !bytes.Contains(b, []byte("tok-123")) })

	t.Run("requires token", func(t *testing.T) {
		store, _ := newTestStore(t)
		client := new(MockGistClient)
		_, err := NewSettingsSync(store, client, testLogger()).Export(ctx)
		assert.ErrorIs(t, err, domain.ErrSyncNotConfigured)
		client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates gist and remembers its id", func(t *testing.T) {
		store, _ := newTestStore(t)
		withGist(t, store, domain.GistConfig{Token: "tok-123", FileName: "site.json"})
		client := new(MockGistClient)
		client.On("Create", mock.Anything, "tok-123", "site.json", withoutToken).Return("gist-1", nil)

		id, err := NewSettingsSync(store, client, testLogger()).Export(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gist-1", id)
		client.AssertExpectations(t)

		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gist-1", s.Gist.ID)
		assert.Equal(t, "tok-123", s.Gist.Token)
	})

	t.Run("updates existing gist", func(t *testing.T) {
		store, _ := newTestStore(t)
		withGist(t, store, domain.GistConfig{ID: "gist-9", Token: "tok-123"})
		client := new(MockGistClient)
		client.On("Update", mock.Anything, "gist-9", "tok-123", DefaultSettings().Gist.FileName, withoutToken).Return(nil)

		id, err := NewSettingsSync(store, client, testLogger()).Export(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gist-9", id)
		client.AssertExpectations(t)
	})

	t.Run("upstream failure", func(t *testing.T) {
		store, _ := newTestStore(t)
		withGist(t, store, domain.GistConfig{ID: "gist-9", Token: "tok-123"})
		client := new(MockGistClient)
		boom := errors.New("401 Bad credentials")
		client.On("Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(boom)

		_, err := NewSettingsSync(store, client, testLogger()).Export(ctx)
		assert.ErrorIs(t, err, boom)
	})
}

func TestSettingsSync_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("requires gist id", func(t *testing.T) {
		store, _ := newTestStore(t)
		err := NewSettingsSync(store, new(MockGistClient), testLogger()).Import(ctx)
		assert.ErrorIs(t, err, domain.ErrSyncNotConfigured)
	})

	t.Run("replaces document and keeps local gist config", func(t *testing.T) {
		store, _ := newTestStore(t)
		local := domain.GistConfig{ID: "gist-1", Token: "tok-local", FileName: "site.json"}
		withGist(t, store, local)
		client := new(MockGistClient)
		client.On("Fetch", mock.Anything, "gist-1", "tok-local", "site.json").
			Return([]byte(`{"siteName":"Remote","gist":{"id":"elsewhere","token":""}}`), nil)

		var notified bool
		store.Subscribe(ObserverFunc(func(context.Context, domain.Settings) { notified = true }))

		require.NoError(t, NewSettingsSync(store, client, testLogger()).Import(ctx))
		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Remote", s.SiteName)
		assert.Equal(t, local, s.Gist)
		assert.Equal(t, DefaultSettings().HeroTitle, s.HeroTitle, "missing fields backfilled")
		assert.True(t, notified)
	})

	t.Run("rejects non-settings content", func(t *testing.T) {
		store, _ := newTestStore(t)
		withGist(t, store, domain.GistConfig{ID: "gist-1"})
		client := new(MockGistClient)
		client.On("Fetch", mock.Anything, "gist-1", "", DefaultSettings().Gist.FileName).Return([]byte(`not json`), nil)

		err := NewSettingsSync(store, client, testLogger()).Import(ctx)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
