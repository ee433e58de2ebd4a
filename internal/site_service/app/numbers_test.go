package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

func seedPublic(t *testing.T, store *SettingsStore, nums ...domain.PhoneNumber) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(s *domain.Settings) error {
		s.PublicNumbers = append(s.PublicNumbers, nums...)
		return nil
	}))
}

func TestNumberService_Reconcile(t *testing.T) {
	ctx := context.Background()
	lastMsg := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)

	t.Run("merges live activity into persisted numbers", func(t *testing.T) {
		store, _ := newTestStore(t)
		seedPublic(t, store,
			domain.PhoneNumber{ID: "PN1", Number: "+15550000001", Country: "Custom", CountryCode: "XX", Enabled: false, Provider: domain.ProviderTwilio},
			domain.PhoneNumber{ID: "PN-gone", Number: "+15550000009", Enabled: true, Provider: domain.ProviderTwilio},
		)

		twilio := &MockNumberSource{name: domain.ProviderTwilio}
		twilio.On("Configured", mock.Anything).Return(true)
		twilio.On("ListOwnedNumbers", mock.Anything).Return([]domain.PhoneNumber{
			{ID: "PN1", Number: "+15550000001", Country: "United States", CountryCode: "US", LastMessageAt: lastMsg, Enabled: true, Provider: domain.ProviderTwilio, WebhookURL: "https://hook"},
			{ID: "PN3", Number: "+15550000003", Enabled: true, Provider: domain.ProviderTwilio},
		}, nil)
		signalwire := &MockNumberSource{name: domain.ProviderSignalWire}
		signalwire.On("Configured", mock.Anything).Return(true)
		signalwire.On("ListOwnedNumbers", mock.Anything).Return([]domain.PhoneNumber{
			{ID: "SW2", Number: "+15550000002", Enabled: true, Provider: domain.ProviderSignalWire},
		}, nil)

		svc := NewNumberService(store, []provider.NumberSource{twilio, signalwire}, testLogger())
		rec, err := svc.Reconcile(ctx)
		require.NoError(t, err)

		require.Len(t, rec.Numbers, 2)
		merged := rec.Numbers[0]
		assert.Equal(t, "PN1", merged.ID)
		assert.False(t, merged.Enabled, "persisted enabled flag wins")
		assert.Equal(t, lastMsg, merged.LastMessageAt)
		assert.Equal(t, "Custom", merged.Country)
		assert.Equal(t, "XX", merged.CountryCode)
		assert.Equal(t, "https://hook", merged.WebhookURL)
		assert.Equal(t, "PN-gone", rec.Numbers[1].ID, "numbers missing upstream are kept")

		require.Len(t, rec.AvailableToAdd, 2)
		assert.Equal(t, "+15550000002", rec.AvailableToAdd[0].Number)
		assert.Equal(t, "+15550000003", rec.AvailableToAdd[1].Number)
		assert.False(t, rec.FromCache)
		assert.Empty(t, rec.ProviderErrors)
	})

	t.Run("override is applied on top of merge", func(t *testing.T) {
		store, _ := newTestStore(t)
		seedPublic(t, store, domain.PhoneNumber{ID: "PN1", Number: "+15550000001", Enabled: true, Provider: domain.ProviderTwilio})
		enabled := false
		require.NoError(t, store.Update(ctx, func(s *domain.Settings) error {
			s.NumberSettings["PN1"] = domain.NumberOverride{Country: "Atlantis", Enabled: &enabled}
			return nil
		}))

		twilio := &MockNumberSource{name: domain.ProviderTwilio}
		twilio.On("Configured", mock.Anything).Return(true)
		twilio.On("ListOwnedNumbers", mock.Anything).Return([]domain.PhoneNumber{
			{ID: "PN1", Number: "+15550000001", Country: "United States", Enabled: true},
		}, nil)

		rec, err := NewNumberService(store, []provider.NumberSource{twilio}, testLogger()).Reconcile(ctx)
		require.NoError(t, err)
		require.Len(t, rec.Numbers, 1)
		assert.Equal(t, "Atlantis", rec.Numbers[0].Country)
		assert.False(t, rec.Numbers[0].Enabled)
	})

	t.Run("all providers failing falls back to persisted list", func(t *testing.T) {
		store, _ := newTestStore(t)
		persisted := domain.PhoneNumber{ID: "PN1", Number: "+15550000001", Enabled: true, Provider: domain.ProviderTwilio}
		seedPublic(t, store, persisted)

		twilio := &MockNumberSource{name: domain.ProviderTwilio}
		twilio.On("Configured", mock.Anything).Return(true)
		twilio.On("ListOwnedNumbers", mock.Anything).Return(nil, errors.New("401"))
		signalwire := &MockNumberSource{name: domain.ProviderSignalWire}
		signalwire.On("Configured", mock.Anything).Return(true)
		signalwire.On("ListOwnedNumbers", mock.Anything).Return(nil, errors.New("timeout"))

		rec, err := NewNumberService(store, []provider.NumberSource{twilio, signalwire}, testLogger()).Reconcile(ctx)
		require.NoError(t, err)
		assert.True(t, rec.FromCache)
		require.Len(t, rec.Numbers, 1)
		assert.Equal(t, persisted.ID, rec.Numbers[0].ID)
		assert.Equal(t, persisted.Number, rec.Numbers[0].Number)
		assert.Empty(t, rec.AvailableToAdd)
		assert.Len(t, rec.ProviderErrors, 2)
	})

	t.Run("unconfigured providers are not called", func(t *testing.T) {
		store, _ := newTestStore(t)
		twilio := &MockNumberSource{name: domain.ProviderTwilio}
		twilio.On("Configured", mock.Anything).Return(false)

		rec, err := NewNumberService(store, []provider.NumberSource{twilio}, testLogger()).Reconcile(ctx)
		require.NoError(t, err)
		assert.False(t, rec.FromCache)
		assert.Empty(t, rec.Numbers)
		twilio.AssertNotCalled(t, "ListOwnedNumbers", mock.Anything)
	})
}

func TestNumberService_AddAndSeed(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := NewNumberService(store, nil, testLogger())

	added, err := svc.SeedDemoNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DemoNumbers()), added)

	added, err = svc.SeedDemoNumbers(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	added, err = svc.AddPublicNumbers(ctx, []domain.PhoneNumber{{ID: "PN9", Number: "+15559999999", Enabled: true}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	_, err = svc.AddPublicNumbers(ctx, []domain.PhoneNumber{{ID: "", Number: "+1"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	nums, err := svc.GetAvailableNumbers(ctx)
	require.NoError(t, err)
	assert.Len(t, nums, len(DemoNumbers())+1)
}

func TestNumberService_Edit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := NewNumberService(store, nil, testLogger())
	seedPublic(t, store,
		domain.PhoneNumber{ID: "a", Number: "+1", Enabled: true},
		domain.PhoneNumber{ID: "b", Number: "+2", Enabled: true},
		domain.PhoneNumber{ID: "c", Number: "+3", Enabled: true},
	)

	t.Run("reorder", func(t *testing.T) {
		require.NoError(t, svc.ReorderPublicNumbers(ctx, []string{"c", "a", "b"}))
		s, _ := store.Load(ctx)
		assert.Equal(t, "c", s.PublicNumbers[0].ID)
		assert.Equal(t, "b", s.PublicNumbers[2].ID)

		assert.ErrorIs(t, svc.ReorderPublicNumbers(ctx, []string{"a", "b"}), domain.ErrValidation)
		assert.ErrorIs(t, svc.ReorderPublicNumbers(ctx, []string{"a", "a", "b"}), domain.ErrValidation)
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, svc.UpdatePublicNumber(ctx, domain.PhoneNumber{ID: "a", Number: "+1", Country: "Renamed"}))
		s, _ := store.Load(ctx)
		assert.Equal(t, "Renamed", s.PublicNumbers[s.PublicNumberByID("a")].Country)

		assert.ErrorIs(t, svc.UpdatePublicNumber(ctx, domain.PhoneNumber{ID: "zz"}), domain.ErrNotFound)
	})

	t.Run("override set and cleared", func(t *testing.T) {
		require.NoError(t, svc.SetNumberOverride(ctx, "b", domain.NumberOverride{CountryCode: "FR"}))
		s, _ := store.Load(ctx)
		assert.Equal(t, "FR", s.NumberSettings["b"].CountryCode)

		require.NoError(t, svc.SetNumberOverride(ctx, "b", domain.NumberOverride{}))
		s, _ = store.Load(ctx)
		_, ok := s.NumberSettings["b"]
		assert.False(t, ok)

		assert.ErrorIs(t, svc.SetNumberOverride(ctx, "", domain.NumberOverride{Country: "x"}), domain.ErrValidation)
	})

	t.Run("remove drops override", func(t *testing.T) {
		require.NoError(t, svc.SetNumberOverride(ctx, "c", domain.NumberOverride{Country: "x"}))
		require.NoError(t, svc.RemovePublicNumber(ctx, "c"))
		s, _ := store.Load(ctx)
		assert.Equal(t, -1, s.PublicNumberByID("c"))
		_, ok := s.NumberSettings["c"]
		assert.False(t, ok)

		assert.ErrorIs(t, svc.RemovePublicNumber(ctx, "c"), domain.ErrNotFound)
	})
}
