package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

func TestSettingsStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("first load returns defaults", func(t *testing.T) {
		store, _ := newTestStore(t)
		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), s)
	})

	t.Run("missing fields are backfilled from defaults", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, SettingsKey, []byte(`{"siteName":"Mine","adminUsername":"root"}`)))

		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Mine", s.SiteName)
		assert.Equal(t, "root", s.AdminUsername)
		assert.Equal(t, DefaultSettings().Ads, s.Ads)
		assert.Equal(t, DefaultSettings().AdminPassword, s.AdminPassword)
		assert.NotNil(t, s.NumberSettings)
	})

	t.Run("stored collections do not inherit default elements", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, SettingsKey, []byte(`{"footerLinks":[{"label":"Home"}],"siteName":"Mine"}`)))

		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.FooterLink{{Label: "Home"}}, s.FooterLinks)
		assert.Equal(t, "Mine", s.SiteName)
		assert.Equal(t, DefaultSettings().HeroTitle, s.HeroTitle)
	})

	t.Run("null collection loads empty", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, SettingsKey, []byte(`{"footerLinks":null}`)))

		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, s.FooterLinks)
		assert.Empty(t, s.FooterLinks)
	})

	t.Run("corrupt value is discarded", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, SettingsKey, []byte(`{not json`)))

		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), s)

		_, err = kv.Get(ctx, SettingsKey)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		boom := errors.New("disk gone")
		store := NewSettingsStore(failingKV{err: boom}, testLogger())
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("legacy editor mode resolves the format", func(t *testing.T) {
		store, kv := newTestStore(t)
		raw := `{"blogPosts":[
			{"id":"1","title":"A","slug":"a","content":"# Hi","editorMode":"markdown"},
			{"id":"2","title":"B","slug":"b","content":"<p>Hi</p>"},
			{"id":"3","title":"C","slug":"c","content":"plain words"}
		],"customPages":[{"id":"p","title":"P","slug":"p","content":"<h2>x</h2>"}]}`
		require.NoError(t, kv.Set(ctx, SettingsKey, []byte(raw)))

		s, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, s.BlogPosts, 3)
		assert.Equal(t, domain.FormatMarkdown, s.BlogPosts[0].Format)
		assert.Empty(t, s.BlogPosts[0].LegacyEditorMode)
		assert.Equal(t, domain.FormatHTML, s.BlogPosts[1].Format)
		assert.Equal(t, domain.FormatMarkdown, s.BlogPosts[2].Format)
		assert.Equal(t, domain.FormatHTML, s.CustomPages[0].Format)
	})
}

func TestSettingsStore_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	s := DefaultSettings()
	s.SiteName = "Numbers R Us"
	s.Theme = domain.ThemeDark
	s.PublicNumbers = []domain.PhoneNumber{{ID: "PN1", Number: "+15550001111", Enabled: true, Provider: domain.ProviderTwilio}}
	enabled := false
	s.NumberSettings["PN1"] = domain.NumberOverride{Country: "Narnia", Enabled: &enabled}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Numbers R Us", got.SiteName)
	assert.Equal(t, domain.ThemeDark, got.Theme)
	assert.Equal(t, s.PublicNumbers[0].Number, got.PublicNumbers[0].Number)
	require.NotNil(t, got.NumberSettings["PN1"].Enabled)
	assert.False(t, *got.NumberSettings["PN1"].Enabled)
	assert.Equal(t, "Narnia", got.NumberSettings["PN1"].Country)
}

// inUTC moves every timestamp to UTC so documents compare by instant.
func inUTC(s domain.Settings) domain.Settings {
	numbers := make([]domain.PhoneNumber, len(s.PublicNumbers))
	for i, n := range s.PublicNumbers {
		n.CreatedAt, n.LastMessageAt = n.CreatedAt.UTC(), n.LastMessageAt.UTC()
		numbers[i] = n
	}
	posts := make([]domain.BlogPost, len(s.BlogPosts))
	for i, p := range s.BlogPosts {
		p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
		posts[i] = p
	}
	pages := make([]domain.CustomPage, len(s.CustomPages))
	for i, p := range s.CustomPages {
		p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
		pages[i] = p
	}
	s.PublicNumbers, s.BlogPosts, s.CustomPages = numbers, posts, pages
	return s
}

func TestSettingsStore_FullDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	kolkata := time.FixedZone("", 5*3600+30*60)
	created := time.Date(2024, 3, 9, 14, 5, 7, 123456789, kolkata)
	updated := created.Add(26*time.Hour + 17*time.Millisecond)
	disabled := false

	s := DefaultSettings()
	s.SiteName = "Numbers R Us"
	s.Theme = domain.ThemeDark
	s.AdminPassword = "s3cret"
	s.Twilio = domain.TwilioCredentials{AccountSID: "AC123", AuthToken: "tok"}
	s.Ads.Sidebar = `<div class="ad">x</div>`
	s.FooterLinks = []domain.FooterLink{{Label: "Home", URL: "/"}, {Label: "Contact"}}
	s.PublicNumbers = []domain.PhoneNumber{
		{ID: "PN1", Number: "+15550001111", Country: "United States", CountryCode: "US",
			CreatedAt: created, LastMessageAt: updated, Enabled: true, Provider: domain.ProviderTwilio},
		{ID: "demo-gb-1", Number: "+447700900001", CreatedAt: created, LastMessageAt: domain.EpochActivity, Provider: domain.ProviderDemo},
	}
	s.NumberSettings = map[string]domain.NumberOverride{
		"PN1":       {Country: "Narnia", CountryCode: "NA", Enabled: &disabled},
		"demo-gb-1": {CountryCode: "GB"},
	}
	s.BlogPosts = []domain.BlogPost{
		{ID: "b1", Title: "Hello", Slug: "hello", Excerpt: "hi", Content: "# Hello", Format: domain.FormatMarkdown,
			Author: "Ops", Tags: []string{"news", "sms"}, Published: true, CreatedAt: created, UpdatedAt: updated},
		{ID: "b2", Title: "Draft", Slug: "draft", Content: "<p>wip</p>", Format: domain.FormatHTML, CreatedAt: updated, UpdatedAt: updated},
	}
	s.CustomPages = []domain.CustomPage{
		{ID: "p1", Title: "FAQ", Slug: "faq", Content: "<h2>Q</h2>", Format: domain.FormatHTML,
			Published: true, ShowInFooter: true, CreatedAt: created, UpdatedAt: updated},
	}
	s.Gist = domain.GistConfig{ID: "abc", Token: "ghp_x", FileName: "site.json"}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, inUTC(s), inUTC(got))

	_, offset := got.BlogPosts[0].CreatedAt.Zone()
	assert.Equal(t, 5*3600+30*60, offset, "zone offset survives the round trip")
	assert.True(t, got.PublicNumbers[0].LastMessageAt.Equal(updated))
}

func TestSettingsStore_RejectsDuplicateSlugs(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	s := DefaultSettings()
	s.BlogPosts = []domain.BlogPost{
		{ID: "1", Title: "One", Slug: "same", Format: domain.FormatHTML},
		{ID: "2", Title: "Two", Slug: "same", Format: domain.FormatHTML},
	}
	err := store.Save(ctx, s)
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = kv.Get(ctx, SettingsKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "nothing written on validation failure")

	s.BlogPosts = nil
	s.CustomPages = []domain.CustomPage{{ID: "p", Title: "No slug"}}
	assert.ErrorIs(t, store.Save(ctx, s), domain.ErrValidation)
}

func TestSettingsStore_Observers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var seen []string
	unsubscribe := store.Subscribe(ObserverFunc(func(_ context.Context, s domain.Settings) {
		seen = append(seen, s.SiteName)
	}))

	s := DefaultSettings()
	s.SiteName = "first"
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Update(ctx, func(doc *domain.Settings) error {
		doc.SiteName = "second"
		return nil
	}))
	assert.Equal(t, []string{"first", "second"}, seen)

	unsubscribe()
	s.SiteName = "third"
	require.NoError(t, store.Save(ctx, s))
	assert.Len(t, seen, 2)
}

func TestSettingsStore_UpdateErrorSkipsWrite(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	called := false
	store.Subscribe(ObserverFunc(func(context.Context, domain.Settings) { called = true }))

	boom := errors.New("nope")
	err := store.Update(ctx, func(doc *domain.Settings) error {
		doc.SiteName = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
	_, err = kv.Get(ctx, SettingsKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestSettingsStore_ReloadNotifies(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	snap := NewSettingsSnapshot(DefaultSettings())
	store.Subscribe(snap)

	require.NoError(t, kv.Set(ctx, SettingsKey, []byte(`{"siteName":"written elsewhere"}`)))
	_, err := store.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "written elsewhere", snap.Current().SiteName)
}

func TestSettingsStore_ReloadWaitsForLocalWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	snap := NewSettingsSnapshot(DefaultSettings())
	store.Subscribe(snap)

	inUpdate := make(chan struct{})
	release := make(chan struct{})
	updated := make(chan error, 1)
	go func() {
		updated <- store.Update(ctx, func(doc *domain.Settings) error {
			close(inUpdate)
			<-release
			doc.SiteName = "newest"
			return nil
		})
	}()
	<-inUpdate

	reloaded := make(chan error, 1)
	go func() {
		_, err := store.Reload(ctx)
		reloaded <- err
	}()

	select {
	case <-reloaded:
		t.Fatal("reload finished while a write was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-updated)
	require.NoError(t, <-reloaded)
	assert.Equal(t, "newest", snap.Current().SiteName)
}

func TestSettingsSnapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	snap := NewSettingsSnapshot(DefaultSettings())
	store.Subscribe(snap)

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings().SiteName, loaded.SiteName)

	require.NoError(t, store.Update(ctx, func(doc *domain.Settings) error {
		doc.HeroTitle = "fresh"
		return nil
	}))
	assert.Equal(t, "fresh", snap.Current().HeroTitle)
}
