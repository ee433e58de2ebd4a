package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// SettingsKey is the storage key of the settings document.
const SettingsKey = "sms_site_settings"

// SettingsObserver is notified synchronously after every successful save.
// Observers must treat the document as read-only and must not write
// settings from the callback.
type SettingsObserver interface {
	SettingsChanged(ctx context.Context, s domain.Settings)
}

// ObserverFunc adapts a function to SettingsObserver.
type ObserverFunc func(ctx context.Context, s domain.Settings)

func (f ObserverFunc) SettingsChanged(ctx context.Context, s domain.Settings) { f(ctx, s) }

// SettingsStore reads and writes the whole settings document.
type SettingsStore struct {
	kv     domain.KeyValueStore
	logger *slog.Logger

	writeMu sync.Mutex

	obsMu     sync.RWMutex
	observers map[uint64]SettingsObserver
	nextObsID uint64
}

func NewSettingsStore(kv domain.KeyValueStore, logger *slog.Logger) *SettingsStore {
	return &SettingsStore{
		kv:        kv,
		logger:    logger.With("component", "settings_store"),
		observers: make(map[uint64]SettingsObserver),
	}
}

// Load returns the persisted document decoded over DefaultSettings. An
// absent or corrupt value yields the defaults; a corrupt value is deleted.
func (st *SettingsStore) Load(ctx context.Context) (domain.Settings, error) {
	raw, err := st.kv.Get(ctx, SettingsKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	s, err := DecodeSettings(raw)
	if err != nil {
		st.logger.WarnContext(ctx, "Discarding corrupt settings document", "error", err)
		settingsCorruptCounter.Inc()
		if delErr := st.kv.Delete(ctx, SettingsKey); delErr != nil {
			st.logger.ErrorContext(ctx, "Failed to delete corrupt settings document", "error", delErr)
		}
		return DefaultSettings(), nil
	}
	return s, nil
}

// Save validates and overwrites the document, then notifies observers.
func (st *SettingsStore) Save(ctx context.Context, s domain.Settings) error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	return st.save(ctx, s)
}

// Update applies fn to the current document and saves the result. Updates
// within this process are serialized.
func (st *SettingsStore) Update(ctx context.Context, fn func(*domain.Settings) error) error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()

	s, err := st.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&s); err != nil {
		return err
	}
	return st.save(ctx, s)
}

// Reload re-reads the document and notifies observers without writing.
// Used when another instance saved. It is serialized with local writes so
// observers never see an older document after a newer one.
func (st *SettingsStore) Reload(ctx context.Context) (domain.Settings, error) {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()

	s, err := st.Load(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	st.notify(ctx, s)
	return s, nil
}

func (st *SettingsStore) save(ctx context.Context, s domain.Settings) error {
	normalize(&s)
	if err := validateSettings(s); err != nil {
		settingsSavesCounter.WithLabelValues("invalid").Inc()
		return err
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := st.kv.Set(ctx, SettingsKey, raw); err != nil {
		settingsSavesCounter.WithLabelValues("error").Inc()
		st.logger.ErrorContext(ctx, "Failed to write settings", "error", err)
		return fmt.Errorf("writing settings: %w", err)
	}
	settingsSavesCounter.WithLabelValues("ok").Inc()
	st.logger.InfoContext(ctx, "Settings saved", "bytes", len(raw))

	st.notify(ctx, s)
	return nil
}

// Subscribe registers o and returns a func that removes it.
func (st *SettingsStore) Subscribe(o SettingsObserver) func() {
	st.obsMu.Lock()
	defer st.obsMu.Unlock()
	id := st.nextObsID
	st.nextObsID++
	st.observers[id] = o
	return func() {
		st.obsMu.Lock()
		defer st.obsMu.Unlock()
		delete(st.observers, id)
	}
}

func (st *SettingsStore) notify(ctx context.Context, s domain.Settings) {
	st.obsMu.RLock()
	observers := make([]SettingsObserver, 0, len(st.observers))
	for _, o := range st.observers {
		observers = append(observers, o)
	}
	st.obsMu.RUnlock()

	for _, o := range observers {
		o.SettingsChanged(ctx, s)
	}
}

// DecodeSettings decodes a stored or imported document over DefaultSettings.
func DecodeSettings(raw []byte) (domain.Settings, error) {
	return DecodeSettingsOver(DefaultSettings(), raw)
}

// DecodeSettingsOver decodes raw over base. Top-level fields missing from raw
// keep base's value. Collections present in raw replace base's collection
// outright, so a stored element never inherits fields from a base element at
// the same index.
func DecodeSettingsOver(base domain.Settings, raw []byte) (domain.Settings, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return domain.Settings{}, err
	}
	if _, ok := keys["publicNumbers"]; ok {
		base.PublicNumbers = nil
	}
	if _, ok := keys["numberSettings"]; ok {
		base.NumberSettings = nil
	}
	if _, ok := keys["footerLinks"]; ok {
		base.FooterLinks = nil
	}
	if _, ok := keys["blogPosts"]; ok {
		base.BlogPosts = nil
	}
	if _, ok := keys["customPages"]; ok {
		base.CustomPages = nil
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return domain.Settings{}, err
	}
	normalize(&base)
	return base, nil
}

// normalize fills nil collections and resolves the content format of
// documents written before the format field existed.
func normalize(s *domain.Settings) {
	if s.PublicNumbers == nil {
		s.PublicNumbers = []domain.PhoneNumber{}
	}
	if s.NumberSettings == nil {
		s.NumberSettings = map[string]domain.NumberOverride{}
	}
	if s.FooterLinks == nil {
		s.FooterLinks = []domain.FooterLink{}
	}
	if s.BlogPosts == nil {
		s.BlogPosts = []domain.BlogPost{}
	}
	if s.CustomPages == nil {
		s.CustomPages = []domain.CustomPage{}
	}
	for i := range s.BlogPosts {
		p := &s.BlogPosts[i]
		p.Format = content.NormalizeFormat(p.Format, p.LegacyEditorMode, p.Content)
		p.LegacyEditorMode = ""
	}
	for i := range s.CustomPages {
		p := &s.CustomPages[i]
		p.Format = content.NormalizeFormat(p.Format, "", p.Content)
	}
}

func validateSettings(s domain.Settings) error {
	seen := make(map[string]bool, len(s.BlogPosts))
	for _, p := range s.BlogPosts {
		if p.Slug == "" {
			return fmt.Errorf("%w: blog post %q has no slug", domain.ErrValidation, p.Title)
		}
		if seen[p.Slug] {
			return fmt.Errorf("%w: blog post slug %q", domain.ErrDuplicateSlug, p.Slug)
		}
		seen[p.Slug] = true
	}
	seen = make(map[string]bool, len(s.CustomPages))
	for _, p := range s.CustomPages {
		if p.Slug == "" {
			return fmt.Errorf("%w: page %q has no slug", domain.ErrValidation, p.Title)
		}
		if seen[p.Slug] {
			return fmt.Errorf("%w: page slug %q", domain.ErrDuplicateSlug, p.Slug)
		}
		seen[p.Slug] = true
	}
	return nil
}

// SettingsSnapshot is an observer that keeps the latest document for
// read-heavy paths. It also satisfies provider.SettingsLoader.
type SettingsSnapshot struct {
	current atomic.Pointer[domain.Settings]
}

func NewSettingsSnapshot(initial domain.Settings) *SettingsSnapshot {
	s := &SettingsSnapshot{}
	s.current.Store(&initial)
	return s
}

func (s *SettingsSnapshot) SettingsChanged(_ context.Context, settings domain.Settings) {
	s.current.Store(&settings)
}

// Current returns the latest document. Callers must not mutate it.
func (s *SettingsSnapshot) Current() domain.Settings {
	return *s.current.Load()
}

func (s *SettingsSnapshot) Load(context.Context) (domain.Settings, error) {
	return s.Current(), nil
}
