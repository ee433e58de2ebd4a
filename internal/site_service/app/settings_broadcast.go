package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// Publisher sends raw payloads on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Subscriber delivers raw payloads for a subject until the returned func
// is called.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func() error, error)
}

type settingsSavedEvent struct {
	Origin  string    `json:"origin"`
	SavedAt time.Time `json:"savedAt"`
}

type remoteReloadKey struct{}

// SettingsBroadcaster tells other instances sharing the same storage that
// the document changed, and reloads the local store when they say so.
type SettingsBroadcaster struct {
	store     *SettingsStore
	publisher Publisher
	subject   string
	origin    string
	logger    *slog.Logger
}

func NewSettingsBroadcaster(store *SettingsStore, publisher Publisher, subject string, logger *slog.Logger) *SettingsBroadcaster {
	return &SettingsBroadcaster{
		store:     store,
		publisher: publisher,
		subject:   subject,
		origin:    uuid.NewString(),
		logger:    logger.With("component", "settings_broadcast"),
	}
}

// SettingsChanged publishes a saved event. Reloads triggered by a remote
// event are not re-published.
func (b *SettingsBroadcaster) SettingsChanged(ctx context.Context, _ domain.Settings) {
	if remote, _ := ctx.Value(remoteReloadKey{}).(bool); remote {
		return
	}
	data, err := json.Marshal(settingsSavedEvent{Origin: b.origin, SavedAt: time.Now().UTC()})
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to encode settings event", "error", err)
		return
	}
	if err := b.publisher.Publish(ctx, b.subject, data); err != nil {
		settingsBroadcastCounter.WithLabelValues("publish_error").Inc()
		b.logger.WarnContext(ctx, "Failed to broadcast settings change", "error", err)
		return
	}
	settingsBroadcastCounter.WithLabelValues("out").Inc()
}

// Listen reloads the store on events from other instances. The returned
// func unsubscribes.
func (b *SettingsBroadcaster) Listen(ctx context.Context, sub Subscriber) (func() error, error) {
	return sub.Subscribe(b.subject, func(data []byte) {
		var ev settingsSavedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.WarnContext(ctx, "Ignoring malformed settings event", "error", err)
			return
		}
		if ev.Origin == b.origin {
			return
		}
		settingsBroadcastCounter.WithLabelValues("in").Inc()
		if _, err := b.store.Reload(context.WithValue(ctx, remoteReloadKey{}, true)); err != nil {
			b.logger.ErrorContext(ctx, "Failed to reload settings after remote change", "origin", ev.Origin, "error", err)
			return
		}
		b.logger.InfoContext(ctx, "Settings reloaded after remote change", "origin", ev.Origin)
	})
}
