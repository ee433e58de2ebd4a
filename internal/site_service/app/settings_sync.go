package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// GistClient is the remote store used for settings import and export.
type GistClient interface {
	Fetch(ctx context.Context, id, token, fileName string) ([]byte, error)
	Update(ctx context.Context, id, token, fileName string, content []byte) error
	Create(ctx context.Context, token, fileName string, content []byte) (string, error)
}

// SettingsSync copies the settings document to and from a GitHub gist.
type SettingsSync struct {
	store  *SettingsStore
	client GistClient
	logger *slog.Logger
}

func NewSettingsSync(store *SettingsStore, client GistClient, logger *slog.Logger) *SettingsSync {
	return &SettingsSync{store: store, client: client, logger: logger.With("component", "settings_sync")}
}

func fileNameOf(cfg domain.GistConfig) string {
	if cfg.FileName == "" {
		return DefaultSettings().Gist.FileName
	}
	return cfg.FileName
}

// Export uploads the document with the gist token removed. When no gist id
// is configured a new gist is created and its id saved locally.
func (s *SettingsSync) Export(ctx context.Context) (string, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	cfg := settings.Gist
	if cfg.Token == "" {
		return "", fmt.Errorf("%w: a GitHub token is required", domain.ErrSyncNotConfigured)
	}

	redacted := settings
	redacted.Gist.Token = ""
	raw, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding settings for export: %w", err)
	}

	fileName := fileNameOf(cfg)
	if cfg.ID != "" {
		if err := s.client.Update(ctx, cfg.ID, cfg.Token, fileName, raw); err != nil {
			return "", fmt.Errorf("exporting settings: %w", err)
		}
		s.logger.InfoContext(ctx, "Settings exported", "gist_id", cfg.ID, "bytes", len(raw))
		return cfg.ID, nil
	}

	id, err := s.client.Create(ctx, cfg.Token, fileName, raw)
	if err != nil {
		return "", fmt.Errorf("creating settings gist: %w", err)
	}
	err = s.store.Update(ctx, func(doc *domain.Settings) error {
		doc.Gist.ID = id
		doc.Gist.FileName = fileName
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Settings exported to new gist", "gist_id", id, "bytes", len(raw))
	return id, nil
}

// Import replaces the local document with the gist copy. The local gist
// configuration is kept, so an imported document never drops the token.
func (s *SettingsSync) Import(ctx context.Context) error {
	local, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	cfg := local.Gist
	if cfg.ID == "" {
		return fmt.Errorf("%w: a gist id is required", domain.ErrSyncNotConfigured)
	}

	raw, err := s.client.Fetch(ctx, cfg.ID, cfg.Token, fileNameOf(cfg))
	if err != nil {
		return fmt.Errorf("importing settings: %w", err)
	}
	imported, err := DecodeSettings(raw)
	if err != nil {
		return fmt.Errorf("%w: gist does not hold a settings document: %v", domain.ErrValidation, err)
	}
	imported.Gist = cfg

	if err := s.store.Save(ctx, imported); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Settings imported", "gist_id", cfg.ID, "bytes", len(raw))
	return nil
}
