package provider

import (
	"context"
	"strings"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// SettingsLoader supplies the current settings document. Credentials are
// read through it on every call so admin edits apply immediately.
type SettingsLoader interface {
	Load(ctx context.Context) (domain.Settings, error)
}

// NumberSource is a telephony provider that rents inbound numbers.
type NumberSource interface {
	Name() domain.ProviderName
	// Configured reports whether settings carry usable credentials.
	Configured(settings domain.Settings) bool
	// ListOwnedNumbers returns an empty list when credentials are missing.
	ListOwnedNumbers(ctx context.Context) ([]domain.PhoneNumber, error)
	// GetNumberByValue returns nil when the number is not owned or credentials are missing.
	GetNumberByValue(ctx context.Context, value string) (*domain.PhoneNumber, error)
	// ListMessages returns domain.ErrProviderNotConfigured when credentials are missing.
	ListMessages(ctx context.Context, number string) ([]domain.SMSMessage, error)
}

// WebhookLogSource exposes provider-side webhook delivery alerts.
type WebhookLogSource interface {
	ListWebhookLogs(ctx context.Context) ([]domain.WebhookLog, error)
}

const placeholderPrefix = "YOUR_"

// credentialsSet is false when any value is empty or a YOUR_… placeholder.
func credentialsSet(values ...string) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || strings.HasPrefix(strings.ToUpper(v), placeholderPrefix) {
			return false
		}
	}
	return true
}
