package domain

import "time"

// ProviderName tags where a phone number lives.
type ProviderName string

const (
	ProviderTwilio     ProviderName = "twilio"
	ProviderSignalWire ProviderName = "signalwire"
	ProviderDemo       ProviderName = "demo"
)

// EpochActivity marks a number whose last message time is unknown.
var EpochActivity = time.Unix(0, 0).UTC()

// PhoneNumber is a rented number, either discovered live from a provider or
// persisted in Settings.PublicNumbers.
type PhoneNumber struct {
	ID            string       `json:"id"` // provider-assigned
	Number        string       `json:"number"`
	Country       string       `json:"country"`
	CountryCode   string       `json:"countryCode"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastMessageAt time.Time    `json:"lastMessageAt"`
	WebhookURL    string       `json:"webhookUrl,omitempty"`
	Enabled       bool         `json:"enabled"`
	Provider      ProviderName `json:"provider"`
}

// NumberOverride holds per-number display overrides kept in Settings.NumberSettings.
// Empty strings and a nil Enabled mean "not overridden".
type NumberOverride struct {
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// IsZero reports whether the override carries no values.
func (o NumberOverride) IsZero() bool {
	return o.Country == "" && o.CountryCode == "" && o.Enabled == nil
}
