package app

import "github.com/aradsms/sms_inbox_site/internal/site_service/domain"

// Placeholder credentials shipped in the default document. Providers treat
// them as "not configured".
const (
	PlaceholderTwilioSID       = "YOUR_TWILIO_ACCOUNT_SID"
	PlaceholderTwilioToken     = "YOUR_TWILIO_AUTH_TOKEN"
	PlaceholderSignalWireID    = "YOUR_SIGNALWIRE_PROJECT_ID"
	PlaceholderSignalWireToken = "YOUR_SIGNALWIRE_API_TOKEN"
	PlaceholderSignalWireSpace = "YOUR_SPACE.signalwire.com"
)

// DefaultSettings returns the document used on first load and as the base
// that persisted documents are decoded over.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		SiteName:        "Receive SMS Online",
		SiteDescription: "Free temporary phone numbers to receive SMS online.",
		HeroTitle:       "Receive SMS Online",
		HeroSubtitle:    "Pick a number below and watch messages arrive in real time.",
		AboutContent:    "We provide free public phone numbers for receiving verification codes and test messages.",
		PrivacyContent:  "Messages sent to public numbers are visible to everyone. Do not use them for private accounts.",
		TermsContent:    "This service is provided as is, for testing and privacy purposes only.",
		ContactEmail:    "contact@example.com",
		Theme:           domain.ThemeLight,

		AdminUsername: "admin",
		AdminPassword: "admin123",

		Twilio: domain.TwilioCredentials{
			AccountSID: PlaceholderTwilioSID,
			AuthToken:  PlaceholderTwilioToken,
		},
		SignalWire: domain.SignalWireCredentials{
			ProjectID: PlaceholderSignalWireID,
			APIToken:  PlaceholderSignalWireToken,
			SpaceURL:  PlaceholderSignalWireSpace,
		},

		PublicNumbers:  []domain.PhoneNumber{},
		NumberSettings: map[string]domain.NumberOverride{},

		Ads: domain.AdSlots{
			Header:    "<!-- header ad slot -->",
			Sidebar:   "<!-- sidebar ad slot -->",
			InContent: "<!-- in-content ad slot -->",
			Footer:    "<!-- footer ad slot -->",
		},
		FooterLinks: []domain.FooterLink{
			{Label: "About", URL: "/about"},
			{Label: "Privacy", URL: "/privacy"},
			{Label: "Terms", URL: "/terms"},
			{Label: "Blog", URL: "/blog"},
		},
		BlogPosts:   []domain.BlogPost{},
		CustomPages: []domain.CustomPage{},

		Gist: domain.GistConfig{FileName: "sms-site-settings.json"},
	}
}
