package domain

// Settings is the single configuration document of the site. It is always
// read and written whole.
type Settings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	HeroTitle       string `json:"heroTitle"`
	HeroSubtitle    string `json:"heroSubtitle"`
	AboutContent    string `json:"aboutContent"`
	PrivacyContent  string `json:"privacyContent"`
	TermsContent    string `json:"termsContent"`
	ContactEmail    string `json:"contactEmail"`
	Theme           Theme  `json:"theme"`

	// Admin credentials are stored as entered. A bcrypt hash is accepted too.
	AdminUsername string `json:"adminUsername"`
	AdminPassword string `json:"adminPassword"`

	Twilio     TwilioCredentials     `json:"twilio"`
	SignalWire SignalWireCredentials `json:"signalwire"`

	PublicNumbers  []PhoneNumber             `json:"publicNumbers"`
	NumberSettings map[string]NumberOverride `json:"numberSettings"`

	Ads         AdSlots      `json:"ads"`
	FooterLinks []FooterLink `json:"footerLinks"`
	BlogPosts   []BlogPost   `json:"blogPosts"`
	CustomPages []CustomPage `json:"customPages"`

	Gist GistConfig `json:"gist"`
}

// Theme selects the site colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type TwilioCredentials struct {
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
}

type SignalWireCredentials struct {
	ProjectID string `json:"projectId"`
	APIToken  string `json:"apiToken"`
	SpaceURL  string `json:"spaceUrl"`
}

// AdSlots holds raw HTML snippets injected into fixed page positions.
type AdSlots struct {
	Header    string `json:"header"`
	Sidebar   string `json:"sidebar"`
	InContent string `json:"inContent"`
	Footer    string `json:"footer"`
}

type FooterLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// GistConfig points at the GitHub gist used to import/export the document.
type GistConfig struct {
	ID       string `json:"id"`
	Token    string `json:"token"`
	FileName string `json:"fileName"`
}

// PublicNumberByID returns the index of the public number with id, or -1.
func (s *Settings) PublicNumberByID(id string) int {
	for i, n := range s.PublicNumbers {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// PublicNumberByValue returns the public number whose number string is value.
func (s *Settings) PublicNumberByValue(value string) (PhoneNumber, bool) {
	for _, n := range s.PublicNumbers {
		if n.Number == value {
			return n, true
		}
	}
	return PhoneNumber{}, false
}
