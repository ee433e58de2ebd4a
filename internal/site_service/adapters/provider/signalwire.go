package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// SignalWire reads numbers and messages from a SignalWire space through its
// Twilio-compatible LaML API.
type SignalWire struct {
	logger        *slog.Logger
	client        *Client
	settings      SettingsLoader
	activityLimit int
}

func NewSignalWire(logger *slog.Logger, client *Client, settings SettingsLoader, activityLimit int) *SignalWire {
	if activityLimit <= 0 {
		activityLimit = 8
	}
	return &SignalWire{
		logger:        logger.With("provider", domain.ProviderSignalWire),
		client:        client,
		settings:      settings,
		activityLimit: activityLimit,
	}
}

type lamlPage struct {
	IncomingPhoneNumbers []twilioNumber  `json:"incoming_phone_numbers"`
	Messages             []twilioMessage `json:"messages"`
	NextPageURI          string          `json:"next_page_uri"`
}

func (s *SignalWire) Name() domain.ProviderName { return domain.ProviderSignalWire }

func (s *SignalWire) Configured(st domain.Settings) bool {
	return credentialsSet(st.SignalWire.ProjectID, st.SignalWire.APIToken, st.SignalWire.SpaceURL)
}

func (s *SignalWire) credentials(ctx context.Context) (domain.SignalWireCredentials, bool, error) {
	st, err := s.settings.Load(ctx)
	if err != nil {
		return domain.SignalWireCredentials{}, false, fmt.Errorf("loading signalwire credentials: %w", err)
	}
	return st.SignalWire, s.Configured(st), nil
}

// spaceBase turns "example.signalwire.com" or a full URL into a scheme+host.
func spaceBase(space string) string {
	space = strings.TrimRight(strings.TrimSpace(space), "/")
	if !strings.HasPrefix(space, "http://") && !strings.HasPrefix(space, "https://") {
		space = "https://" + space
	}
	return space
}

func (s *SignalWire) resourceURL(creds domain.SignalWireCredentials, resource string, query url.Values) string {
	u := fmt.Sprintf("%s/api/laml/%s/Accounts/%s/%s.json", spaceBase(creds.SpaceURL), twilioAPIVersion, url.PathEscape(creds.ProjectID), resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// drain follows next_page_uri until it is absent. A page pointer seen twice
// ends the walk.
func (s *SignalWire) drain(ctx context.Context, creds domain.SignalWireCredentials, resource, target string, visit func(*lamlPage)) error {
	seen := make(map[string]bool)
	for target != "" {
		if seen[target] {
			s.logger.WarnContext(ctx, "SignalWire repeated a page pointer, stopping pagination", "resource", resource, "url", target)
			return nil
		}
		seen[target] = true

		var page lamlPage
		if err := s.client.getJSON(ctx, domain.ProviderSignalWire, resource, target, creds.ProjectID, creds.APIToken, &page); err != nil {
			return err
		}
		visit(&page)

		if page.NextPageURI == "" {
			return nil
		}
		target = spaceBase(creds.SpaceURL) + "/" + strings.TrimLeft(page.NextPageURI, "/")
	}
	return nil
}

func (s *SignalWire) ListOwnedNumbers(ctx context.Context) ([]domain.PhoneNumber, error) {
	creds, ok, err := s.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "SignalWire credentials not configured, returning no numbers")
		return []domain.PhoneNumber{}, nil
	}

	numbers := []domain.PhoneNumber{}
	err = s.drain(ctx, creds, "IncomingPhoneNumbers", s.resourceURL(creds, "IncomingPhoneNumbers", nil), func(p *lamlPage) {
		for _, n := range p.IncomingPhoneNumbers {
			numbers = append(numbers, s.toPhoneNumber(n))
		}
	})
	if err != nil {
		return nil, err
	}

	mapper := iter.Mapper[domain.PhoneNumber, domain.PhoneNumber]{MaxGoroutines: s.activityLimit}
	return mapper.Map(numbers, func(n *domain.PhoneNumber) domain.PhoneNumber {
		out := *n
		out.LastMessageAt = s.lastActivity(ctx, creds, n.Number)
		return out
	}), nil
}

func (s *SignalWire) GetNumberByValue(ctx context.Context, value string) (*domain.PhoneNumber, error) {
	creds, ok, err := s.credentials(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var found *domain.PhoneNumber
	target := s.resourceURL(creds, "IncomingPhoneNumbers", url.Values{"PhoneNumber": {value}})
	err = s.drain(ctx, creds, "IncomingPhoneNumbers", target, func(p *lamlPage) {
		for _, n := range p.IncomingPhoneNumbers {
			if found == nil && n.PhoneNumber == value {
				pn := s.toPhoneNumber(n)
				found = &pn
			}
		}
	})
	if err != nil || found == nil {
		return nil, err
	}
	found.LastMessageAt = s.lastActivity(ctx, creds, found.Number)
	return found, nil
}

func (s *SignalWire) ListMessages(ctx context.Context, number string) ([]domain.SMSMessage, error) {
	creds, ok, err := s.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProviderNotConfigured
	}

	out := []domain.SMSMessage{}
	target := s.resourceURL(creds, "Messages", url.Values{"To": {number}, "PageSize": {"50"}})
	err = s.drain(ctx, creds, "Messages", target, func(p *lamlPage) {
		for _, m := range p.Messages {
			out = append(out, toSMSMessage(m.SID, m.From, m.To, m.Body, m.DateSent, m.DateCreated))
		}
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *SignalWire) lastActivity(ctx context.Context, creds domain.SignalWireCredentials, number string) time.Time {
	var page lamlPage
	target := s.resourceURL(creds, "Messages", url.Values{"To": {number}, "PageSize": {"1"}})
	if err := s.client.getJSON(ctx, domain.ProviderSignalWire, "Messages", target, creds.ProjectID, creds.APIToken, &page); err != nil {
		s.logger.WarnContext(ctx, "Failed to read last activity", "number", number, "error", err)
		return domain.EpochActivity
	}
	if len(page.Messages) == 0 {
		return domain.EpochActivity
	}
	m := page.Messages[0]
	return toSMSMessage(m.SID, m.From, m.To, m.Body, m.DateSent, m.DateCreated).ReceivedAt
}

func (s *SignalWire) toPhoneNumber(n twilioNumber) domain.PhoneNumber {
	name, iso := CountryForNumber(n.PhoneNumber)
	return domain.PhoneNumber{
		ID:            n.SID,
		Number:        n.PhoneNumber,
		Country:       name,
		CountryCode:   iso,
		CreatedAt:     parseProviderTime(n.DateCreated),
		LastMessageAt: domain.EpochActivity,
		WebhookURL:    n.SMSURL,
		Enabled:       true,
		Provider:      domain.ProviderSignalWire,
	}
}
