package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

const twilioAPIVersion = "2010-04-01"

// Twilio reads numbers, messages and alerts from the Twilio REST API.
type Twilio struct {
	logger        *slog.Logger
	client        *Client
	settings      SettingsLoader
	baseURL       string
	activityLimit int
}

func NewTwilio(logger *slog.Logger, client *Client, settings SettingsLoader, baseURL string, activityLimit int) *Twilio {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if activityLimit <= 0 {
		activityLimit = 8
	}
	return &Twilio{
		logger:        logger.With("provider", domain.ProviderTwilio),
		client:        client,
		settings:      settings,
		baseURL:       strings.TrimRight(baseURL, "/"),
		activityLimit: activityLimit,
	}
}

type twilioNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	DateCreated  string `json:"date_created"`
	SMSURL       string `json:"sms_url"`
}

type twilioNumberList struct {
	IncomingPhoneNumbers []twilioNumber `json:"incoming_phone_numbers"`
	NextPageURI          string         `json:"next_page_uri"`
}

type twilioMessage struct {
	SID         string `json:"sid"`
	From        string `json:"from"`
	To          string `json:"to"`
	Body        string `json:"body"`
	DateSent    string `json:"date_sent"`
	DateCreated string `json:"date_created"`
}

type twilioMessageList struct {
	Messages    []twilioMessage `json:"messages"`
	NextPageURI string          `json:"next_page_uri"`
}

type twilioAlert struct {
	SID         string `json:"sid"`
	DateCreated string `json:"date_created"`
	LogLevel    string `json:"log_level"`
	ErrorCode   string `json:"error_code"`
	AlertText   string `json:"alert_text"`
}

type twilioAlertList struct {
	Alerts []twilioAlert `json:"alerts"`
}

func (t *Twilio) Name() domain.ProviderName { return domain.ProviderTwilio }

func (t *Twilio) Configured(s domain.Settings) bool {
	return credentialsSet(s.Twilio.AccountSID, s.Twilio.AuthToken)
}

func (t *Twilio) credentials(ctx context.Context) (domain.TwilioCredentials, bool, error) {
	s, err := t.settings.Load(ctx)
	if err != nil {
		return domain.TwilioCredentials{}, false, fmt.Errorf("loading twilio credentials: %w", err)
	}
	return s.Twilio, t.Configured(s), nil
}

func (t *Twilio) resourceURL(creds domain.TwilioCredentials, resource string, query url.Values) string {
	u := fmt.Sprintf("%s/%s/Accounts/%s/%s.json", t.baseURL, twilioAPIVersion, url.PathEscape(creds.AccountSID), resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (t *Twilio) ListOwnedNumbers(ctx context.Context) ([]domain.PhoneNumber, error) {
	creds, ok, err := t.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		t.logger.DebugContext(ctx, "Twilio credentials not configured, returning no numbers")
		return []domain.PhoneNumber{}, nil
	}

	var list twilioNumberList
	target := t.resourceURL(creds, "IncomingPhoneNumbers", url.Values{"PageSize": {"1000"}})
	if err := t.client.getJSON(ctx, domain.ProviderTwilio, "IncomingPhoneNumbers", target, creds.AccountSID, creds.AuthToken, &list); err != nil {
		return nil, err
	}

	numbers := make([]domain.PhoneNumber, 0, len(list.IncomingPhoneNumbers))
	for _, n := range list.IncomingPhoneNumbers {
		numbers = append(numbers, t.toPhoneNumber(n))
	}
	return t.withActivity(ctx, creds, numbers), nil
}

func (t *Twilio) GetNumberByValue(ctx context.Context, value string) (*domain.PhoneNumber, error) {
	creds, ok, err := t.credentials(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var list twilioNumberList
	target := t.resourceURL(creds, "IncomingPhoneNumbers", url.Values{"PhoneNumber": {value}})
	if err := t.client.getJSON(ctx, domain.ProviderTwilio, "IncomingPhoneNumbers", target, creds.AccountSID, creds.AuthToken, &list); err != nil {
		return nil, err
	}
	for _, n := range list.IncomingPhoneNumbers {
		if n.PhoneNumber == value {
			pn := t.toPhoneNumber(n)
			pn.LastMessageAt = t.lastActivity(ctx, creds, pn.Number)
			return &pn, nil
		}
	}
	return nil, nil
}

func (t *Twilio) ListMessages(ctx context.Context, number string) ([]domain.SMSMessage, error) {
	creds, ok, err := t.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProviderNotConfigured
	}
	list, err := t.messages(ctx, creds, number, 50)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SMSMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		out = append(out, toSMSMessage(m.SID, m.From, m.To, m.Body, m.DateSent, m.DateCreated))
	}
	sortNewestFirst(out)
	return out, nil
}

func (t *Twilio) ListWebhookLogs(ctx context.Context) ([]domain.WebhookLog, error) {
	creds, ok, err := t.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProviderNotConfigured
	}

	var list twilioAlertList
	target := t.resourceURL(creds, "Alerts", url.Values{"PageSize": {"50"}})
	if err := t.client.getJSON(ctx, domain.ProviderTwilio, "Alerts", target, creds.AccountSID, creds.AuthToken, &list); err != nil {
		return nil, err
	}
	logs := make([]domain.WebhookLog, 0, len(list.Alerts))
	for _, a := range list.Alerts {
		logs = append(logs, domain.WebhookLog{
			ID:        a.SID,
			Timestamp: parseProviderTime(a.DateCreated),
			Level:     strings.ToLower(a.LogLevel),
			ErrorCode: a.ErrorCode,
			Message:   alertMessage(a.AlertText),
		})
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	return logs, nil
}

func (t *Twilio) messages(ctx context.Context, creds domain.TwilioCredentials, to string, pageSize int) (twilioMessageList, error) {
	var list twilioMessageList
	target := t.resourceURL(creds, "Messages", url.Values{"To": {to}, "PageSize": {fmt.Sprint(pageSize)}})
	err := t.client.getJSON(ctx, domain.ProviderTwilio, "Messages", target, creds.AccountSID, creds.AuthToken, &list)
	return list, err
}

// lastActivity is best effort: any failure or an empty inbox yields the epoch.
func (t *Twilio) lastActivity(ctx context.Context, creds domain.TwilioCredentials, number string) time.Time {
	list, err := t.messages(ctx, creds, number, 1)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to read last activity", "number", number, "error", err)
		return domain.EpochActivity
	}
	if len(list.Messages) == 0 {
		return domain.EpochActivity
	}
	m := list.Messages[0]
	return toSMSMessage(m.SID, m.From, m.To, m.Body, m.DateSent, m.DateCreated).ReceivedAt
}

func (t *Twilio) withActivity(ctx context.Context, creds domain.TwilioCredentials, numbers []domain.PhoneNumber) []domain.PhoneNumber {
	mapper := iter.Mapper[domain.PhoneNumber, domain.PhoneNumber]{MaxGoroutines: t.activityLimit}
	return mapper.Map(numbers, func(n *domain.PhoneNumber) domain.PhoneNumber {
		out := *n
		out.LastMessageAt = t.lastActivity(ctx, creds, n.Number)
		return out
	})
}

func (t *Twilio) toPhoneNumber(n twilioNumber) domain.PhoneNumber {
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
		Provider:      domain.ProviderTwilio,
	}
}

// alertMessage extracts the Msg field of a form-encoded alert text.
func alertMessage(text string) string {
	if values, err := url.ParseQuery(text); err == nil {
		if msg := values.Get("Msg"); msg != "" {
			return msg
		}
	}
	return text
}

func toSMSMessage(id, from, to, body, sent, created string) domain.SMSMessage {
	received := parseProviderTime(sent)
	if received.Equal(domain.EpochActivity) {
		received = parseProviderTime(created)
	}
	return domain.SMSMessage{ID: id, From: from, To: to, Body: body, ReceivedAt: received}
}

var providerTimeLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339Nano}

// parseProviderTime reads the RFC 2822 dates both providers emit. Unparseable
// or empty values map to the epoch.
func parseProviderTime(v string) time.Time {
	for _, layout := range providerTimeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC()
		}
	}
	return domain.EpochActivity
}

func sortNewestFirst(msgs []domain.SMSMessage) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ReceivedAt.After(msgs[j].ReceivedAt) })
}
