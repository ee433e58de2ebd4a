package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// InboxService reads live messages for public numbers.
type InboxService struct {
	settings  provider.SettingsLoader
	providers []provider.NumberSource
	logs      provider.WebhookLogSource
	logger    *slog.Logger
	now       func() time.Time
}

func NewInboxService(settings provider.SettingsLoader, providers []provider.NumberSource, logs provider.WebhookLogSource, logger *slog.Logger) *InboxService {
	return &InboxService{
		settings:  settings,
		providers: providers,
		logs:      logs,
		logger:    logger.With("component", "inbox_service"),
		now:       time.Now,
	}
}

// PublicNumber resolves value to an enabled public number, with the
// per-number override applied.
func (s *InboxService) PublicNumber(ctx context.Context, value string) (domain.PhoneNumber, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return domain.PhoneNumber{}, err
	}
	num, ok := settings.PublicNumberByValue(value)
	if !ok {
		return domain.PhoneNumber{}, fmt.Errorf("number %s: %w", value, domain.ErrNotFound)
	}
	o := settings.NumberSettings[num.ID]
	if o.Country != "" {
		num.Country = o.Country
	}
	if o.CountryCode != "" {
		num.CountryCode = o.CountryCode
	}
	if o.Enabled != nil {
		num.Enabled = *o.Enabled
	}
	if !num.Enabled {
		return domain.PhoneNumber{}, fmt.Errorf("number %s is disabled: %w", value, domain.ErrNotFound)
	}
	return num, nil
}

// Messages returns the inbox of a public number, newest first. The provider
// tag picks the adapter; untagged numbers are looked up by value.
func (s *InboxService) Messages(ctx context.Context, value string) ([]domain.SMSMessage, error) {
	num, err := s.PublicNumber(ctx, value)
	if err != nil {
		return nil, err
	}
	if num.Provider == domain.ProviderDemo {
		return demoMessages(num.Number, s.now()), nil
	}

	src, err := s.sourceFor(ctx, num)
	if err != nil {
		return nil, err
	}
	msgs, err := src.ListMessages(ctx, num.Number)
	if err != nil {
		inboxFetchesCounter.WithLabelValues(string(src.Name()), "error").Inc()
		s.logger.WarnContext(ctx, "Failed to fetch messages", "number", num.Number, "provider", src.Name(), "error", err)
		return nil, err
	}
	inboxFetchesCounter.WithLabelValues(string(src.Name()), "ok").Inc()
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ReceivedAt.After(msgs[j].ReceivedAt) })
	return msgs, nil
}

func (s *InboxService) sourceFor(ctx context.Context, num domain.PhoneNumber) (provider.NumberSource, error) {
	for _, p := range s.providers {
		if p.Name() == num.Provider {
			return p, nil
		}
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	var lookupErr error
	for _, p := range s.providers {
		if !p.Configured(settings) {
			continue
		}
		found, err := p.GetNumberByValue(ctx, num.Number)
		if err != nil {
			lookupErr = errors.Join(lookupErr, err)
			continue
		}
		if found != nil {
			return p, nil
		}
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, domain.ErrProviderNotConfigured
}

// WebhookLogs returns provider webhook alerts for the admin console.
func (s *InboxService) WebhookLogs(ctx context.Context) ([]domain.WebhookLog, error) {
	if s.logs == nil {
		return nil, domain.ErrProviderNotConfigured
	}
	return s.logs.ListWebhookLogs(ctx)
}

func demoMessages(number string, now time.Time) []domain.SMSMessage {
	now = now.UTC().Truncate(time.Minute)
	return []domain.SMSMessage{
		{ID: "demo-3", From: "+15550000003", To: number, Body: "Your verification code is 481516.", ReceivedAt: now.Add(-2 * time.Minute)},
		{ID: "demo-2", From: "ExampleApp", To: number, Body: "Welcome! Reply STOP to unsubscribe.", ReceivedAt: now.Add(-17 * time.Minute)},
		{ID: "demo-1", From: "+15550000001", To: number, Body: "This is a demo number. Connect a provider in the admin panel to see real messages.", ReceivedAt: now.Add(-3 * time.Hour)},
	}
}

// RefreshEvent is emitted by InboxRefresher. Kind is "tick" while counting
// down, then "messages" or "error" after a fetch.
type RefreshEvent struct {
	Kind        string              `json:"kind"`
	SecondsLeft int                 `json:"secondsLeft"`
	Messages    []domain.SMSMessage `json:"messages,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// InboxRefresher re-fetches an inbox on a fixed countdown. Reset forces an
// immediate fetch and restarts the countdown. Failed fetches are reported
// and not retried before the next tick or reset.
type InboxRefresher struct {
	fetch    func(ctx context.Context) ([]domain.SMSMessage, error)
	interval time.Duration
	tick     time.Duration
	reset    chan struct{}
	events   chan RefreshEvent
}

func NewInboxRefresher(fetch func(ctx context.Context) ([]domain.SMSMessage, error), interval time.Duration) *InboxRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &InboxRefresher{
		fetch:    fetch,
		interval: interval,
		tick:     time.Second,
		reset:    make(chan struct{}, 1),
		events:   make(chan RefreshEvent),
	}
}

// Events is closed when Run returns.
func (r *InboxRefresher) Events() <-chan RefreshEvent { return r.events }

// Reset requests an immediate re-fetch.
func (r *InboxRefresher) Reset() {
	select {
	case r.reset <- struct{}{}:
	default:
	}
}

// Run fetches once, then counts down until ctx is done.
func (r *InboxRefresher) Run(ctx context.Context) {
	defer close(r.events)

	ticks := max(1, int(r.interval/r.tick))
	if !r.fetchAndEmit(ctx, ticks) {
		return
	}
	remaining := ticks
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.reset:
			ticker.Reset(r.tick)
			remaining = ticks
			if !r.fetchAndEmit(ctx, ticks) {
				return
			}
		case <-ticker.C:
			remaining--
			if remaining > 0 {
				if !r.emit(ctx, RefreshEvent{Kind: "tick", SecondsLeft: remaining}) {
					return
				}
				continue
			}
			remaining = ticks
			if !r.fetchAndEmit(ctx, ticks) {
				return
			}
		}
	}
}

func (r *InboxRefresher) fetchAndEmit(ctx context.Context, ticks int) bool {
	msgs, err := r.fetch(ctx)
	if err != nil {
		return r.emit(ctx, RefreshEvent{Kind: "error", SecondsLeft: ticks, Error: err.Error()})
	}
	return r.emit(ctx, RefreshEvent{Kind: "messages", SecondsLeft: ticks, Messages: msgs})
}

func (r *InboxRefresher) emit(ctx context.Context, ev RefreshEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
