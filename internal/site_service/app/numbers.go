package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// ProviderError reports a provider whose listing failed during
// reconciliation.
type ProviderError struct {
	Provider domain.ProviderName `json:"provider"`
	Message  string              `json:"message"`
}

// Reconciliation is the merged view of persisted public numbers and live
// provider data. FromCache is set when every configured provider failed and
// Numbers is the persisted list as is.
type Reconciliation struct {
	Numbers        []domain.PhoneNumber `json:"numbers"`
	AvailableToAdd []domain.PhoneNumber `json:"availableToAdd"`
	FromCache      bool                 `json:"fromCache"`
	ProviderErrors []ProviderError      `json:"providerErrors,omitempty"`
}

// NumberService merges provider data into the public number list and
// edits that list.
type NumberService struct {
	store     *SettingsStore
	providers []provider.NumberSource
	logger    *slog.Logger
}

func NewNumberService(store *SettingsStore, providers []provider.NumberSource, logger *slog.Logger) *NumberService {
	return &NumberService{
		store:     store,
		providers: providers,
		logger:    logger.With("component", "number_service"),
	}
}

// Reconcile queries every configured provider concurrently. A failing
// provider contributes no live numbers and never fails the call; only a
// settings read error is returned.
func (n *NumberService) Reconcile(ctx context.Context) (Reconciliation, error) {
	start := time.Now()
	defer func() { reconcileDurationHist.Observe(time.Since(start).Seconds()) }()

	settings, err := n.store.Load(ctx)
	if err != nil {
		return Reconciliation{}, err
	}

	var configured []provider.NumberSource
	for _, p := range n.providers {
		if p.Configured(settings) {
			configured = append(configured, p)
		}
	}

	results := make([][]domain.PhoneNumber, len(configured))
	failures := make([]error, len(configured))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range configured {
		g.Go(func() error {
			nums, err := p.ListOwnedNumbers(gctx)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = nums
			return nil
		})
	}
	_ = g.Wait()

	rec := Reconciliation{AvailableToAdd: []domain.PhoneNumber{}}
	live := make(map[string]domain.PhoneNumber)
	var liveOrder []domain.PhoneNumber
	failed := 0
	for i, p := range configured {
		if failures[i] != nil {
			failed++
			reconcileProviderFailuresCounter.WithLabelValues(string(p.Name())).Inc()
			n.logger.WarnContext(ctx, "Provider listing failed, using persisted data", "provider", p.Name(), "error", failures[i])
			rec.ProviderErrors = append(rec.ProviderErrors, ProviderError{Provider: p.Name(), Message: failures[i].Error()})
			continue
		}
		for _, num := range results[i] {
			if _, dup := live[num.ID]; !dup {
				live[num.ID] = num
				liveOrder = append(liveOrder, num)
			}
		}
	}
	rec.FromCache = len(configured) > 0 && failed == len(configured)

	public := make(map[string]bool, len(settings.PublicNumbers))
	rec.Numbers = make([]domain.PhoneNumber, 0, len(settings.PublicNumbers))
	for _, persisted := range settings.PublicNumbers {
		public[persisted.ID] = true
		l, ok := live[persisted.ID]
		if !ok {
			// Kept as is even if the provider no longer lists it.
			rec.Numbers = append(rec.Numbers, persisted)
			continue
		}
		rec.Numbers = append(rec.Numbers, mergeNumber(persisted, l, settings.NumberSettings[persisted.ID]))
	}

	for _, l := range liveOrder {
		if !public[l.ID] {
			rec.AvailableToAdd = append(rec.AvailableToAdd, l)
		}
	}
	sort.SliceStable(rec.AvailableToAdd, func(i, j int) bool {
		return rec.AvailableToAdd[i].Number < rec.AvailableToAdd[j].Number
	})
	return rec, nil
}

// mergeNumber takes activity from the live record and display fields from
// the persisted record, then applies the per-number override.
func mergeNumber(persisted, live domain.PhoneNumber, o domain.NumberOverride) domain.PhoneNumber {
	out := live
	if persisted.Country != "" {
		out.Country = persisted.Country
	}
	if persisted.CountryCode != "" {
		out.CountryCode = persisted.CountryCode
	}
	out.Enabled = persisted.Enabled
	if out.WebhookURL == "" {
		out.WebhookURL = persisted.WebhookURL
	}

	if o.Country != "" {
		out.Country = o.Country
	}
	if o.CountryCode != "" {
		out.CountryCode = o.CountryCode
	}
	if o.Enabled != nil {
		out.Enabled = *o.Enabled
	}
	return out
}

// GetAvailableNumbers returns the merged public list.
func (n *NumberService) GetAvailableNumbers(ctx context.Context) ([]domain.PhoneNumber, error) {
	rec, err := n.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Numbers, nil
}

// AddPublicNumbers appends numbers whose id is not public yet and returns
// how many were added.
func (n *NumberService) AddPublicNumbers(ctx context.Context, numbers []domain.PhoneNumber) (int, error) {
	added := 0
	err := n.store.Update(ctx, func(s *domain.Settings) error {
		added = 0
		for _, num := range numbers {
			if num.ID == "" || num.Number == "" {
				return fmt.Errorf("%w: number id and value are required", domain.ErrValidation)
			}
			if s.PublicNumberByID(num.ID) >= 0 {
				continue
			}
			s.PublicNumbers = append(s.PublicNumbers, num)
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	n.logger.InfoContext(ctx, "Public numbers added", "requested", len(numbers), "added", added)
	return added, nil
}

// SeedDemoNumbers adds the demo set. Running it again adds nothing.
func (n *NumberService) SeedDemoNumbers(ctx context.Context) (int, error) {
	return n.AddPublicNumbers(ctx, DemoNumbers())
}

// UpdatePublicNumber replaces the public number with the same id.
func (n *NumberService) UpdatePublicNumber(ctx context.Context, num domain.PhoneNumber) error {
	return n.store.Update(ctx, func(s *domain.Settings) error {
		i := s.PublicNumberByID(num.ID)
		if i < 0 {
			return fmt.Errorf("public number %q: %w", num.ID, domain.ErrNotFound)
		}
		s.PublicNumbers[i] = num
		return nil
	})
}

// RemovePublicNumber drops the number and its override.
func (n *NumberService) RemovePublicNumber(ctx context.Context, id string) error {
	return n.store.Update(ctx, func(s *domain.Settings) error {
		i := s.PublicNumberByID(id)
		if i < 0 {
			return fmt.Errorf("public number %q: %w", id, domain.ErrNotFound)
		}
		s.PublicNumbers = append(s.PublicNumbers[:i:i], s.PublicNumbers[i+1:]...)
		delete(s.NumberSettings, id)
		return nil
	})
}

// ReorderPublicNumbers sets the display order. ids must name every public
// number exactly once.
func (n *NumberService) ReorderPublicNumbers(ctx context.Context, ids []string) error {
	return n.store.Update(ctx, func(s *domain.Settings) error {
		if len(ids) != len(s.PublicNumbers) {
			return fmt.Errorf("%w: reorder needs all %d public numbers", domain.ErrValidation, len(s.PublicNumbers))
		}
		reordered := make([]domain.PhoneNumber, 0, len(ids))
		used := make(map[string]bool, len(ids))
		for _, id := range ids {
			i := s.PublicNumberByID(id)
			if i < 0 || used[id] {
				return fmt.Errorf("%w: unknown or repeated number id %q", domain.ErrValidation, id)
			}
			used[id] = true
			reordered = append(reordered, s.PublicNumbers[i])
		}
		s.PublicNumbers = reordered
		return nil
	})
}

// SetNumberOverride stores display overrides for id. A zero override
// removes the entry.
func (n *NumberService) SetNumberOverride(ctx context.Context, id string, o domain.NumberOverride) error {
	if id == "" {
		return fmt.Errorf("%w: number id is required", domain.ErrValidation)
	}
	return n.store.Update(ctx, func(s *domain.Settings) error {
		if o.IsZero() {
			delete(s.NumberSettings, id)
			return nil
		}
		s.NumberSettings[id] = o
		return nil
	})
}

var demoCreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DemoNumbers is the fixed seed set shown before any provider is connected.
func DemoNumbers() []domain.PhoneNumber {
	demo := func(id, number, country, code string) domain.PhoneNumber {
		return domain.PhoneNumber{
			ID: id, Number: number, Country: country, CountryCode: code,
			CreatedAt: demoCreatedAt, LastMessageAt: domain.EpochActivity,
			Enabled: true, Provider: domain.ProviderDemo,
		}
	}
	return []domain.PhoneNumber{
		demo("demo-us-1", "+15555550101", "United States", "US"),
		demo("demo-us-2", "+15555550102", "United States", "US"),
		demo("demo-gb-1", "+447700900001", "United Kingdom", "GB"),
		demo("demo-ca-1", "+14165550103", "Canada", "CA"),
		demo("demo-de-1", "+4915550000104", "Germany", "DE"),
	}
}
