package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// AuthGateConfig tunes the login flow.
type AuthGateConfig struct {
	LoginDelay        time.Duration
	RememberFor       time.Duration
	AttemptsPerMinute int
}

// AuthGate checks admin credentials held in the settings document and
// manages session markers.
type AuthGate struct {
	store       *SettingsStore
	logger      *slog.Logger
	delay       time.Duration
	rememberFor time.Duration
	limiter     *rate.Limiter
	now         func() time.Time
}

func NewAuthGate(store *SettingsStore, cfg AuthGateConfig, logger *slog.Logger) *AuthGate {
	limit := rate.Inf
	burst := 0
	if cfg.AttemptsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.AttemptsPerMinute))
		burst = cfg.AttemptsPerMinute
	}
	if cfg.RememberFor <= 0 {
		cfg.RememberFor = 30 * 24 * time.Hour
	}
	return &AuthGate{
		store:       store,
		logger:      logger.With("component", "auth_gate"),
		delay:       cfg.LoginDelay,
		rememberFor: cfg.RememberFor,
		limiter:     rate.NewLimiter(limit, burst),
		now:         time.Now,
	}
}

// Session binds the gate to one client's marker stores.
func (g *AuthGate) Session(durable, volatile domain.MarkerStore) *AuthSession {
	return &AuthSession{gate: g, durable: durable, volatile: volatile}
}

// UpdateCredentials replaces the admin username and password.
func (g *AuthGate) UpdateCredentials(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	err := g.store.Update(ctx, func(s *domain.Settings) error {
		s.AdminUsername = username
		s.AdminPassword = password
		return nil
	})
	if err != nil {
		return err
	}
	g.logger.InfoContext(ctx, "Admin credentials updated", "username", username)
	return nil
}

func credentialsMatch(s domain.Settings, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(s.AdminUsername), []byte(username)) == 1
	var passOK bool
	if isBcryptHash(s.AdminPassword) {
		passOK = bcrypt.CompareHashAndPassword([]byte(s.AdminPassword), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(s.AdminPassword), []byte(password)) == 1
	}
	return userOK && passOK
}

func isBcryptHash(v string) bool {
	return len(v) == 60 && (strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$"))
}

// AuthSession is the auth state of one client.
type AuthSession struct {
	gate     *AuthGate
	durable  domain.MarkerStore
	volatile domain.MarkerStore
}

// Login waits the configured delay, then checks the credentials. On success
// the previous markers are cleared and a new one is written to the durable
// store when rememberMe is set, otherwise to the volatile store.
func (a *AuthSession) Login(ctx context.Context, username, password string, rememberMe bool) (bool, error) {
	g := a.gate
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	if !g.limiter.Allow() {
		loginAttemptsCounter.WithLabelValues("rate_limited").Inc()
		g.logger.WarnContext(ctx, "Login rate limited", "username", username)
		return false, domain.ErrRateLimited
	}

	s, err := g.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if !credentialsMatch(s, username, password) {
		loginAttemptsCounter.WithLabelValues("invalid").Inc()
		g.logger.InfoContext(ctx, "Login rejected", "username", username)
		return false, nil
	}

	if err := a.clear(ctx); err != nil {
		return false, err
	}
	marker := domain.SessionMarker{IsAuthenticated: true}
	store := a.volatile
	if rememberMe {
		expires := g.now().Add(g.rememberFor).UnixMilli()
		marker.ExpiresAt = &expires
		store = a.durable
	}
	if err := store.Set(ctx, marker); err != nil {
		return false, fmt.Errorf("writing session marker: %w", err)
	}

	loginAttemptsCounter.WithLabelValues("success").Inc()
	g.logger.InfoContext(ctx, "Admin logged in", "username", username, "remember_me", rememberMe)
	return true, nil
}

// IsAuthenticated checks the durable marker first, deleting it once
// expired, then the volatile marker.
func (a *AuthSession) IsAuthenticated(ctx context.Context) bool {
	g := a.gate
	m, err := a.durable.Get(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "Unreadable durable session marker", "error", err)
	}
	if m != nil && m.IsAuthenticated {
		if m.ExpiresAt == nil || g.now().UnixMilli() < *m.ExpiresAt {
			return true
		}
		if err := a.durable.Clear(ctx); err != nil {
			g.logger.WarnContext(ctx, "Failed to clear expired session marker", "error", err)
		}
	}

	v, err := a.volatile.Get(ctx)
	if err != nil {
		g.logger.WarnContext(ctx, "Unreadable volatile session marker", "error", err)
		return false
	}
	return v != nil && v.IsAuthenticated
}

// Logout clears both markers.
func (a *AuthSession) Logout(ctx context.Context) error {
	return a.clear(ctx)
}

func (a *AuthSession) clear(ctx context.Context) error {
	return errors.Join(a.durable.Clear(ctx), a.volatile.Clear(ctx))
}
