package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

const (
	// DurableCookieName carries a "remember me" marker until its expiry.
	DurableCookieName = "sms_admin_session"
	// VolatileCookieName is a browser-session cookie.
	VolatileCookieName = "sms_admin_session_tmp"
)

// DefaultVolatileTTL bounds a volatile marker when CookieConfig leaves it unset.
const DefaultVolatileTTL = 12 * time.Hour

// CookieConfig configures the signed marker cookies. Volatile markers carry an
// exp claim VolatileTTL after they are written.
type CookieConfig struct {
	Secret      []byte
	Secure      bool
	VolatileTTL time.Duration
}

// CookieMarkerStore keeps a session marker in one cookie as an HS256 JWT.
// Writes are visible to later reads within the same request.
type CookieMarkerStore struct {
	name    string
	durable bool
	cfg     CookieConfig
	w       http.ResponseWriter
	r       *http.Request

	written bool
	pending *domain.SessionMarker
}

// NewCookieMarkers returns the durable and volatile stores of one request.
func NewCookieMarkers(w http.ResponseWriter, r *http.Request, cfg CookieConfig) (durable, volatile *CookieMarkerStore) {
	durable = &CookieMarkerStore{name: DurableCookieName, durable: true, cfg: cfg, w: w, r: r}
	volatile = &CookieMarkerStore{name: VolatileCookieName, cfg: cfg, w: w, r: r}
	return durable, volatile
}

func (s *CookieMarkerStore) Get(_ context.Context) (*domain.SessionMarker, error) {
	if s.written {
		if s.pending == nil {
			return nil, nil
		}
		m := *s.pending
		return &m, nil
	}

	c, err := s.r.Cookie(s.name)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(c.Value, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid %s cookie: %w", s.name, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid %s cookie claims", s.name)
	}

	m := &domain.SessionMarker{}
	m.IsAuthenticated, _ = claims["auth"].(bool)
	if v, ok := claims["expires_at"].(float64); ok {
		expires := int64(v)
		m.ExpiresAt = &expires
	}
	return m, nil
}

func (s *CookieMarkerStore) Set(_ context.Context, marker domain.SessionMarker) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"auth": marker.IsAuthenticated,
		"iat":  now.Unix(),
	}
	if marker.ExpiresAt != nil {
		claims["expires_at"] = *marker.ExpiresAt
	}
	if !s.durable {
		ttl := s.cfg.VolatileTTL
		if ttl <= 0 {
			ttl = DefaultVolatileTTL
		}
		claims["exp"] = now.Add(ttl).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return fmt.Errorf("signing session marker: %w", err)
	}

	cookie := &http.Cookie{
		Name:     s.name,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.durable && marker.ExpiresAt != nil {
		cookie.Expires = time.UnixMilli(*marker.ExpiresAt).UTC()
	}
	http.SetCookie(s.w, cookie)

	m := marker
	s.written, s.pending = true, &m
	return nil
}

func (s *CookieMarkerStore) Clear(_ context.Context) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.written, s.pending = true, nil
	return nil
}
