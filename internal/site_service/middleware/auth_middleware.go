package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthSessionContextKey = ContextKey("authSession")
)

// SessionForRequest binds gate to the marker cookies of r.
func SessionForRequest(gate *app.AuthGate, cfg CookieConfig, w http.ResponseWriter, r *http.Request) *app.AuthSession {
	durable, volatile := NewCookieMarkers(w, r, cfg)
	return gate.Session(durable, volatile)
}

// SessionFromContext returns the session stored by RequireAdmin.
func SessionFromContext(ctx context.Context) (*app.AuthSession, bool) {
	s, ok := ctx.Value(AuthSessionContextKey).(*app.AuthSession)
	return s, ok
}

// RequireAdmin rejects requests without a valid admin marker. With a
// non-empty redirectTo, browsers are sent there instead of getting a 401.
func RequireAdmin(gate *app.AuthGate, cfg CookieConfig, redirectTo string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionForRequest(gate, cfg, w, r)
			if !sess.IsAuthenticated(r.Context()) {
				logger.WarnContext(r.Context(), "Unauthenticated admin request", "path", r.URL.Path)
				if redirectTo != "" {
					http.Redirect(w, r, redirectTo, http.StatusSeeOther)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
				return
			}

			ctx := context.WithValue(r.Context(), AuthSessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
