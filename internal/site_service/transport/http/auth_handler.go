package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
	"github.com/aradsms/sms_inbox_site/internal/site_service/middleware"
)

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	gate     *app.AuthGate
	cookies  middleware.CookieConfig
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthHandler(gate *app.AuthGate, cookies middleware.CookieConfig, validate *validator.Validate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		gate:     gate,
		cookies:  cookies,
		validate: validate,
		logger:   logger.With("handler", "auth"),
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sess := middleware.SessionForRequest(h.gate, h.cookies, w, r)
	ok, err := sess.Login(r.Context(), req.Username, req.Password, req.RememberMe)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if !ok {
		writeServiceError(w, r, h.logger, domain.ErrInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.SessionForRequest(h.gate, h.cookies, w, r).Logout(r.Context()); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionForRequest(h.gate, h.cookies, w, r)
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: sess.IsAuthenticated(r.Context())})
}
