package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// GenericErrorResponse is the body of every JSON error.
type GenericErrorResponse struct {
	Error       string `json:"error"`
	Remediation string `json:"remediation,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, GenericErrorResponse{Error: message})
}

// errorStatus maps service errors to HTTP statuses.
func errorStatus(err error) int {
	var apiErr *domain.ProviderAPIError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, content.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateSlug), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrProviderNotConfigured), errors.Is(err, domain.ErrSyncNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrProxyActivationRequired),
		errors.Is(err, domain.ErrInvalidResponseFormat),
		errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs unexpected failures and writes the mapped status.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	resp := GenericErrorResponse{Error: err.Error()}
	var proxyErr *domain.ProxyActivationError
	if errors.As(err, &proxyErr) {
		resp.Remediation = proxyErr.Remediation
	}
	if status == http.StatusInternalServerError {
		resp.Error = "Internal server error"
	}
	writeJSON(w, status, resp)
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			jsonError(w, "Request body is empty", http.StatusBadRequest)
			return false
		}
		jsonError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		jsonError(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
