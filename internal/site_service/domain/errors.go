package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateSlug indicates a slug already used within its collection.
	ErrDuplicateSlug = errors.New("slug already in use")
	// ErrValidation indicates input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned by a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrConflict indicates an operation invalid in the resource's current state.
	ErrConflict = errors.New("conflicting state")
	// ErrRateLimited indicates too many login attempts.
	ErrRateLimited = errors.New("too many attempts, try again later")

	// ErrProviderNotConfigured means provider credentials are missing or still placeholders.
	ErrProviderNotConfigured = errors.New("provider credentials are not configured; set them in the admin settings")
	// ErrProxyActivationRequired means the CORS proxy answered with its activation page.
	ErrProxyActivationRequired = errors.New("the CORS proxy requires manual activation")
	// ErrInvalidResponseFormat means a success response was not valid JSON.
	ErrInvalidResponseFormat = errors.New("provider returned data in an invalid format")

	// ErrSyncNotConfigured means the gist id or token is missing.
	ErrSyncNotConfigured = errors.New("gist sync is not configured")
)

// ProviderAPIError is a non-2xx answer from a telephony provider.
type ProviderAPIError struct {
	Provider   ProviderName
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderAPIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s API error (status %d, code %d): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// ProxyActivationError carries the remediation text shown to the admin.
type ProxyActivationError struct {
	ProxyURL    string
	Remediation string
}

func (e *ProxyActivationError) Error() string {
	return ErrProxyActivationRequired.Error() + ": " + e.Remediation
}

func (e *ProxyActivationError) Unwrap() error { return ErrProxyActivationRequired }
