package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// Markers of the activation page public CORS relays serve until a visitor
// opts in.
var proxyActivationMarkers = []string{
	"corsdemo",
	"request temporary access",
	"missing required request header",
	"see /corsdemo",
}

// Client performs authenticated GETs against provider REST APIs and
// classifies failures into domain errors.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	proxyURL   string
}

// NewClient returns a Client. proxyURL, when set, is prefixed to every
// request URL.
func NewClient(logger *slog.Logger, proxyURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "provider_client"),
		httpClient: httpClient,
		proxyURL:   proxyURL,
	}
}

// apiErrorBody covers the error shape shared by Twilio and SignalWire.
type apiErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// getJSON fetches target and decodes the body into out. An empty success
// body leaves out untouched.
func (c *Client) getJSON(ctx context.Context, provider domain.ProviderName, resource, target, user, pass string, out any) error {
	start := time.Now()
	defer func() {
		providerRequestDurationHist.WithLabelValues(string(provider), resource).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.proxyURL+target, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.SetBasicAuth(user, pass)
	req.Header.Set("Accept", "application/json")
	if c.proxyURL != "" {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		providerRequestErrorsCounter.WithLabelValues(string(provider), resource, "transport").Inc()
		c.logger.ErrorContext(ctx, "Provider request failed", "provider", provider, "resource", resource, "error", err)
		return fmt.Errorf("failed to send request to %s: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		providerRequestErrorsCounter.WithLabelValues(string(provider), resource, "transport").Inc()
		return fmt.Errorf("%s request failed (status %d), and failed to read response body: %w", provider, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := c.classify(provider, resp.StatusCode, body)
		kind := "api"
		if errors.Is(err, domain.ErrProxyActivationRequired) {
			kind = "proxy"
		}
		providerRequestErrorsCounter.WithLabelValues(string(provider), resource, kind).Inc()
		c.logger.WarnContext(ctx, "Provider returned an error", "provider", provider, "resource", resource, "status_code", resp.StatusCode, "error", err)
		return err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		providerRequestErrorsCounter.WithLabelValues(string(provider), resource, "format").Inc()
		c.logger.WarnContext(ctx, "Provider success body is not JSON", "provider", provider, "resource", resource, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponseFormat, err)
	}
	return nil
}

func (c *Client) classify(provider domain.ProviderName, status int, body []byte) error {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &domain.ProviderAPIError{Provider: provider, StatusCode: status, Code: apiErr.Code, Message: apiErr.Message}
	}

	lower := strings.ToLower(string(body))
	for _, marker := range proxyActivationMarkers {
		if strings.Contains(lower, marker) {
			return &domain.ProxyActivationError{ProxyURL: c.proxyURL, Remediation: proxyRemediation(c.proxyURL)}
		}
	}

	msg := http.StatusText(status)
	if len(body) > 0 && len(body) < 200 {
		msg = strings.TrimSpace(string(body))
	}
	return &domain.ProviderAPIError{Provider: provider, StatusCode: status, Message: msg}
}

func proxyRemediation(proxyURL string) string {
	base := strings.TrimRight(proxyURL, "/")
	if base == "" {
		base = "the CORS proxy"
	}
	return fmt.Sprintf("1. Open %s/corsdemo in a browser. 2. Click \"Request temporary access to the demo server\". 3. Come back and refresh this page.", base)
}
