package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client reads and writes a single file of a GitHub gist.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		logger:     logger.With("component", "gist_client"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistDocument struct {
	ID          string              `json:"id,omitempty"`
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

type githubError struct {
	Message string `json:"message"`
}

// Fetch returns the content of fileName in gist id. token may be empty for
// public gists.
func (c *Client) Fetch(ctx context.Context, id, token, fileName string) ([]byte, error) {
	var doc gistDocument
	if err := c.do(ctx, http.MethodGet, "/gists/"+id, token, nil, &doc); err != nil {
		return nil, err
	}
	f, ok := doc.Files[fileName]
	if !ok {
		return nil, fmt.Errorf("gist %s has no file %q", id, fileName)
	}
	if !f.Truncated {
		return []byte(f.Content), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw gist request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw gist file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raw gist file request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Update overwrites fileName in gist id.
func (c *Client) Update(ctx context.Context, id, token, fileName string, content []byte) error {
	body := gistDocument{Files: map[string]gistFile{fileName: {Content: string(content)}}}
	return c.do(ctx, http.MethodPatch, "/gists/"+id, token, body, nil)
}

// Create makes a new secret gist holding fileName and returns its id.
func (c *Client) Create(ctx context.Context, token, fileName string, content []byte) (string, error) {
	public := false
	body := gistDocument{
		Description: "Receive SMS site settings",
		Public:      &public,
		Files:       map[string]gistFile{fileName: {Content: string(content)}},
	}
	var created gistDocument
	if err := c.do(ctx, http.MethodPost, "/gists", token, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal gist request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create gist request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Gist request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("failed to send gist request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gist response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var ghErr githubError
		if json.Unmarshal(respBody, &ghErr) == nil && ghErr.Message != "" {
			msg = ghErr.Message
		}
		c.logger.WarnContext(ctx, "GitHub rejected gist request", "method", method, "path", path, "status_code", resp.StatusCode, "message", msg)
		return fmt.Errorf("github gist API error (status %d): %s", resp.StatusCode, msg)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode gist response: %w", err)
	}
	return nil
}
