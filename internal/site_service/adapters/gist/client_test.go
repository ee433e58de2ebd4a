package gist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/gists/abc", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"abc","files":{"settings.json":{"content":"{\"siteName\":\"X\"}"}}}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(), server.URL, server.Client())
	got, err := c.Fetch(context.Background(), "abc", "tok", "settings.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"siteName":"X"}`, string(got))

	_, err = c.Fetch(context.Background(), "abc", "tok", "other.json")
	assert.Error(t, err)
}

func TestClient_FetchTruncatedUsesRawURL(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/raw/settings.json" {
			fmt.Fprint(w, `{"full":true}`)
			return
		}
		fmt.Fprintf(w, `{"files":{"settings.json":{"content":"{\"fu","truncated":true,"raw_url":"%s/raw/settings.json"}}}`, server.URL)
	}))
	defer server.Close()

	got, err := NewClient(testLogger(), server.URL, server.Client()).Fetch(context.Background(), "abc", "", "settings.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"full":true}`, string(got))
}

func TestClient_UpdateAndCreate(t *testing.T) {
	var lastMethod, lastPath string
	var lastBody gistDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastMethod, lastPath = r.Method, r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"new-id"}`)
			return
		}
		fmt.Fprint(w, `{"id":"abc"}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(), server.URL, server.Client())

	require.NoError(t, c.Update(context.Background(), "abc", "tok", "s.json", []byte(`{"a":1}`)))
	assert.Equal(t, http.MethodPatch, lastMethod)
	assert.Equal(t, "/gists/abc", lastPath)
	assert.Equal(t, `{"a":1}`, lastBody.Files["s.json"].Content)

	id, err := c.Create(context.Background(), "tok", "s.json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, "/gists", lastPath)
	require.NotNil(t, lastBody.Public)
	assert.False(t, *lastBody.Public)
}

func TestClient_ErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	}))
	defer server.Close()

	err := NewClient(testLogger(), server.URL, server.Client()).Update(context.Background(), "abc", "bad", "s.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad credentials")
	assert.Contains(t, err.Error(), "401")
}
