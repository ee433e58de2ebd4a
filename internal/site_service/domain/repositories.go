package domain

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for an absent key.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the durable string store the settings document lives in.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionMarker is the auth marker written on login.
type SessionMarker struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	ExpiresAt       *int64 `json:"expiresAt,omitempty"` // epoch milliseconds
}

// MarkerStore holds at most one SessionMarker. Get returns nil when absent.
type MarkerStore interface {
	Get(ctx context.Context) (*SessionMarker, error)
	Set(ctx context.Context, marker SessionMarker) error
	Clear(ctx context.Context) error
}
