package memory

import (
	"context"
	"sync"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// KeyValueStore keeps values in process memory. Used for tests and the
// "memory" storage driver.
type KeyValueStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{data: make(map[string][]byte)}
}

func (s *KeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *KeyValueStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *KeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// MarkerStore is an in-memory domain.MarkerStore.
type MarkerStore struct {
	mu     sync.Mutex
	marker *domain.SessionMarker
}

func (s *MarkerStore) Get(_ context.Context) (*domain.SessionMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker == nil {
		return nil, nil
	}
	m := *s.marker
	return &m, nil
}

func (s *MarkerStore) Set(_ context.Context, marker domain.SessionMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = &marker
	return nil
}

func (s *MarkerStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = nil
	return nil
}
