package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
	"github.com/aradsms/sms_inbox_site/internal/site_service/repository/memory"
)

// --- Mocks ---

type MockNumberSource struct {
	mock.Mock
	name domain.ProviderName
}

func (m *MockNumberSource) Name() domain.ProviderName { return m.name }

func (m *MockNumberSource) Configured(s domain.Settings) bool {
	args := m.Called(s)
	return args.Bool(0)
}

func (m *MockNumberSource) ListOwnedNumbers(ctx context.Context) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberSource) GetNumberByValue(ctx context.Context, value string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberSource) ListMessages(ctx context.Context, number string) ([]domain.SMSMessage, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SMSMessage), args.Error(1)
}

type MockGistClient struct {
	mock.Mock
}

func (m *MockGistClient) Fetch(ctx context.Context, id, token, fileName string) ([]byte, error) {
	args := m.Called(ctx, id, token, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockGistClient) Update(ctx context.Context, id, token, fileName string, content []byte) error {
	args := m.Called(ctx, id, token, fileName, content)
	return args.Error(0)
}

func (m *MockGistClient) Create(ctx context.Context, token, fileName string, content []byte) (string, error) {
	args := m.Called(ctx, token, fileName, content)
	return args.String(0), args.Error(1)
}

type failingKV struct {
	err error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error { return f.err }
func (f failingKV) Delete(context.Context, string) error { return f.err }

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*SettingsStore, *memory.KeyValueStore) {
	t.Helper()
	kv := memory.NewKeyValueStore()
	return NewSettingsStore(kv, testLogger()), kv
}
