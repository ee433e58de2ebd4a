package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createKVTable = `CREATE TABLE IF NOT EXISTS site_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PgKeyValueStore struct {
	db     Querier
	logger *slog.Logger
}

func NewPgKeyValueStore(db Querier, logger *slog.Logger) *PgKeyValueStore {
	return &PgKeyValueStore{db: db, logger: logger.With("component", "kv_repository_pg")}
}

// EnsureSchema creates the backing table when missing.
func (r *PgKeyValueStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createKVTable); err != nil {
		return fmt.Errorf("creating site_kv table: %w", err)
	}
	return nil
}

func (r *PgKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM site_kv WHERE key = $1`
	r.logger.DebugContext(ctx, "Getting key", "key", key)

	var value string
	if err := r.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		r.logger.ErrorContext(ctx, "Error reading key", "key", key, "error", err)
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}
	return []byte(value), nil
}

func (r *PgKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO site_kv (key, value, updated_at) VALUES ($1, $2, now())
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := r.db.Exec(ctx, query, key, string(value)); err != nil {
		r.logger.ErrorContext(ctx, "Error writing key", "key", key, "error", err)
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (r *PgKeyValueStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM site_kv WHERE key = $1`, key); err != nil {
		r.logger.ErrorContext(ctx, "Error deleting key", "key", key, "error", err)
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}
