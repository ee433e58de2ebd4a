package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS site_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SqliteKeyValueStore is the single-file driver, the closest analogue of
// browser local storage.
type SqliteKeyValueStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSqliteKeyValueStore(db *sql.DB, logger *slog.Logger) *SqliteKeyValueStore {
	return &SqliteKeyValueStore{db: db, logger: logger.With("component", "kv_repository_sqlite")}
}

func (r *SqliteKeyValueStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("creating site_kv table: %w", err)
	}
	return nil
}

func (r *SqliteKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM site_kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		r.logger.ErrorContext(ctx, "Error reading key", "key", key, "error", err)
		return nil, fmt.Errorf("reading key %s: %w", key, err)
	}
	return []byte(value), nil
}

func (r *SqliteKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO site_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, key, string(value)); err != nil {
		r.logger.ErrorContext(ctx, "Error writing key", "key", key, "error", err)
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (r *SqliteKeyValueStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM site_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}
