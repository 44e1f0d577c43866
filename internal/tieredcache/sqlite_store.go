package tieredcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"shelfscan/internal/services"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    size_bytes INTEGER NOT NULL
)`

// SQLiteStore persists cache entries in a single SQLite table. A positive
// quota caps the summed value size.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	quotaBytes int64
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(path string, quotaBytes int64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path, quotaBytes: quotaBytes}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get returns the stored value for key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache entry: %w", err)
	}
	return value, true, nil
}

// Set inserts or replaces key. It fails with services.ErrCapacityExceeded when
// the quota would be exceeded.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.quotaBytes > 0 {
		var used int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries WHERE key <> ?`, key,
		).Scan(&used); err != nil {
			return fmt.Errorf("sum cache usage: %w", err)
		}
		if used+int64(len(value)) > s.quotaBytes {
			return services.Wrap(services.ErrCapacityExceeded, "tieredcache", "sqlite set",
				fmt.Sprintf("%d of %d bytes used", used, s.quotaBytes), nil)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, size_bytes) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, size_bytes = excluded.size_bytes`,
		key, value, len(value),
	); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return tx.Commit()
}

// Delete removes key. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Keys lists every key starting with prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		// LIKE ignores ASCII case.
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
