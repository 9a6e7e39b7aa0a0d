package kvstore

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a side-effect only
	// import. The sqlite package's init() registers itself with database/sql
	// as a driver named "sqlite"; after this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite. modernc.org/sqlite is a pure Go
	// translation of the SQLite C code — no C compiler needed.
	_ "modernc.org/sqlite"
)

// SQLiteStore persists key/value pairs in a single SQLite table.
//
// SQLite is an embedded database — it lives inside the binary as a single
// file, with ":memory:" available for throwaway runs. One kv table is all
// the substrate needs; the layers above treat each value as an opaque blob.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the store at dbPath.
//
// sql.Open does not actually connect — it creates a pool manager. Ping
// forces an immediate connection so a bad path or permissions issue surfaces
// here rather than on the first query.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress.
	// Default SQLite locks the entire database during writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: creating kv table: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying connection pool.
// Wherever you call OpenSQLite, immediately defer Close.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Get returns the value stored under key, with ok=false when the key is
// absent. sql.ErrNoRows is not an error at this boundary — it just means
// "no such key".
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: getting %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("kvstore: setting %q: %w", key, err)
	}
	return nil
}

// Remove deletes the key. Removing a missing key is a no-op.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kvstore: removing %q: %w", key, err)
	}
	return nil
}
