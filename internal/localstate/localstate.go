// Package localstate provides the per-device persistent state that the
// browser build kept in localStorage: theme preference, favorited
// titles, a stable random device identifier, and the remote-store
// bearer credential.
//
// The state lives in an embedded SQLite database (WAL mode) so that a
// CLI invocation and a long-running watch daemon on the same machine
// see the same values. Nothing here is encrypted; the token is exactly
// as exposed as it was in localStorage.
package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Setting keys. The fd_ prefix survives from the browser build's
// localStorage keys so a future import path stays obvious.
const (
	keyTheme    = "fd_theme"
	keyDeviceID = "fd_device_id"
	keyToken    = "gh_token"
)

// Store wraps the state database.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the state database at path and ensures the
// schema exists. The caller MUST call Close() when done.
//
// Example:
//
//	state, err := localstate.Open(filepath.Join(home, ".shotlib", "state.db"))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close state database: %w", err)
	}
	return nil
}

// initSchema creates the settings and favorites tables. Idempotent.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		title TEXT PRIMARY KEY,
		added_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return nil
}

// get reads a setting; ok is false when the key is absent.
func (s *Store) get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.conn.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// set upserts a setting.
func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Theme returns the stored theme preference, or defaultTheme when none
// is set.
func (s *Store) Theme(ctx context.Context, defaultTheme string) (string, error) {
	v, ok, err := s.get(ctx, keyTheme)
	if err != nil {
		return "", err
	}
	if !ok {
		return defaultTheme, nil
	}
	return v, nil
}

// SetTheme stores the theme preference.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	return s.set(ctx, keyTheme, theme)
}

// Token returns the stored bearer credential, empty when unset.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, keyToken)
	return v, err
}

// SetToken stores the bearer credential.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

// DeviceID returns the stable per-device identifier, generating and
// persisting a random one on first use. Subsequent calls across
// processes return the same value.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	v, ok, err := s.get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if ok {
		return v, nil
	}

	id := uuid.NewString()
	if err := s.set(ctx, keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}
