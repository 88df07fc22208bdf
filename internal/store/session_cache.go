package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bugshot-cli/internal/model"

	_ "modernc.org/sqlite"
)

// SessionCache keeps SessionOptions per login session in session.sqlite.
//
// Entries never expire on their own: a new login produces a new session key, and
// `bugshot projects --refresh` overwrites the current one.
type SessionCache struct {
	store Store
}

func (s Store) SessionCache() SessionCache {
	return SessionCache{store: s}
}

// SessionKey derives a stable, non-reversible key from a login credential.
func SessionKey(credential string) string {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:16])
}

func (c SessionCache) open(ctx context.Context) (*sql.DB, error) {
	if err := c.store.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", c.store.sessionDBPath())
	if err != nil {
		return nil, err
	}
	// The TUI and CLI may both touch the cache; WAL + busy_timeout avoid "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSessionCache(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSessionCache(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_options (
			session_key TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the cached options for key. ok is false on a miss.
func (c SessionCache) Load(ctx context.Context, key string) (model.SessionOptions, bool, error) {
	if strings.TrimSpace(key) == "" {
		return model.SessionOptions{}, false, nil
	}
	db, err := c.open(ctx)
	if err != nil {
		return model.SessionOptions{}, false, err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT json FROM session_options WHERE session_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionOptions{}, false, nil
	}
	if err != nil {
		return model.SessionOptions{}, false, err
	}
	var so model.SessionOptions
	if err := json.Unmarshal([]byte(raw), &so); err != nil {
		// Treat a corrupted row as a miss; the next Save replaces it.
		return model.SessionOptions{}, false, nil
	}
	return so, true, nil
}

func (c SessionCache) Save(ctx context.Context, key string, so model.SessionOptions) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("session cache: empty session key")
	}
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if so.ClientProjects == nil {
		so.ClientProjects = []model.Project{}
	}
	raw, err := json.Marshal(so)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_options(session_key, json, updated_at_unixms) VALUES(?, ?, ?)`,
		key, string(raw), time.Now().UTC().UnixMilli())
	return err
}

// Clear drops every cached session (used by `bugshot projects --refresh --all`).
func (c SessionCache) Clear(ctx context.Context) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `DELETE FROM session_options`)
	return err
}
