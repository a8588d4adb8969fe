// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kvstore is the durable key-value store behind the TTL caches.
// Each key holds one opaque blob in a single sqlite table.
package kvstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/profmatch/pkg/types"
)

const (
	defaultPath = "profmatch-cache.db"
	table       = "kv"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")

	// ErrCapacity is returned when a write exceeds the store's size limit.
	ErrCapacity = errors.New("store capacity exceeded")
)

// Store is a sqlite-backed blob store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at cfg.Path and creates the schema if
// needed. When cfg.MaxPages is positive the database is capped at that many
// pages and writes past the cap fail with ErrCapacity.
func Open(cfg types.CacheConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if cfg.MaxPages > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA max_page_count = %d", cfg.MaxPages)); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting page limit: %w", err)
		}
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the blob stored under key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	query, args, err := sq.Select("value").From(table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	var value []byte
	if err := s.db.QueryRow(query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	query, args, err := sq.Insert(table).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return classify(fmt.Errorf("writing %s: %w", key, err))
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Entry describes one stored key.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt string
}

// Entries lists stored keys with their blob sizes, ordered by key.
func (s *Store) Entries() ([]Entry, error) {
	query, args, err := sq.Select("key", "length(value)", "updated_at").From(table).OrderBy("key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Size, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// classify maps sqlite's "database or disk is full" to ErrCapacity.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	return err
}
