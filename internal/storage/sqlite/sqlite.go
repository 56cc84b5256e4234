// Package sqlite provides a SQLite-backed implementation of the storage.DocumentStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/homestock/internal/storage"
)

// Ensure SQLiteStore implements storage.DocumentStore
var _ storage.DocumentStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.DocumentStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers; each document operation is a transaction on it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves a document by collection and key.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (storage.Document, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", classify(err))
	}

	doc, err := decodeBody(body)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Set overwrites the whole document.
func (s *SQLiteStore) Set(ctx context.Context, collection, key string, doc storage.Document) error {
	if doc == nil {
		doc = storage.Document{}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := upsert(ctx, s.db, collection, key, string(body)); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// SetFields merges fields into the document, creating it if absent.
func (s *SQLiteStore) SetFields(ctx context.Context, collection, key string, fields storage.Document) error {
	return s.mutate(ctx, collection, key, true, func(doc storage.Document) {
		for name, value := range fields {
			doc[name] = value
		}
	})
}

// UpdateFields merges fields into an existing document.
func (s *SQLiteStore) UpdateFields(ctx context.Context, collection, key string, fields storage.Document) error {
	return s.mutate(ctx, collection, key, false, func(doc storage.Document) {
		for name, value := range fields {
			doc[name] = value
		}
	})
}

// DeleteFields removes the named fields. A missing document is left missing.
func (s *SQLiteStore) DeleteFields(ctx context.Context, collection, key string, names ...string) error {
	err := s.mutate(ctx, collection, key, false, func(doc storage.Document) {
		for _, name := range names {
			delete(doc, name)
		}
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", classify(err))
	}
	return nil
}

// QueryByField returns documents whose top-level field equals value.
func (s *SQLiteStore) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, body FROM documents WHERE collection = ? AND json_extract(body, ?) = ? ORDER BY key",
		collection, jsonPath(field), value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", classify(err))
	}
	defer rows.Close()

	var out []storage.Snapshot
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", classify(err))
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Snapshot{Key: key, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", classify(err))
	}

	return out, nil
}

// mutate runs a read-modify-write of one document inside a transaction.
// When create is false a missing document yields storage.ErrNotFound.
func (s *SQLiteStore) mutate(ctx context.Context, collection, key string, create bool, fn func(storage.Document)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&body)

	doc := storage.Document{}
	switch {
	case err == sql.ErrNoRows:
		if !create {
			return storage.ErrNotFound
		}
	case err != nil:
		return fmt.Errorf("failed to read document: %w", classify(err))
	default:
		if doc, err = decodeBody(body); err != nil {
			return err
		}
	}

	fn(doc)

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := upsert(ctx, tx, collection, key, string(encoded)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, collection, key, body string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, body, time.Now().UnixMilli(),
	)
	return classify(err)
}

func decodeBody(body string) (storage.Document, error) {
	doc := storage.Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// jsonPath quotes a top-level field name for json_extract.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// classify tags driver errors with the storage sentinel the service layer
// reports on: permission problems versus an unusable database.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var sqlErr *msqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
			return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
}
