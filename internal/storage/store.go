// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by operations that require an existing document.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied is returned when the backend refuses access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// Document is the field map of one stored document. Values are JSON-like:
// strings, numbers, booleans, nested maps and slices.
type Document map[string]any

// Snapshot is a document together with its key, as returned by queries.
type Snapshot struct {
	Key  string
	Data Document
}

// DocumentStore defines the interface for key-value document storage.
// This abstraction allows swapping storage backends (SQLite, Firestore, memory)
// without changing the repositories built on top of it.
//
// Single-document operations are strongly consistent. There are no
// transactions across documents.
type DocumentStore interface {
	// Get retrieves a document. A missing document reports ok=false and no error.
	Get(ctx context.Context, collection, key string) (doc Document, ok bool, err error)

	// Set overwrites the whole document, creating it if absent.
	Set(ctx context.Context, collection, key string, doc Document) error

	// SetFields replaces each named top-level field wholesale, keeping all other
	// fields. The document is created if absent.
	SetFields(ctx context.Context, collection, key string, fields Document) error

	// UpdateFields is SetFields for an existing document.
	// Returns ErrNotFound if the document does not exist.
	UpdateFields(ctx context.Context, collection, key string, fields Document) error

	// DeleteFields removes the named top-level fields without touching siblings.
	// A missing document is a no-op and is not created.
	DeleteFields(ctx context.Context, collection, key string, names ...string) error

	// Delete removes the document. A missing document is a no-op.
	Delete(ctx context.Context, collection, key string) error

	// QueryByField returns every document of the collection whose top-level
	// field equals value.
	QueryByField(ctx context.Context, collection, field string, value any) ([]Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
