// Package firestore provides a Cloud Firestore implementation of the
// storage.DocumentStore interface, the shared store households sync through.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mmynk/homestock/internal/storage"
)

// Ensure Store implements storage.DocumentStore
var _ storage.DocumentStore = (*Store)(nil)

// Store implements storage.DocumentStore on top of a Firestore client.
type Store struct {
	client *firestore.Client
}

// Config selects the Firestore project and, optionally, a service account file.
// When FIRESTORE_EMULATOR_HOST is set the client talks to the emulator.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// New creates a Firestore-backed store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", classify(err))
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, collection, key string) (storage.Document, bool, error) {
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", classify(err))
	}
	return storage.Document(snap.Data()), true, nil
}

func (s *Store) Set(ctx context.Context, collection, key string, doc storage.Document) error {
	if doc == nil {
		doc = storage.Document{}
	}
	if _, err := s.client.Collection(collection).Doc(key).Set(ctx, map[string]any(doc)); err != nil {
		return fmt.Errorf("failed to set document: %w", classify(err))
	}
	return nil
}

// SetFields uses a field-masked merge so each named field is replaced whole
// while sibling fields written by other devices are left alone.
func (s *Store) SetFields(ctx context.Context, collection, key string, fields storage.Document) error {
	if len(fields) == 0 {
		return nil
	}
	paths := make([]firestore.FieldPath, 0, len(fields))
	for name := range fields {
		paths = append(paths, firestore.FieldPath{name})
	}
	_, err := s.client.Collection(collection).Doc(key).Set(ctx, map[string]any(fields), firestore.Merge(paths...))
	if err != nil {
		return fmt.Errorf("failed to set fields: %w", classify(err))
	}
	return nil
}

func (s *Store) UpdateFields(ctx context.Context, collection, key string, fields storage.Document) error {
	if len(fields) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(fields))
	for name, value := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{name}, Value: value})
	}
	if _, err := s.client.Collection(collection).Doc(key).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update fields: %w", classify(err))
	}
	return nil
}

// DeleteFields issues a targeted field deletion. Update refuses to create
// documents, so a missing document stays missing.
func (s *Store) DeleteFields(ctx context.Context, collection, key string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(names))
	for _, name := range names {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{name}, Value: firestore.Delete})
	}
	_, err := s.client.Collection(collection).Doc(key).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete fields: %w", classify(err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.client.Collection(collection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", classify(err))
	}
	return nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Snapshot, error) {
	snaps, err := s.client.Collection(collection).
		WherePath(firestore.FieldPath{field}, "==", value).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", classify(err))
	}

	out := make([]storage.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, storage.Snapshot{Key: snap.Ref.ID, Data: storage.Document(snap.Data())})
	}
	return out, nil
}

// classify maps gRPC status codes onto the storage sentinels.
func classify(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	default:
		return err
	}
}
