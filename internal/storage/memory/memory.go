// Package memory provides an in-process implementation of storage.DocumentStore,
// used by tests and by the "memory" storage driver.
package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/mmynk/homestock/internal/storage"
)

// Ensure Store implements storage.DocumentStore
var _ storage.DocumentStore = (*Store)(nil)

// Store keeps documents in a map guarded by a RWMutex. Every value crossing
// the boundary is deep-copied.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]storage.Document
}

// New creates an empty Store.
func New() *Store {
	return &Store{collections: map[string]map[string]storage.Document{}}
}

func (s *Store) Get(ctx context.Context, collection, key string) (storage.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, false, nil
	}
	return storage.Clone(doc), true, nil
}

func (s *Store) Set(ctx context.Context, collection, key string, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bucket(collection)[key] = storage.Clone(doc)
	return nil
}

func (s *Store) SetFields(ctx context.Context, collection, key string, fields storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(collection)
	doc, ok := bucket[key]
	if !ok {
		doc = storage.Document{}
		bucket[key] = doc
	}
	for name, value := range storage.Clone(fields) {
		doc[name] = value
	}
	return nil
}

func (s *Store) UpdateFields(ctx context.Context, collection, key string, fields storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return storage.ErrNotFound
	}
	for name, value := range storage.Clone(fields) {
		doc[name] = value
	}
	return nil
}

func (s *Store) DeleteFields(ctx context.Context, collection, key string, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil
	}
	for _, name := range names {
		delete(doc, name)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], key)
	return nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Snapshot
	for key, doc := range s.collections[collection] {
		if v, ok := doc[field]; ok && reflect.DeepEqual(v, value) {
			out = append(out, storage.Snapshot{Key: key, Data: storage.Clone(doc)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// bucket returns the collection map, creating it. Callers hold the write lock.
func (s *Store) bucket(collection string) map[string]storage.Document {
	b, ok := s.collections[collection]
	if !ok {
		b = map[string]storage.Document{}
		s.collections[collection] = b
	}
	return b
}
