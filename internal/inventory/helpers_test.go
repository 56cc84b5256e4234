package inventory

import (
	"context"
	"sync"

	"github.com/mmynk/homestock/internal/storage"
	"github.com/mmynk/homestock/internal/storage/memory"
	"github.com/mmynk/homestock/pkg/logging"
)

// countingStore wraps a memory store and counts calls per operation.
type countingStore struct {
	storage.DocumentStore

	mu    sync.Mutex
	calls map[string]int
	fail  error
}

func newCountingStore() *countingStore {
	return &countingStore{DocumentStore: memory.New(), calls: map[string]int{}}
}

func (s *countingStore) count(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail
}

func (s *countingStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *countingStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *countingStore) Get(ctx context.Context, collection, key string) (storage.Document, bool, error) {
	if err := s.count("get"); err != nil {
		return nil, false, err
	}
	return s.DocumentStore.Get(ctx, collection, key)
}

func (s *countingStore) SetFields(ctx context.Context, collection, key string, fields storage.Document) error {
	if err := s.count("setFields"); err != nil {
		return err
	}
	return s.DocumentStore.SetFields(ctx, collection, key, fields)
}

func (s *countingStore) DeleteFields(ctx context.Context, collection, key string, names ...string) error {
	if err := s.count("deleteFields"); err != nil {
		return err
	}
	return s.DocumentStore.DeleteFields(ctx, collection, key, names...)
}

func newTestOperations(store storage.DocumentStore, familyID string, opts ...Option) *Operations {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewOperations(NewRepository(store), familyID, opts...)
}
