// Package prefs holds small device-local values that survive a reload:
// the last logged-in user and the redirect and pending-setup markers.
//
// Values are advisory. Callers treat a read failure as an absent value.
package prefs

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/homestock/internal/storage"
)

// Keys used by the session.
const (
	KeyLastLoggedInUser = "lastLoggedInUser"
	KeyRedirectPending  = "redirectAuthPending"
	KeyPendingSetup     = "pendingRedirectAuth"
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Collection is where Documents keeps its values.
const Collection = "prefs"

// Documents stores the values of one namespace as fields of a single
// document, so devices sharing a backing store never see each other's values.
type Documents struct {
	store     storage.DocumentStore
	namespace string
}

// NewDocuments returns the view of namespace on store.
func NewDocuments(store storage.DocumentStore, namespace string) *Documents {
	return &Documents{store: store, namespace: namespace}
}

func (d *Documents) Get(ctx context.Context, key string) (string, bool, error) {
	doc, ok, err := d.store.Get(ctx, Collection, d.namespace)
	if err != nil {
		return "", false, fmt.Errorf("failed to read pref %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	v, ok := doc[key].(string)
	return v, ok, nil
}

func (d *Documents) Set(ctx context.Context, key, value string) error {
	if err := d.store.SetFields(ctx, Collection, d.namespace, storage.Document{key: value}); err != nil {
		return fmt.Errorf("failed to write pref %s: %w", key, err)
	}
	return nil
}

func (d *Documents) Delete(ctx context.Context, key string) error {
	if err := d.store.DeleteFields(ctx, Collection, d.namespace, key); err != nil {
		return fmt.Errorf("failed to delete pref %s: %w", key, err)
	}
	return nil
}
