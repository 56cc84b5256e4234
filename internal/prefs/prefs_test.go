package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmynk/homestock/internal/storage/sqlite"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, KeyLastLoggedInUser); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, KeyLastLoggedInUser, "a@example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, ok, err := s.Get(ctx, KeyLastLoggedInUser); !ok || err != nil || v != "a@example.com" {
		t.Fatalf("Get: %q %v %v", v, ok, err)
	}
	if err := s.Delete(ctx, KeyLastLoggedInUser); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyLastLoggedInUser); ok {
		t.Error("value still present after Delete")
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestDocuments(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	t.Run("round trip", func(t *testing.T) {
		exercise(t, NewDocuments(store, "device-a"))
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		ctx := context.Background()
		a := NewDocuments(store, "device-a")
		b := NewDocuments(store, "device-b")

		if err := a.Set(ctx, KeyRedirectPending, "1"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, ok, _ := b.Get(ctx, KeyRedirectPending); ok {
			t.Error("device-b sees device-a's value")
		}
	})
}
