package inventory

import (
	"context"
	"reflect"
	"testing"

	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/internal/storage/memory"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepository(store)

	t.Run("FetchAll on family without document returns empty list", func(t *testing.T) {
		items, err := repo.FetchAll(ctx, "never-written")
		if err != nil {
			t.Fatalf("FetchAll failed: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", items)
		}
	})

	t.Run("Upsert is idempotent", func(t *testing.T) {
		item := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 5}

		if err := repo.Upsert(ctx, "F1", item); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		once, _, _ := store.Get(ctx, ItemsCollection, "F1")

		if err := repo.Upsert(ctx, "F1", item); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		twice, _, _ := store.Get(ctx, ItemsCollection, "F1")

		if !reflect.DeepEqual(once, twice) {
			t.Errorf("document changed on repeated upsert:\nonce:  %v\ntwice: %v", once, twice)
		}

		items, err := repo.FetchAll(ctx, "F1")
		if err != nil {
			t.Fatalf("FetchAll failed: %v", err)
		}
		if len(items) != 1 || items[0] != item {
			t.Errorf("unexpected items: %+v", items)
		}
	})

	t.Run("Remove on family without document is a no-op", func(t *testing.T) {
		if err := repo.Remove(ctx, "ghost-family", "i1"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if _, ok, _ := store.Get(ctx, ItemsCollection, "ghost-family"); ok {
			t.Error("Remove must not create a document")
		}
	})

	t.Run("Remove keeps sibling items", func(t *testing.T) {
		_ = repo.Upsert(ctx, "F2", models.Item{ID: "a", Barcode: "1", Name: "Apples", AmountInStock: 1})
		_ = repo.Upsert(ctx, "F2", models.Item{ID: "b", Barcode: "2", Name: "Bread", AmountInStock: 2})

		if err := repo.Remove(ctx, "F2", "a"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		items, _ := repo.FetchAll(ctx, "F2")
		if len(items) != 1 || items[0].ID != "b" {
			t.Errorf("expected only b to remain, got %+v", items)
		}
	})

	t.Run("FetchAll is sorted by name", func(t *testing.T) {
		_ = repo.Upsert(ctx, "F3", models.Item{ID: "z", Barcode: "3", Name: "Zucchini"})
		_ = repo.Upsert(ctx, "F3", models.Item{ID: "c", Barcode: "4", Name: "Carrots"})

		items, _ := repo.FetchAll(ctx, "F3")
		if len(items) != 2 || items[0].Name != "Carrots" || items[1].Name != "Zucchini" {
			t.Errorf("unexpected order: %+v", items)
		}
	})

	t.Run("families are isolated", func(t *testing.T) {
		items, _ := repo.FetchAll(ctx, "F3")
		for _, item := range items {
			if item.ID == "i1" || item.ID == "b" {
				t.Errorf("item %s leaked into F3", item.ID)
			}
		}
	})
}
