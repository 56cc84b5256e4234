// Package inventory implements the per-family item repository and the item
// operations service, the single entry point for item mutations of one family.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/internal/storage"
)

// ItemsCollection holds one document per family, keyed by familyID. Each
// top-level field maps an item id to the full item value.
const ItemsCollection = "familyItems"

// Repository translates item operations into document store calls.
type Repository struct {
	store storage.DocumentStore
}

// NewRepository creates a repository on top of store.
func NewRepository(store storage.DocumentStore) *Repository {
	return &Repository{store: store}
}

// FetchAll reads the family's item document. A family that never stored an
// item has no document, which yields an empty list.
func (r *Repository) FetchAll(ctx context.Context, familyID string) ([]models.Item, error) {
	doc, ok, err := r.store.Get(ctx, ItemsCollection, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	if !ok {
		return []models.Item{}, nil
	}

	items := make([]models.Item, 0, len(doc))
	for id, value := range doc {
		var item models.Item
		if err := storage.Decode(value, &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
		}
		if item.ID == "" {
			item.ID = id
		}
		item.AmountInStock = models.ClampStock(item.AmountInStock)
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Upsert writes the single field item.ID of the family document, creating
// the document if needed. Writing the same value twice is a no-op.
func (r *Repository) Upsert(ctx context.Context, familyID string, item models.Item) error {
	value, err := storage.Encode(item)
	if err != nil {
		return err
	}
	if err := r.store.SetFields(ctx, ItemsCollection, familyID, storage.Document{item.ID: value}); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// Remove deletes one item with a targeted field deletion, so entries written
// concurrently by other devices survive. Removing from a family without a
// document is a no-op.
func (r *Repository) Remove(ctx context.Context, familyID, itemID string) error {
	if err := r.store.DeleteFields(ctx, ItemsCollection, familyID, itemID); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}
