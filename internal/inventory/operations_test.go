package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mmynk/homestock/internal/apperr"
	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/internal/storage"
)

func TestStockScenario(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	ops := newTestOperations(store, "F1")

	item := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 5}
	if err := ops.repo.Upsert(ctx, "F1", item); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	before := store.Calls("setFields")

	steps := []struct {
		name string
		fn   func(context.Context, models.Item) (models.Item, error)
		want int
	}{
		{name: "decrease", fn: ops.DecreaseItemStock, want: 4},
		{name: "decrease", fn: ops.DecreaseItemStock, want: 3},
		{name: "increase", fn: ops.IncreaseItemStock, want: 4},
	}

	for i, step := range steps {
		updated, err := step.fn(ctx, item)
		if err != nil {
			t.Fatalf("step %d (%s) failed: %v", i, step.name, err)
		}
		if updated.AmountInStock != step.want {
			t.Errorf("step %d (%s): got %d, want %d", i, step.name, updated.AmountInStock, step.want)
		}
		if writes := store.Calls("setFields") - before; writes != i+1 {
			t.Errorf("step %d: expected %d writes so far, got %d", i, i+1, writes)
		}
		item = updated
	}

	stored, _ := ops.FetchItems(ctx)
	if len(stored) != 1 || stored[0].AmountInStock != 4 {
		t.Errorf("stored state mismatch: %+v", stored)
	}
}

func TestIncreaseClampsAtMax(t *testing.T) {
	ctx := context.Background()
	ops := newTestOperations(newCountingStore(), "F1")

	item := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 19}
	want := []int{20, 20}
	for i, w := range want {
		var err error
		item, err = ops.IncreaseItemStock(ctx, item)
		if err != nil {
			t.Fatalf("increase %d failed: %v", i, err)
		}
		if item.AmountInStock != w {
			t.Errorf("increase %d: got %d, want %d", i, item.AmountInStock, w)
		}
	}
}

func TestDecreaseClampsAtZero(t *testing.T) {
	ctx := context.Background()
	ops := newTestOperations(newCountingStore(), "F1")

	item := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 1}
	for i := 0; i < 3; i++ {
		var err error
		item, err = ops.DecreaseItemStock(ctx, item)
		if err != nil {
			t.Fatalf("decrease %d failed: %v", i, err)
		}
		if item.AmountInStock < 0 {
			t.Fatalf("stock went negative: %d", item.AmountInStock)
		}
	}
	if item.AmountInStock != 0 {
		t.Errorf("got %d, want 0", item.AmountInStock)
	}
}

func TestProcessBarcodeSubmit(t *testing.T) {
	ctx := context.Background()
	current := []models.Item{
		{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 5},
		{ID: "i2", Barcode: "222", Name: "Bread", AmountInStock: 20},
	}

	tests := []struct {
		name        string
		barcode     string
		wantOutcome BarcodeOutcome
		wantStock   int
		wantWrites  int
	}{
		{name: "existing item is incremented", barcode: "111", wantOutcome: BarcodeUpdated, wantStock: 6, wantWrites: 1},
		{name: "full item stays at max", barcode: "222", wantOutcome: BarcodeUpdated, wantStock: 20, wantWrites: 1},
		{name: "unknown barcode needs new item", barcode: "999", wantOutcome: BarcodeNewItemNeeded, wantWrites: 0},
		{name: "prefix does not match", barcode: "11", wantOutcome: BarcodeNewItemNeeded, wantWrites: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			ops := newTestOperations(store, "F1")

			res, err := ops.ProcessBarcodeSubmit(ctx, tt.barcode, current)
			if err != nil {
				t.Fatalf("ProcessBarcodeSubmit failed: %v", err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("outcome: got %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if tt.wantOutcome == BarcodeUpdated {
				if res.Item == nil || res.Item.AmountInStock != tt.wantStock {
					t.Errorf("updated item: got %+v, want stock %d", res.Item, tt.wantStock)
				}
			} else if res.Barcode != tt.barcode {
				t.Errorf("barcode: got %q, want %q", res.Barcode, tt.barcode)
			}
			if got := store.Calls("setFields"); got != tt.wantWrites {
				t.Errorf("writes: got %d, want %d", got, tt.wantWrites)
			}
		})
	}

	if current[0].AmountInStock != 5 {
		t.Error("ProcessBarcodeSubmit mutated the caller's slice")
	}
}

func TestAddNewItem(t *testing.T) {
	ctx := context.Background()
	ops := newTestOperations(newCountingStore(), "F1")

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		item, err := ops.AddNewItem(ctx, models.ItemDetails{
			Barcode: fmt.Sprintf("b%d", i),
			Name:    "Thing",
		})
		if err != nil {
			t.Fatalf("AddNewItem %d failed: %v", i, err)
		}
		if item.AmountInStock != 1 {
			t.Errorf("item %d: stock %d, want 1", i, item.AmountInStock)
		}
		if item.ID == "" || seen[item.ID] {
			t.Fatalf("item %d: id %q empty or reused", i, item.ID)
		}
		seen[item.ID] = true
	}

	items, err := ops.FetchItems(ctx)
	if err != nil {
		t.Fatalf("FetchItems failed: %v", err)
	}
	if len(items) != 50 {
		t.Errorf("expected 50 stored items, got %d", len(items))
	}
}

func TestAddNewItemRequiresName(t *testing.T) {
	store := newCountingStore()
	ops := newTestOperations(store, "F1")

	for _, details := range []models.ItemDetails{
		{Barcode: "111"},
		{Barcode: "111", Name: "   "},
		{Barcode: " ", Name: "Milk"},
	} {
		_, err := ops.AddNewItem(context.Background(), details)
		if !apperr.IsKind(err, apperr.InvalidInput) {
			t.Fatalf("%+v: expected InvalidInput, got %v", details, err)
		}
	}
	if store.Total() != 0 {
		t.Errorf("expected no storage calls, got %d", store.Total())
	}
}

func TestUpdateItemKeepsIDAndStock(t *testing.T) {
	ctx := context.Background()
	ops := newTestOperations(newCountingStore(), "F1")

	existing := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 7}
	updated, err := ops.UpdateItem(ctx, existing, models.ItemDetails{
		Barcode:  "112",
		Name:     "Whole milk",
		Icon:     "🥛",
		Category: "Dairy",
		Brand:    "Farm",
	})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if updated.ID != "i1" || updated.AmountInStock != 7 {
		t.Errorf("identity or stock changed: %+v", updated)
	}
	if updated.Barcode != "112" || updated.Name != "Whole milk" || updated.Icon != "🥛" {
		t.Errorf("details not applied: %+v", updated)
	}
}

func TestInvalidFamilyContextNeverReachesStorage(t *testing.T) {
	ctx := context.Background()
	item := models.Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 3}

	for _, familyID := range []string{"", "   "} {
		store := newCountingStore()
		ops := newTestOperations(store, familyID)

		calls := map[string]func() error{
			"fetch": func() error { _, err := ops.FetchItems(ctx); return err },
			"add": func() error {
				_, err := ops.AddNewItem(ctx, models.ItemDetails{Barcode: "1", Name: "x"})
				return err
			},
			"increase": func() error { _, err := ops.IncreaseItemStock(ctx, item); return err },
			"decrease": func() error { _, err := ops.DecreaseItemStock(ctx, item); return err },
			"barcode": func() error {
				_, err := ops.ProcessBarcodeSubmit(ctx, "111", []models.Item{item})
				return err
			},
			"remove": func() error { return ops.RemoveItem(ctx, "i1") },
		}

		for name, call := range calls {
			if err := call(); !apperr.IsKind(err, apperr.InvalidFamilyContext) {
				t.Errorf("family %q, %s: expected InvalidFamilyContext, got %v", familyID, name, err)
			}
		}
		if store.Total() != 0 {
			t.Errorf("family %q: expected no storage calls, got %d", familyID, store.Total())
		}
	}
}

func TestStorageFailuresAreClassified(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		fail       error
		wantReason apperr.Reason
	}{
		{name: "permission", fail: fmt.Errorf("denied: %w", storage.ErrPermissionDenied), wantReason: apperr.ReasonPermission},
		{name: "network", fail: fmt.Errorf("offline: %w", storage.ErrUnavailable), wantReason: apperr.ReasonNetwork},
		{name: "other", fail: errors.New("disk on fire"), wantReason: apperr.ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			store.fail = tt.fail
			ops := newTestOperations(store, "F1")

			_, err := ops.FetchItems(ctx)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
			}
			if appErr.Kind != apperr.StorageUnavailable {
				t.Errorf("kind: got %s", appErr.Kind)
			}
			if appErr.Reason != tt.wantReason {
				t.Errorf("reason: got %q, want %q", appErr.Reason, tt.wantReason)
			}
			if appErr.Error() == tt.fail.Error() {
				t.Error("raw transport message must not be surfaced")
			}

			if _, err := ops.IncreaseItemStock(ctx, models.Item{ID: "i1", AmountInStock: 1}); !apperr.IsKind(err, apperr.StorageUnavailable) {
				t.Errorf("increase: expected StorageUnavailable, got %v", err)
			}
			if err := ops.RemoveItem(ctx, "i1"); !apperr.IsKind(err, apperr.StorageUnavailable) {
				t.Errorf("remove: expected StorageUnavailable, got %v", err)
			}
		})
	}
}

func TestRebindReturnsNewInstance(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	old := newTestOperations(store, "F1")

	next := old.Rebind("F2")
	if next == old {
		t.Fatal("Rebind must return a new instance")
	}
	if old.FamilyID() != "F1" || next.FamilyID() != "F2" {
		t.Fatalf("bindings: old=%s new=%s", old.FamilyID(), next.FamilyID())
	}

	if _, err := old.AddNewItem(ctx, models.ItemDetails{Barcode: "1", Name: "Old family item"}); err != nil {
		t.Fatalf("AddNewItem on old instance failed: %v", err)
	}

	items, err := next.FetchItems(ctx)
	if err != nil {
		t.Fatalf("FetchItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("old family's items leaked into new binding: %+v", items)
	}
}

func TestFetchItemsWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("gives up after max retries", func(t *testing.T) {
		store := newCountingStore()
		store.fail = storage.ErrUnavailable
		ops := newTestOperations(store, "F1", WithRetryBase(time.Millisecond))

		_, err := ops.FetchItemsWithRetry(ctx, 3)
		if !apperr.IsKind(err, apperr.StorageUnavailable) {
			t.Fatalf("expected StorageUnavailable, got %v", err)
		}
		if got := store.Calls("get"); got != 3 {
			t.Errorf("attempts: got %d, want 3", got)
		}
	})

	t.Run("does not retry invalid family", func(t *testing.T) {
		store := newCountingStore()
		ops := newTestOperations(store, "", WithRetryBase(time.Millisecond))

		_, err := ops.FetchItemsWithRetry(ctx, 3)
		if !apperr.IsKind(err, apperr.InvalidFamilyContext) {
			t.Fatalf("expected InvalidFamilyContext, got %v", err)
		}
		if store.Total() != 0 {
			t.Errorf("expected no storage calls, got %d", store.Total())
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		store := newCountingStore()
		store.fail = storage.ErrUnavailable
		ops := newTestOperations(store, "F1", WithRetryBase(time.Hour))

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := ops.FetchItemsWithRetry(cctx, 3)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
