package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/homestock/internal/apperr"
	"github.com/mmynk/homestock/internal/metrics"
	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/pkg/logging"
)

const (
	msgFetchFailed   = "Failed to load family items. Please try again."
	msgBarcodeFailed = "Failed to process barcode. Please try again."
	msgAddFailed     = "Failed to add item. Please try again."
	msgUpdateFailed  = "Failed to update item. Please try again."
	msgStockFailed   = "Failed to update item quantity. Please try again."
	msgRemoveFailed  = "Failed to remove item. Please try again."
)

// DefaultRetryBase is the first backoff delay of FetchItemsWithRetry.
const DefaultRetryBase = time.Second

// Operations is the item operations service for one family.
//
// An Operations value is immutable: it never caches items and its family
// binding never changes. Rebind returns a new instance, so a call still in
// flight on the old instance can only ever write to the old family.
type Operations struct {
	repo      *Repository
	familyID  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retryBase time.Duration
	newID     func() string
}

// Option configures an Operations instance.
type Option func(*Operations)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Operations) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Operations) { o.metrics = m }
}

// WithRetryBase sets the first backoff delay of FetchItemsWithRetry.
func WithRetryBase(d time.Duration) Option {
	return func(o *Operations) { o.retryBase = d }
}

// WithIDGenerator replaces the UUID generator for new items.
func WithIDGenerator(fn func() string) Option {
	return func(o *Operations) { o.newID = fn }
}

// NewOperations binds an operations service to familyID. The binding is
// validated lazily, on every call, before anything reaches storage.
func NewOperations(repo *Repository, familyID string, opts ...Option) *Operations {
	o := &Operations{
		repo:      repo,
		familyID:  familyID,
		retryBase: DefaultRetryBase,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrDefault(o.logger)
	return o
}

// FamilyID returns the bound family.
func (o *Operations) FamilyID() string {
	return o.familyID
}

// Rebind returns a new instance targeting familyID with the same
// collaborators. The receiver keeps its binding.
func (o *Operations) Rebind(familyID string) *Operations {
	next := *o
	next.familyID = familyID
	return &next
}

// FetchItems returns all items of the bound family.
func (o *Operations) FetchItems(ctx context.Context) ([]models.Item, error) {
	if err := o.checkFamily(); err != nil {
		o.metrics.ItemOperation("fetch", err)
		return nil, err
	}

	o.logger.Debug("Fetching items", "family_id", o.familyID)
	items, err := o.repo.FetchAll(ctx, o.familyID)
	o.metrics.ItemOperation("fetch", err)
	if err != nil {
		o.logger.Error("FetchItems failed", "family_id", o.familyID, "error", err)
		return nil, apperr.FromStorage(err, msgFetchFailed)
	}

	o.logger.Debug("Fetched items", "family_id", o.familyID, "count", len(items))
	return items, nil
}

// FetchItemsWithRetry calls FetchItems up to maxRetries times, waiting
// base, 2*base, 4*base... between attempts. An invalid family binding is
// never retried.
func (o *Operations) FetchItemsWithRetry(ctx context.Context, maxRetries int) ([]models.Item, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		items, err := o.FetchItems(ctx)
		if err == nil {
			return items, nil
		}
		lastErr = err
		if apperr.IsKind(err, apperr.InvalidFamilyContext) {
			return nil, err
		}
		o.logger.Warn("Fetch attempt failed", "family_id", o.familyID, "attempt", attempt, "error", err)

		if attempt < maxRetries {
			delay := o.retryBase << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil, lastErr
}

// BarcodeOutcome tells the caller what ProcessBarcodeSubmit did.
type BarcodeOutcome string

const (
	// BarcodeUpdated means an existing item was incremented and persisted.
	BarcodeUpdated BarcodeOutcome = "updated"
	// BarcodeNewItemNeeded means no item matched; the caller must collect
	// descriptive fields and call AddNewItem.
	BarcodeNewItemNeeded BarcodeOutcome = "new_item_needed"
)

// BarcodeResult is the outcome of ProcessBarcodeSubmit.
type BarcodeResult struct {
	Outcome BarcodeOutcome `json:"type"`
	Item    *models.Item   `json:"updatedItem,omitempty"`
	Barcode string         `json:"barcode,omitempty"`
}

// ProcessBarcodeSubmit looks up barcode among currentItems. A match is
// incremented (capped at MaxStock) and persisted; no match only signals that
// a new item is needed, without writing anything.
func (o *Operations) ProcessBarcodeSubmit(ctx context.Context, barcode string, currentItems []models.Item) (BarcodeResult, error) {
	for _, existing := range currentItems {
		if existing.Barcode != barcode {
			continue
		}
		updated, err := o.persist(ctx, "barcode", existing.Incremented(), msgBarcodeFailed)
		if err != nil {
			return BarcodeResult{}, err
		}
		return BarcodeResult{Outcome: BarcodeUpdated, Item: &updated}, nil
	}

	return BarcodeResult{Outcome: BarcodeNewItemNeeded, Barcode: barcode}, nil
}

// AddNewItem creates an item with a fresh id and one unit in stock.
func (o *Operations) AddNewItem(ctx context.Context, details models.ItemDetails) (models.Item, error) {
	if err := o.checkFamily(); err != nil {
		o.metrics.ItemOperation("add", err)
		return models.Item{}, err
	}
	details = details.Normalized()
	if err := models.Validate(details); err != nil {
		o.metrics.ItemOperation("add", err)
		return models.Item{}, apperr.Wrap(apperr.InvalidInput, "A barcode and a name are required.", err)
	}

	item := details.Apply(models.Item{ID: o.newID(), AmountInStock: 1})
	return o.persist(ctx, "add", item, msgAddFailed)
}

// UpdateItem replaces the descriptive fields and barcode of existing,
// keeping its id and stock.
func (o *Operations) UpdateItem(ctx context.Context, existing models.Item, details models.ItemDetails) (models.Item, error) {
	if err := validateSnapshot(existing); err != nil {
		o.metrics.ItemOperation("update", err)
		return models.Item{}, err
	}
	details = details.Normalized()
	if err := models.Validate(details); err != nil {
		o.metrics.ItemOperation("update", err)
		return models.Item{}, apperr.Wrap(apperr.InvalidInput, "A barcode and a name are required.", err)
	}

	return o.persist(ctx, "update", details.Apply(existing), msgUpdateFailed)
}

// IncreaseItemStock adds one unit to the caller's snapshot of item.
// There is no server-side increment: overlapping calls on the same item
// resolve last-write-wins.
func (o *Operations) IncreaseItemStock(ctx context.Context, item models.Item) (models.Item, error) {
	if err := validateSnapshot(item); err != nil {
		o.metrics.ItemOperation("increase", err)
		return models.Item{}, err
	}
	return o.persist(ctx, "increase", item.Incremented(), msgStockFailed)
}

// DecreaseItemStock removes one unit from the caller's snapshot of item.
func (o *Operations) DecreaseItemStock(ctx context.Context, item models.Item) (models.Item, error) {
	if err := validateSnapshot(item); err != nil {
		o.metrics.ItemOperation("decrease", err)
		return models.Item{}, err
	}
	return o.persist(ctx, "decrease", item.Decremented(), msgStockFailed)
}

// RemoveItem deletes an item from the family.
func (o *Operations) RemoveItem(ctx context.Context, itemID string) error {
	if err := o.checkFamily(); err != nil {
		o.metrics.ItemOperation("remove", err)
		return err
	}
	if strings.TrimSpace(itemID) == "" {
		err := apperr.New(apperr.InvalidInput, "An item id is required.")
		o.metrics.ItemOperation("remove", err)
		return err
	}

	err := o.repo.Remove(ctx, o.familyID, itemID)
	o.metrics.ItemOperation("remove", err)
	if err != nil {
		o.logger.Error("RemoveItem failed", "family_id", o.familyID, "item_id", itemID, "error", err)
		return apperr.FromStorage(err, msgRemoveFailed)
	}

	o.logger.Info("Item removed", "family_id", o.familyID, "item_id", itemID)
	return nil
}

// persist writes item and returns it; the returned value is only meaningful
// once the write is confirmed.
func (o *Operations) persist(ctx context.Context, op string, item models.Item, failMsg string) (models.Item, error) {
	if err := o.checkFamily(); err != nil {
		o.metrics.ItemOperation(op, err)
		return models.Item{}, err
	}

	err := o.repo.Upsert(ctx, o.familyID, item)
	o.metrics.ItemOperation(op, err)
	if err != nil {
		o.logger.Error("Item write failed", "op", op, "family_id", o.familyID, "item_id", item.ID, "error", err)
		return models.Item{}, apperr.FromStorage(err, failMsg)
	}

	o.logger.Info("Item saved", "op", op, "family_id", o.familyID, "item_id", item.ID, "amount_in_stock", item.AmountInStock)
	return item, nil
}

func (o *Operations) checkFamily() error {
	if strings.TrimSpace(o.familyID) == "" {
		return apperr.New(apperr.InvalidFamilyContext,
			fmt.Sprintf("Invalid familyID: %q. Cannot access items without a valid family ID.", o.familyID))
	}
	return nil
}

func validateSnapshot(item models.Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return apperr.New(apperr.InvalidInput, "The item has no id.")
	}
	return nil
}
