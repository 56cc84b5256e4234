package inventory

import (
	"testing"

	"github.com/mmynk/homestock/internal/models"
)

func TestFilter(t *testing.T) {
	items := []models.Item{
		{ID: "1", Barcode: "4001", Name: "Milk", AmountInStock: 2},
		{ID: "2", Barcode: "4002", Name: "Oat Milk", AmountInStock: 0},
		{ID: "3", Barcode: "5003", Name: "Bread", AmountInStock: 1},
	}

	tests := []struct {
		name   string
		term   string
		filter FilterType
		want   []string
	}{
		{name: "everything", filter: FilterAll, want: []string{"1", "2", "3"}},
		{name: "name search is case-insensitive", term: "MILK", filter: FilterAll, want: []string{"1", "2"}},
		{name: "barcode search", term: "500", filter: FilterAll, want: []string{"3"}},
		{name: "in stock", filter: FilterInStock, want: []string{"1", "3"}},
		{name: "out of stock", filter: FilterOutOfStock, want: []string{"2"}},
		{name: "search and filter", term: "milk", filter: FilterInStock, want: []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.term, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d items, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("item %d: got %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestCountAndParseFilter(t *testing.T) {
	c := Count([]models.Item{{AmountInStock: 0}, {AmountInStock: 3}, {AmountInStock: 20}})
	if c.Total != 3 || c.InStock != 2 || c.OutOfStock != 1 {
		t.Errorf("unexpected counts: %+v", c)
	}
	if ParseFilter("inStock") != FilterInStock || ParseFilter("bogus") != FilterAll {
		t.Error("ParseFilter mismatch")
	}
}
