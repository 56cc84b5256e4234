package inventory

import (
	"strings"

	"github.com/mmynk/homestock/internal/models"
)

// FilterType narrows a listing by stock state.
type FilterType string

const (
	FilterAll        FilterType = "all"
	FilterInStock    FilterType = "inStock"
	FilterOutOfStock FilterType = "outOfStock"
)

// ParseFilter maps a query value to a FilterType, defaulting to FilterAll.
func ParseFilter(s string) FilterType {
	switch FilterType(s) {
	case FilterInStock, FilterOutOfStock:
		return FilterType(s)
	default:
		return FilterAll
	}
}

// Filter returns the items whose name contains term (case-insensitive) or
// whose barcode contains term, restricted by filter.
func Filter(items []models.Item, term string, filter FilterType) []models.Item {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		matchesSearch := term == "" ||
			strings.Contains(strings.ToLower(item.Name), term) ||
			strings.Contains(item.Barcode, term)

		matchesFilter := filter == FilterAll || filter == "" ||
			(filter == FilterInStock && item.AmountInStock > 0) ||
			(filter == FilterOutOfStock && item.AmountInStock == 0)

		if matchesSearch && matchesFilter {
			out = append(out, item)
		}
	}
	return out
}

// Counts summarizes stock state for a listing header.
type Counts struct {
	Total      int `json:"total"`
	InStock    int `json:"inStock"`
	OutOfStock int `json:"outOfStock"`
}

// Count tallies items by stock state.
func Count(items []models.Item) Counts {
	c := Counts{Total: len(items)}
	for _, item := range items {
		if item.AmountInStock > 0 {
			c.InStock++
		} else {
			c.OutOfStock++
		}
	}
	return c
}
