package models

import "strings"

const (
	// MinStock is the lowest amountInStock an item can hold.
	MinStock = 0
	// MaxStock is the highest amountInStock an item can hold.
	MaxStock = 20
)

// Item represents a single tracked inventory entry of a family.
type Item struct {
	// ID is assigned at creation (UUID format) and never changes.
	// It is the item's key inside its family's item document.
	ID string `json:"id"`

	// Barcode is scanned or typed by the user. It is not globally unique,
	// but is used to detect "already have this item" within one family.
	Barcode string `json:"barcode" validate:"required"`

	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	Brand    string `json:"brand"`

	// Icon is either a short symbolic token or a product image URL.
	Icon string `json:"icon"`

	// AmountInStock is always within [MinStock, MaxStock].
	AmountInStock int `json:"amountInStock" validate:"min=0,max=20"`
}

// ClampStock bounds n to [MinStock, MaxStock].
func ClampStock(n int) int {
	if n < MinStock {
		return MinStock
	}
	if n > MaxStock {
		return MaxStock
	}
	return n
}

// WithStock returns a copy of the item holding the clamped amount.
func (i Item) WithStock(n int) Item {
	i.AmountInStock = ClampStock(n)
	return i
}

// Incremented returns a copy with one more unit in stock, capped at MaxStock.
func (i Item) Incremented() Item {
	return i.WithStock(i.AmountInStock + 1)
}

// Decremented returns a copy with one less unit in stock, floored at MinStock.
func (i Item) Decremented() Item {
	return i.WithStock(i.AmountInStock - 1)
}

// ItemDetails holds the descriptive fields a user supplies when creating or
// editing an item.
type ItemDetails struct {
	Barcode  string `json:"barcode" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Icon     string `json:"icon"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

// Normalized returns the details with surrounding whitespace removed.
func (d ItemDetails) Normalized() ItemDetails {
	d.Barcode = strings.TrimSpace(d.Barcode)
	d.Name = strings.TrimSpace(d.Name)
	d.Icon = strings.TrimSpace(d.Icon)
	d.Category = strings.TrimSpace(d.Category)
	d.Brand = strings.TrimSpace(d.Brand)
	return d
}

// Apply copies the descriptive fields onto the item, keeping its ID and stock.
func (d ItemDetails) Apply(item Item) Item {
	item.Barcode = d.Barcode
	item.Name = d.Name
	item.Icon = d.Icon
	item.Category = d.Category
	item.Brand = d.Brand
	return item
}
