package models

import "testing"

func TestClampStock(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "negative floors at zero", in: -3, want: 0},
		{name: "zero stays", in: 0, want: 0},
		{name: "middle stays", in: 7, want: 7},
		{name: "max stays", in: 20, want: 20},
		{name: "above max caps", in: 21, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampStock(tt.in); got != tt.want {
				t.Errorf("ClampStock(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIncrementedNeverExceedsMax(t *testing.T) {
	item := Item{ID: "i1", AmountInStock: 19}

	item = item.Incremented()
	if item.AmountInStock != 20 {
		t.Fatalf("first increment: got %d, want 20", item.AmountInStock)
	}
	item = item.Incremented()
	if item.AmountInStock != 20 {
		t.Fatalf("second increment: got %d, want 20", item.AmountInStock)
	}
}

func TestDecrementedNeverBelowZero(t *testing.T) {
	item := Item{ID: "i1", AmountInStock: 1}
	for i := 0; i < 5; i++ {
		item = item.Decremented()
		if item.AmountInStock < MinStock {
			t.Fatalf("step %d: stock went negative: %d", i, item.AmountInStock)
		}
	}
	if item.AmountInStock != 0 {
		t.Errorf("got %d, want 0", item.AmountInStock)
	}
}

func TestItemDetailsApplyKeepsIdentityAndStock(t *testing.T) {
	item := Item{ID: "i1", Barcode: "111", Name: "Milk", AmountInStock: 5}
	updated := ItemDetails{Barcode: "222", Name: "Oat milk", Icon: "🥛", Category: "dairy", Brand: "Oatly"}.Apply(item)

	if updated.ID != "i1" {
		t.Errorf("ID changed: got %s", updated.ID)
	}
	if updated.AmountInStock != 5 {
		t.Errorf("stock changed: got %d", updated.AmountInStock)
	}
	if updated.Barcode != "222" || updated.Name != "Oat milk" || updated.Brand != "Oatly" {
		t.Errorf("details not applied: %+v", updated)
	}
	if item.Name != "Milk" {
		t.Error("Apply mutated the original item")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(ItemDetails{Barcode: "111", Name: "Milk"}); err != nil {
		t.Errorf("valid details rejected: %v", err)
	}
	if err := Validate(ItemDetails{Barcode: "111"}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := Validate(User{Username: "bob", Email: "not-an-email"}); err == nil {
		t.Error("expected error for malformed email")
	}
}

func TestItemDetailsNormalized(t *testing.T) {
	d := ItemDetails{Barcode: " 123 ", Name: "\tMilk\n", Brand: "  "}.Normalized()
	if d.Barcode != "123" || d.Name != "Milk" || d.Brand != "" {
		t.Fatalf("unexpected normalized details: %+v", d)
	}
	if err := Validate(ItemDetails{Barcode: "123", Name: "  "}.Normalized()); err == nil {
		t.Fatal("expected blank name to fail validation")
	}
}
