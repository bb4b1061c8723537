package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func burger() Product {
	return Product{ID: uuid.New(), Name: "Burger", BasePrice: money("100.00")}
}

func TestLineTotalScenario(t *testing.T) {
	variant := &Variant{ID: uuid.New(), Name: "Double", PriceDelta: money("20.00")}
	extras := []Extra{{ID: uuid.New(), Name: "Bacon", Price: money("25.00")}}

	got := LineTotal(burger(), variant, extras, nil, 2)
	if !got.Equal(money("290.00")) {
		t.Errorf("LineTotal = %s, want 290.00", got.StringFixed(2))
	}
}

func TestLineTotalIsLinearInQuantity(t *testing.T) {
	product := Product{ID: uuid.New(), BasePrice: money("12.35")}
	variant := &Variant{ID: uuid.New(), PriceDelta: money("-1.10")}
	extras := []Extra{
		{ID: uuid.New(), Price: money("0.99")},
		{ID: uuid.New(), Price: money("2.50")},
	}
	modifiers := []Modifier{
		{GroupID: uuid.New(), OptionID: uuid.New(), PriceDelta: money("0.45")},
	}

	one := LineTotal(product, variant, extras, modifiers, 1)
	for _, n := range []int{1, 2, 3, 7, 50} {
		got := LineTotal(product, variant, extras, modifiers, n)
		want := one.Mul(decimal.NewFromInt(int64(n)))
		if !got.Equal(want) {
			t.Errorf("qty %d: LineTotal = %s, want %s", n, got, want)
		}
	}
}

func TestUnitPriceWithoutOptionalParts(t *testing.T) {
	got := UnitPrice(burger(), nil, nil, nil)
	if !got.Equal(money("100")) {
		t.Errorf("UnitPrice = %s, want 100", got)
	}
}

func TestCartTotal(t *testing.T) {
	lines := []Line{
		{Product: burger(), Quantity: 1},
		{Product: Product{ID: uuid.New(), BasePrice: money("3.20")}, Quantity: 3},
	}
	got := CartTotal(lines)
	if !got.Equal(money("109.60")) {
		t.Errorf("CartTotal = %s, want 109.60", got)
	}
	if !CartTotal(nil).Equal(decimal.Zero) {
		t.Errorf("empty cart total should be zero")
	}
}

func TestCartAddMergesSameSelection(t *testing.T) {
	cart := NewCart(uuid.New(), "T1")
	p := burger()
	bacon := Extra{ID: uuid.New(), Price: money("25")}

	if err := cart.Add(Line{Product: p, Extras: []Extra{bacon}, Quantity: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cart.Add(Line{Product: p, Extras: []Extra{bacon}, Quantity: 2}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cart.Add(Line{Product: p, Quantity: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if cart.Len() != 2 {
		t.Fatalf("Len = %d, want 2", cart.Len())
	}
	if q := cart.Lines()[0].Quantity; q != 3 {
		t.Errorf("merged quantity = %d, want 3", q)
	}
	if !cart.Subtotal().Equal(money("475")) {
		t.Errorf("Subtotal = %s, want 475", cart.Subtotal())
	}
}

func TestCartRejectsInvalidQuantity(t *testing.T) {
	cart := NewCart(uuid.New(), "")
	if err := cart.Add(Line{Product: burger(), Quantity: 0}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Add qty 0: err = %v, want ErrInvalidQuantity", err)
	}
	_ = cart.Add(Line{Product: burger(), Quantity: 1})
	if err := cart.SetQuantity(0, -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("SetQuantity -1: err = %v, want ErrInvalidQuantity", err)
	}
	if err := cart.SetQuantity(4, 1); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("SetQuantity out of range: err = %v, want ErrLineNotFound", err)
	}
}

func TestCartMutationsRecomputeTotals(t *testing.T) {
	cart := NewCart(uuid.New(), "")
	_ = cart.Add(Line{Product: burger(), Quantity: 1})
	_ = cart.Add(Line{Product: Product{ID: uuid.New(), BasePrice: money("10")}, Quantity: 1})

	if err := cart.SetQuantity(1, 4); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if !cart.Subtotal().Equal(money("140")) {
		t.Errorf("after SetQuantity subtotal = %s, want 140", cart.Subtotal())
	}
	if err := cart.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !cart.Subtotal().Equal(money("40")) {
		t.Errorf("after Remove subtotal = %s, want 40", cart.Subtotal())
	}
	cart.Clear()
	if cart.Len() != 0 || !cart.Subtotal().IsZero() {
		t.Errorf("Clear left %d lines", cart.Len())
	}
}

func TestSessionSwitchingRestaurantClearsCart(t *testing.T) {
	var s Session
	first := uuid.New()

	cart := s.Cart(first, "T1")
	_ = cart.Add(Line{Product: burger(), Quantity: 1})

	if same := s.Cart(first, ""); same.Len() != 1 || same.TableRef() != "T1" {
		t.Fatalf("same restaurant should keep the cart, got %d lines table %q", same.Len(), same.TableRef())
	}

	other := s.Cart(uuid.New(), "T9")
	if other.Len() != 0 {
		t.Errorf("switching restaurant should start an empty cart, got %d lines", other.Len())
	}
	if back := s.Cart(first, "T1"); back.Len() != 0 {
		t.Errorf("returning to the first restaurant must not resurrect old lines")
	}

	s.Clear()
	if fresh := s.Cart(first, ""); fresh.Len() != 0 {
		t.Errorf("Clear should drop the cart")
	}
}
