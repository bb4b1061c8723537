// Package pricing computes line and cart totals from a product selection.
// Everything here is pure: no I/O, no clocks, safe to call on every quantity change.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places money is kept at.
const MinorUnits = 2

type Product struct {
	ID        uuid.UUID
	Name      string
	BasePrice decimal.Decimal
}

type Variant struct {
	ID         uuid.UUID
	Name       string
	PriceDelta decimal.Decimal
}

// Extra is a flat-priced add-on.
type Extra struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Modifier is one chosen option of a modifier group.
type Modifier struct {
	GroupID    uuid.UUID
	GroupName  string
	OptionID   uuid.UUID
	OptionName string
	PriceDelta decimal.Decimal
}

// UnitPrice is base price + variant delta + every extra + every modifier delta.
func UnitPrice(product Product, variant *Variant, extras []Extra, modifiers []Modifier) decimal.Decimal {
	unit := product.BasePrice
	if variant != nil {
		unit = unit.Add(variant.PriceDelta)
	}
	for _, e := range extras {
		unit = unit.Add(e.Price)
	}
	for _, m := range modifiers {
		unit = unit.Add(m.PriceDelta)
	}
	return unit
}

// LineTotal multiplies the unit price by quantity. Quantity is validated by the caller.
func LineTotal(product Product, variant *Variant, extras []Extra, modifiers []Modifier, qty int) decimal.Decimal {
	return UnitPrice(product, variant, extras, modifiers).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(MinorUnits)
}

// CartTotal sums line totals.
func CartTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total.Round(MinorUnits)
}

// Line is one product selection. Its totals are derived on every call and never stored.
type Line struct {
	Product   Product
	Variant   *Variant
	Extras    []Extra
	Modifiers []Modifier
	Quantity  int
	Note      string
}

func (l Line) UnitPrice() decimal.Decimal {
	return UnitPrice(l.Product, l.Variant, l.Extras, l.Modifiers)
}

func (l Line) Total() decimal.Decimal {
	return LineTotal(l.Product, l.Variant, l.Extras, l.Modifiers, l.Quantity)
}

// sameSelection reports whether two lines differ only by quantity.
func sameSelection(a, b Line) bool {
	if a.Product.ID != b.Product.ID || a.Note != b.Note {
		return false
	}
	if (a.Variant == nil) != (b.Variant == nil) {
		return false
	}
	if a.Variant != nil && a.Variant.ID != b.Variant.ID {
		return false
	}
	if len(a.Extras) != len(b.Extras) || len(a.Modifiers) != len(b.Modifiers) {
		return false
	}

	extras := make(map[uuid.UUID]int, len(a.Extras))
	for _, e := range a.Extras {
		extras[e.ID]++
	}
	for _, e := range b.Extras {
		if extras[e.ID] == 0 {
			return false
		}
		extras[e.ID]--
	}

	options := make(map[uuid.UUID]int, len(a.Modifiers))
	for _, m := range a.Modifiers {
		options[m.OptionID]++
	}
	for _, m := range b.Modifiers {
		if options[m.OptionID] == 0 {
			return false
		}
		options[m.OptionID]--
	}
	return true
}
