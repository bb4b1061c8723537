package orders

import (
	"fmt"

	"dinein-system/internal/database/models"
	"dinein-system/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Selection is what a customer picked for one line, by id only. Prices are
// always taken from the catalog, never from the client.
type Selection struct {
	ProductID uuid.UUID   `json:"product_id" binding:"required"`
	VariantID *uuid.UUID  `json:"variant_id,omitempty"`
	ExtraIDs  []uuid.UUID `json:"extra_ids,omitempty"`
	OptionIDs []uuid.UUID `json:"option_ids,omitempty"`
	Quantity  int         `json:"quantity" binding:"required,min=1"`
	Note      string      `json:"note,omitempty"`
}

// SelectionError points at the offending line of a request.
type SelectionError struct {
	Index  int
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}

func selectionErr(i int, format string, args ...interface{}) *SelectionError {
	return &SelectionError{Index: i, Reason: fmt.Sprintf(format, args...)}
}

func productIDs(items []Selection) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

// buildCart checks every selection against the loaded catalog and prices it.
// Identical selections are merged into one line.
func buildCart(restaurantID uuid.UUID, tableRef string, items []Selection, products map[uuid.UUID]models.Product) (*pricing.Cart, error) {
	if len(items) == 0 {
		return nil, &SelectionError{Index: -1, Reason: "order has no items"}
	}

	cart := pricing.NewCart(restaurantID, tableRef)
	for i, sel := range items {
		line, err := resolveLine(i, sel, products)
		if err != nil {
			return nil, err
		}
		if err := cart.Add(line); err != nil {
			return nil, selectionErr(i, "%v", err)
		}
	}
	return cart, nil
}

func resolveLine(i int, sel Selection, products map[uuid.UUID]models.Product) (pricing.Line, error) {
	if sel.Quantity < 1 {
		return pricing.Line{}, selectionErr(i, "quantity must be at least 1")
	}

	product, ok := products[sel.ProductID]
	if !ok {
		return pricing.Line{}, selectionErr(i, "product %s not found", sel.ProductID)
	}
	if !product.IsAvailable {
		return pricing.Line{}, selectionErr(i, "%s is not available", product.Name)
	}

	line := pricing.Line{
		Product: pricing.Product{
			ID:        product.ID,
			Name:      product.Name,
			BasePrice: product.BasePrice,
		},
		Quantity: sel.Quantity,
		Note:     sel.Note,
	}

	if sel.VariantID != nil {
		var found bool
		for _, v := range product.Variants {
			if v.ID == *sel.VariantID {
				line.Variant = &pricing.Variant{ID: v.ID, Name: v.Name, PriceDelta: v.PriceDelta}
				found = true
				break
			}
		}
		if !found {
			return pricing.Line{}, selectionErr(i, "variant %s does not belong to %s", *sel.VariantID, product.Name)
		}
	}

	extras := make(map[uuid.UUID]models.ProductExtra, len(product.Extras))
	for _, e := range product.Extras {
		extras[e.ID] = e
	}
	for _, id := range sel.ExtraIDs {
		e, ok := extras[id]
		if !ok {
			return pricing.Line{}, selectionErr(i, "extra %s does not belong to %s", id, product.Name)
		}
		line.Extras = append(line.Extras, pricing.Extra{ID: e.ID, Name: e.Name, Price: e.Price})
	}

	modifiers, err := resolveModifiers(i, product, sel.OptionIDs)
	if err != nil {
		return pricing.Line{}, err
	}
	line.Modifiers = modifiers
	return line, nil
}

func resolveModifiers(i int, product models.Product, optionIDs []uuid.UUID) ([]pricing.Modifier, error) {
	type owned struct {
		group  models.ModifierGroup
		option models.ModifierOption
	}
	options := make(map[uuid.UUID]owned)
	for _, g := range product.ModifierGroups {
		for _, o := range g.Options {
			options[o.ID] = owned{group: g, option: o}
		}
	}

	picked := make(map[uuid.UUID]int32, len(product.ModifierGroups))
	seen := make(map[uuid.UUID]bool, len(optionIDs))
	modifiers := make([]pricing.Modifier, 0, len(optionIDs))
	for _, id := range optionIDs {
		o, ok := options[id]
		if !ok {
			return nil, selectionErr(i, "option %s does not belong to %s", id, product.Name)
		}
		if seen[id] {
			return nil, selectionErr(i, "option %s selected twice", o.option.Name)
		}
		seen[id] = true
		picked[o.group.ID]++
		modifiers = append(modifiers, pricing.Modifier{
			GroupID:    o.group.ID,
			GroupName:  o.group.Name,
			OptionID:   o.option.ID,
			OptionName: o.option.Name,
			PriceDelta: o.option.PriceDelta,
		})
	}

	for _, g := range product.ModifierGroups {
		n := picked[g.ID]
		if n < g.MinSelect {
			return nil, selectionErr(i, "%s needs at least %d choice(s)", g.Name, g.MinSelect)
		}
		if g.MaxSelect > 0 && n > g.MaxSelect {
			return nil, selectionErr(i, "%s allows at most %d choice(s)", g.Name, g.MaxSelect)
		}
	}
	return modifiers, nil
}

// freeze copies every price of a line onto a persisted order item.
func freeze(line pricing.Line) models.OrderItem {
	item := models.OrderItem{
		ProductID:    line.Product.ID,
		ProductName:  line.Product.Name,
		BasePrice:    line.Product.BasePrice,
		VariantDelta: decimal.Zero,
		Extras:       make([]models.FrozenExtra, 0, len(line.Extras)),
		Modifiers:    make([]models.FrozenModifier, 0, len(line.Modifiers)),
		UnitPrice:    line.UnitPrice().Round(pricing.MinorUnits),
		Quantity:     int32(line.Quantity),
		LineTotal:    line.Total(),
		Note:         line.Note,
	}
	if line.Variant != nil {
		id := line.Variant.ID
		item.VariantID = &id
		item.VariantName = line.Variant.Name
		item.VariantDelta = line.Variant.PriceDelta
	}
	for _, e := range line.Extras {
		item.Extras = append(item.Extras, models.FrozenExtra{ID: e.ID, Name: e.Name, Price: e.Price})
	}
	for _, m := range line.Modifiers {
		item.Modifiers = append(item.Modifiers, models.FrozenModifier{
			GroupID:    m.GroupID,
			GroupName:  m.GroupName,
			OptionID:   m.OptionID,
			OptionName: m.OptionName,
			PriceDelta: m.PriceDelta,
		})
	}
	return item
}
