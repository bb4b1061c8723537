package pricing

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Cart is bound to exactly one restaurant for its whole life.
type Cart struct {
	restaurantID uuid.UUID
	tableRef     string
	lines        []Line
}

func NewCart(restaurantID uuid.UUID, tableRef string) *Cart {
	return &Cart{restaurantID: restaurantID, tableRef: tableRef}
}

func (c *Cart) RestaurantID() uuid.UUID { return c.restaurantID }

func (c *Cart) TableRef() string { return c.tableRef }

// Add appends a line, or bumps the quantity of a line with the same selection.
func (c *Cart) Add(line Line) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.lines {
		if sameSelection(c.lines[i], line) {
			c.lines[i].Quantity += line.Quantity
			return nil
		}
	}

	line.Extras = append([]Extra(nil), line.Extras...)
	line.Modifiers = append([]Modifier(nil), line.Modifiers...)
	c.lines = append(c.lines, line)
	return nil
}

func (c *Cart) SetQuantity(index, qty int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c.lines[index].Quantity = qty
	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	return CartTotal(c.lines)
}

// Session holds the browsing session's single cart.
type Session struct {
	cart *Cart
}

// Cart returns the session cart for restaurantID. A cart belonging to another
// restaurant is discarded, so a cart never mixes lines from two tenants.
func (s *Session) Cart(restaurantID uuid.UUID, tableRef string) *Cart {
	if s.cart == nil || s.cart.restaurantID != restaurantID {
		s.cart = NewCart(restaurantID, tableRef)
		return s.cart
	}
	if tableRef != "" {
		s.cart.tableRef = tableRef
	}
	return s.cart
}

// Clear drops the cart, e.g. after a successful submission.
func (s *Session) Clear() {
	s.cart = nil
}
