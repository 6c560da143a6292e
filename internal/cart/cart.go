package cart

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrInvalidInput is returned when a line item or index is rejected.
var ErrInvalidInput = errors.New("invalid input")

// Cart is an immutable snapshot of order contents. Every mutation returns a
// new Cart and leaves the receiver untouched.
type Cart struct {
	items []pricing.LineItem
}

// New builds a cart from the provided lines, keeping their order.
func New(items ...pricing.LineItem) (Cart, error) {
	out := make([]pricing.LineItem, 0, len(items))
	for i, item := range items {
		if err := validate(item); err != nil {
			return Cart{}, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, cloneItem(item))
	}
	return Cart{items: out}, nil
}

// Add appends a line or, when a line with the same menu item, base price and
// priced modifier set already exists, returns a cart with that line's quantity
// increased.
func (c Cart) Add(item pricing.LineItem) (Cart, error) {
	if err := validate(item); err != nil {
		return c, err
	}
	next := c.clone()
	for i := range next.items {
		if sameLine(next.items[i], item) {
			next.items[i].Quantity += item.Quantity
			next.items[i].LineTotal = pricing.LineTotal(next.items[i])
			return next, nil
		}
	}
	next.items = append(next.items, cloneItem(item))
	return next, nil
}

// SetQuantity returns a cart with the line at index set to qty. A quantity
// of zero or less removes the line.
func (c Cart) SetQuantity(index, qty int) (Cart, error) {
	if index < 0 || index >= len(c.items) {
		return c, fmt.Errorf("%w: line %d out of range", ErrInvalidInput, index)
	}
	if qty <= 0 {
		return c.Remove(index)
	}
	next := c.clone()
	next.items[index].Quantity = qty
	next.items[index].LineTotal = pricing.LineTotal(next.items[index])
	return next, nil
}

// Remove returns a cart without the line at index.
func (c Cart) Remove(index int) (Cart, error) {
	if index < 0 || index >= len(c.items) {
		return c, fmt.Errorf("%w: line %d out of range", ErrInvalidInput, index)
	}
	next := c.clone()
	next.items = slices.Delete(next.items, index, index+1)
	return next, nil
}

// Items returns a copy of the cart lines.
func (c Cart) Items() []pricing.LineItem {
	return c.clone().items
}

// Len reports the number of lines.
func (c Cart) Len() int { return len(c.items) }

// Subtotal is the recomputed sum of all line totals.
func (c Cart) Subtotal() decimal.Decimal {
	return pricing.Subtotal(c.items)
}

func (c Cart) clone() Cart {
	out := make([]pricing.LineItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, cloneItem(item))
	}
	return Cart{items: out}
}

func cloneItem(item pricing.LineItem) pricing.LineItem {
	item.MenuItemID = strings.TrimSpace(item.MenuItemID)
	if item.Modifiers != nil {
		item.Modifiers = append([]pricing.ModifierSelection(nil), item.Modifiers...)
	}
	item.LineTotal = pricing.LineTotal(item)
	return item
}

func validate(item pricing.LineItem) error {
	if strings.TrimSpace(item.MenuItemID) == "" {
		return fmt.Errorf("%w: menuItemId is required", ErrInvalidInput)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if item.BasePrice.IsNegative() {
		return fmt.Errorf("%w: basePrice must not be negative", ErrInvalidInput)
	}
	for _, m := range item.Modifiers {
		if m.Price.IsNegative() {
			return fmt.Errorf("%w: modifier %q price must not be negative", ErrInvalidInput, m.Name)
		}
	}
	return nil
}

// sameLine reports whether two lines may be merged: same menu item and base
// price, and the same modifiers at the same prices regardless of selection
// order.
func sameLine(a, b pricing.LineItem) bool {
	if strings.TrimSpace(a.MenuItemID) != strings.TrimSpace(b.MenuItemID) || !a.BasePrice.Equal(b.BasePrice) {
		return false
	}
	if len(a.Modifiers) != len(b.Modifiers) {
		return false
	}
	am, bm := sortedModifiers(a.Modifiers), sortedModifiers(b.Modifiers)
	for i := range am {
		if am[i].ModifierID != bm[i].ModifierID || !am[i].Price.Equal(bm[i].Price) {
			return false
		}
	}
	return true
}

func sortedModifiers(mods []pricing.ModifierSelection) []pricing.ModifierSelection {
	out := slices.Clone(mods)
	slices.SortFunc(out, func(x, y pricing.ModifierSelection) int {
		if c := strings.Compare(x.ModifierID, y.ModifierID); c != 0 {
			return c
		}
		return x.Price.Cmp(y.Price)
	})
	return out
}
