package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// LineTotal recomputes (base price + modifier prices) × quantity. Negative
// modifier prices count as zero.
func LineTotal(item LineItem) decimal.Decimal {
	unit := item.BasePrice
	for _, m := range item.Modifiers {
		if m.Price.IsPositive() {
			unit = unit.Add(m.Price)
		}
	}
	return unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal sums the recomputed totals of all usable cart lines.
func Subtotal(cart []LineItem) decimal.Decimal {
	subtotal, _, _ := aggregate(cart)
	return subtotal
}

// aggregate returns the subtotal, the number of lines that contributed to it
// and the issues found along the way.
func aggregate(cart []LineItem) (decimal.Decimal, int, []Issue) {
	subtotal := decimal.Zero
	usable := 0
	var issues []Issue
	for i, item := range cart {
		ref := lineRef(i, item)
		if item.Quantity <= 0 {
			issues = append(issues, Issue{Category: CategoryCart, Ref: ref, Name: item.Name, Reason: ReasonInvalidQuantity})
			continue
		}
		if item.BasePrice.IsNegative() {
			issues = append(issues, Issue{Category: CategoryCart, Ref: ref, Name: item.Name, Reason: ReasonInvalidPrice})
			continue
		}
		for _, m := range item.Modifiers {
			if m.Price.IsNegative() {
				issues = append(issues, Issue{Category: CategoryCart, Ref: ref, Name: m.Name, Reason: ReasonInvalidModifierPrice})
			}
		}
		subtotal = subtotal.Add(LineTotal(item))
		usable++
	}
	return subtotal, usable, issues
}

func lineRef(index int, item LineItem) string {
	if item.MenuItemID != "" {
		return item.MenuItemID
	}
	return "line:" + strconv.Itoa(index)
}
