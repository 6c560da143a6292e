package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnreconciled is returned by Verify when totals do not add up.
var ErrUnreconciled = errors.New("pricing: totals do not reconcile")

// Round returns a copy with the subtotal and every breakdown amount rounded
// half away from zero to places. Category totals are re-summed from the
// rounded entries and the grand total is recomputed, so the rounded copy
// reconciles on its own.
func (t Totals) Round(places int32) Totals {
	out := Totals{
		Subtotal: t.Subtotal.Round(places),
		Issues:   append([]Issue{}, t.Issues...),
	}
	out.Breakdown.Taxes, out.TaxTotal = roundEntries(t.Breakdown.Taxes, places)
	out.Breakdown.ServiceCharges, out.ServiceChargeTotal = roundEntries(t.Breakdown.ServiceCharges, places)
	out.Breakdown.Gratuity, out.GratuityTotal = roundEntries(t.Breakdown.Gratuity, places)
	out.Breakdown.Discounts, out.DiscountTotal = roundEntries(t.Breakdown.Discounts, places)
	out.GrandTotal = out.Subtotal.
		Add(out.TaxTotal).
		Add(out.ServiceChargeTotal).
		Add(out.GratuityTotal).
		Sub(out.DiscountTotal)
	return out
}

func roundEntries(entries []LineEntry, places int32) ([]LineEntry, decimal.Decimal) {
	out := make([]LineEntry, 0, len(entries))
	total := decimal.Zero
	for _, e := range entries {
		e.Amount = e.Amount.Round(places)
		total = total.Add(e.Amount)
		out = append(out, e)
	}
	return out, total
}

// Verify checks the reconciliation law: every category total equals the sum
// of its breakdown and the grand total equals
// subtotal + tax + service charges + gratuity − discounts.
func (t Totals) Verify() error {
	checks := []struct {
		name    string
		total   decimal.Decimal
		entries []LineEntry
	}{
		{"tax", t.TaxTotal, t.Breakdown.Taxes},
		{"service charge", t.ServiceChargeTotal, t.Breakdown.ServiceCharges},
		{"gratuity", t.GratuityTotal, t.Breakdown.Gratuity},
		{"discount", t.DiscountTotal, t.Breakdown.Discounts},
	}
	for _, c := range checks {
		sum := decimal.Zero
		for _, e := range c.entries {
			sum = sum.Add(e.Amount)
		}
		if !sum.Equal(c.total) {
			return fmt.Errorf("%w: %s total %s, breakdown sums to %s", ErrUnreconciled, c.name, c.total, sum)
		}
	}
	want := t.Subtotal.Add(t.TaxTotal).Add(t.ServiceChargeTotal).Add(t.GratuityTotal).Sub(t.DiscountTotal)
	if !want.Equal(t.GrandTotal) {
		return fmt.Errorf("%w: grand total %s, components sum to %s", ErrUnreconciled, t.GrandTotal, want)
	}
	return nil
}
