// Package pricing turns a cart, a policy set and an order context into
// reconciled totals. Stages run in a fixed order: taxes, service charges,
// gratuity, discounts. Compute is pure and safe for concurrent use.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Compute evaluates every policy against the cart and returns the totals with
// their breakdown. Malformed entries are skipped and reported in Totals.Issues;
// Compute never fails.
func Compute(in Input) Totals {
	subtotal, usable, issues := aggregate(in.Cart)
	totals := Totals{
		Subtotal:           decimal.Zero,
		TaxTotal:           decimal.Zero,
		ServiceChargeTotal: decimal.Zero,
		GratuityTotal:      decimal.Zero,
		DiscountTotal:      decimal.Zero,
		GrandTotal:         decimal.Zero,
		Breakdown: Breakdown{
			Taxes:          []LineEntry{},
			ServiceCharges: []LineEntry{},
			Gratuity:       []LineEntry{},
			Discounts:      []LineEntry{},
		},
		Issues: append([]Issue{}, issues...),
	}
	if usable == 0 {
		return totals
	}

	c := &composer{
		in:        in,
		orderType: in.Context.OrderType,
		partySize: in.Context.PartySize,
		subtotal:  subtotal,
		totals:    &totals,
	}
	if c.partySize < 1 {
		c.partySize = 1
	}

	totals.Subtotal = subtotal
	totals.TaxTotal = c.applyTaxes()
	totals.ServiceChargeTotal = c.applyServiceCharges(totals.TaxTotal)
	totals.GratuityTotal = c.applyGratuity()
	totals.DiscountTotal = c.applyDiscounts()
	totals.GrandTotal = subtotal.
		Add(totals.TaxTotal).
		Add(totals.ServiceChargeTotal).
		Add(totals.GratuityTotal).
		Sub(totals.DiscountTotal)
	if totals.GrandTotal.IsNegative() {
		totals.Issues = append(totals.Issues, Issue{Category: CategoryTotal, Reason: ReasonNegativeGrandTotal})
	}
	return totals
}

type composer struct {
	in        Input
	orderType OrderType
	partySize int
	subtotal  decimal.Decimal
	totals    *Totals
}

func (c *composer) issue(category Category, id, name string, reason Reason) {
	c.totals.Issues = append(c.totals.Issues, Issue{Category: category, Ref: id, Name: name, Reason: reason})
}

// settle clamps a computed amount at zero, recording the clamp.
func (c *composer) settle(category Category, id, name string, amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		c.issue(category, id, name, ReasonNegativeClamped)
		return decimal.Zero
	}
	return amount
}

func (c *composer) applyTaxes() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.in.Policies.Taxes {
		if !p.Active {
			continue
		}
		rate, ok := configuredValue(p.Rate)
		if !ok {
			c.issue(CategoryTax, p.ID, p.Name, ReasonMalformedAmount)
			continue
		}
		if !supportsKind(p.Kind, false) {
			c.issue(CategoryTax, p.ID, p.Name, ReasonUnsupportedKind)
			continue
		}
		if !appliesToOrderType(p.AppliesToOrderTypes, c.orderType) {
			continue
		}
		amount := c.settle(CategoryTax, p.ID, p.Name, charge(p.Kind, rate, c.subtotal, c.partySize))
		c.totals.Breakdown.Taxes = append(c.totals.Breakdown.Taxes, LineEntry{
			PolicyID: p.ID,
			Name:     p.Name,
			Amount:   amount,
			Rate:     rate,
			Kind:     p.Kind,
		})
		total = total.Add(amount)
	}
	return total
}

func (c *composer) applyServiceCharges(taxTotal decimal.Decimal) decimal.Decimal {
	waived := newIDSet(c.in.WaivedServiceChargeIDs)
	total := decimal.Zero
	for _, p := range c.in.Policies.ServiceCharges {
		if !p.Active {
			continue
		}
		value, ok := configuredValue(p.Amount)
		if !ok {
			c.issue(CategoryServiceCharge, p.ID, p.Name, ReasonMalformedAmount)
			continue
		}
		bounds, ok := newAmountBounds(p.MinimumOrderAmount, p.MaximumOrderAmount)
		if !ok {
			c.issue(CategoryServiceCharge, p.ID, p.Name, ReasonMalformedBound)
			continue
		}
		minParty, ok := newPartySizeFilter(p.PartySizeThreshold)
		if !ok {
			c.issue(CategoryServiceCharge, p.ID, p.Name, ReasonMalformedPartySize)
			continue
		}
		if !supportsKind(p.Kind, true) {
			c.issue(CategoryServiceCharge, p.ID, p.Name, ReasonUnsupportedKind)
			continue
		}
		base := c.subtotal
		if !p.BaseIsSubtotal {
			base = base.Add(taxTotal)
		}
		if !appliesToOrderType(p.AppliesToOrderTypes, c.orderType) ||
			!bounds.admits(base) ||
			!partySizeAdmits(minParty, c.partySize) {
			continue
		}
		if waived.has(p.ID) {
			if !p.Mandatory {
				continue
			}
			c.issue(CategoryServiceCharge, p.ID, p.Name, ReasonWaiverNotAllowed)
		}
		amount := c.settle(CategoryServiceCharge, p.ID, p.Name, charge(p.Kind, value, base, c.partySize))
		c.totals.Breakdown.ServiceCharges = append(c.totals.Breakdown.ServiceCharges, LineEntry{
			PolicyID: p.ID,
			Name:     p.Name,
			Amount:   amount,
			Rate:     value,
			Kind:     p.Kind,
		})
		total = total.Add(amount)
	}
	return total
}

func (c *composer) applyGratuity() decimal.Decimal {
	optedIn := newIDSet(c.in.AppliedGratuityIDs)
	total := decimal.Zero
	for _, p := range c.in.Policies.Gratuity {
		if !p.Active {
			continue
		}
		if !p.AutoApply && !optedIn.has(p.ID) {
			continue
		}
		value, ok := configuredValue(p.Amount)
		if !ok {
			c.issue(CategoryGratuity, p.ID, p.Name, ReasonMalformedAmount)
			continue
		}
		bounds, ok := newAmountBounds(p.MinimumOrderAmount, p.MaximumOrderAmount)
		if !ok {
			c.issue(CategoryGratuity, p.ID, p.Name, ReasonMalformedBound)
			continue
		}
		minParty, ok := newPartySizeFilter(p.PartySizeMinimum)
		if !ok {
			c.issue(CategoryGratuity, p.ID, p.Name, ReasonMalformedPartySize)
			continue
		}
		if !supportsKind(p.Kind, false) {
			c.issue(CategoryGratuity, p.ID, p.Name, ReasonUnsupportedKind)
			continue
		}
		if !appliesToOrderType(p.AppliesToOrderTypes, c.orderType) ||
			!bounds.admits(c.subtotal) ||
			!partySizeAdmits(minParty, c.partySize) {
			continue
		}
		amount := charge(p.Kind, value, c.subtotal, c.partySize)
		if override, ok := c.in.GratuityOverrides[p.ID]; ok && p.ID != "" {
			if p.CustomerCanModify {
				amount = override
			} else {
				c.issue(CategoryGratuity, p.ID, p.Name, ReasonOverrideNotAllowed)
			}
		}
		amount = c.settle(CategoryGratuity, p.ID, p.Name, amount)
		c.totals.Breakdown.Gratuity = append(c.totals.Breakdown.Gratuity, LineEntry{
			PolicyID: p.ID,
			Name:     p.Name,
			Amount:   amount,
			Rate:     value,
			Kind:     p.Kind,
		})
		total = total.Add(amount)
	}
	return total
}

// applyDiscounts sums explicitly applied discounts. Stackable is not enforced.
func (c *composer) applyDiscounts() decimal.Decimal {
	applied := newIDSet(c.in.AppliedDiscountIDs)
	total := decimal.Zero
	for _, p := range c.in.Policies.Discounts {
		if !p.Active || !applied.has(p.ID) {
			continue
		}
		value, ok := configuredValue(p.Amount)
		if !ok {
			c.issue(CategoryDiscount, p.ID, p.Name, ReasonMalformedAmount)
			continue
		}
		bounds, ok := newAmountBounds(p.MinimumOrderAmount, 0)
		if !ok {
			c.issue(CategoryDiscount, p.ID, p.Name, ReasonMalformedBound)
			continue
		}
		if !supportsKind(p.Kind, false) {
			c.issue(CategoryDiscount, p.ID, p.Name, ReasonUnsupportedKind)
			continue
		}
		if !appliesToOrderType(p.AppliesToOrderTypes, c.orderType) || !bounds.admits(c.subtotal) {
			continue
		}
		amount := c.settle(CategoryDiscount, p.ID, p.Name, charge(p.Kind, value, c.subtotal, c.partySize))
		c.totals.Breakdown.Discounts = append(c.totals.Breakdown.Discounts, LineEntry{
			PolicyID: p.ID,
			Name:     p.Name,
			Amount:   amount,
			Rate:     value,
			Kind:     p.Kind,
		})
		total = total.Add(amount)
	}
	return total
}
