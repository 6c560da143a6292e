package pricing

import (
	"github.com/shopspring/decimal"
)

// OrderType identifies how an order is fulfilled.
type OrderType string

const (
	OrderTypeDineIn     OrderType = "dine_in"
	OrderTypeTakeout    OrderType = "takeout"
	OrderTypeDelivery   OrderType = "delivery"
	OrderTypePhoneOrder OrderType = "phone_order"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery, OrderTypePhoneOrder:
		return true
	default:
		return false
	}
}

// ChargeKind selects how a policy amount is derived from its configured value.
type ChargeKind string

const (
	KindPercentage ChargeKind = "percentage"
	KindFixed      ChargeKind = "fixed"
	// KindPerPerson is only accepted on service charges.
	KindPerPerson ChargeKind = "per_person"
)

// ModifierSelection is an add-on chosen for a line item. Modifiers never reduce price.
type ModifierSelection struct {
	ModifierID string          `json:"modifierId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}

// LineItem is one cart entry. LineTotal is a cached value supplied by callers
// and is never used for pricing; see LineTotal.
type LineItem struct {
	MenuItemID string              `json:"menuItemId"`
	Name       string              `json:"name"`
	Quantity   int                 `json:"quantity"`
	BasePrice  decimal.Decimal     `json:"basePrice"`
	Modifiers  []ModifierSelection `json:"modifiers"`
	LineTotal  decimal.Decimal     `json:"lineTotal"`
}

// OrderContext carries the order attributes policies are gated on.
type OrderContext struct {
	OrderType OrderType `json:"orderType"`
	PartySize int       `json:"partySize"`
}

// TaxPolicy is computed against the subtotal.
type TaxPolicy struct {
	ID                  string
	Name                string
	Kind                ChargeKind
	Rate                *float64
	AppliesToOrderTypes []OrderType
	Active              bool
}

// ServiceChargePolicy is computed against the subtotal, or subtotal plus tax
// when BaseIsSubtotal is false.
type ServiceChargePolicy struct {
	ID                  string
	Name                string
	Kind                ChargeKind
	Amount              *float64
	AppliesToOrderTypes []OrderType
	BaseIsSubtotal      bool
	MinimumOrderAmount  float64
	MaximumOrderAmount  float64
	PartySizeThreshold  float64
	Mandatory           bool
	Active              bool
}

// GratuityPolicy is an automatic tip computed against the subtotal only.
type GratuityPolicy struct {
	ID                  string
	Name                string
	Kind                ChargeKind
	Amount              *float64
	AppliesToOrderTypes []OrderType
	MinimumOrderAmount  float64
	MaximumOrderAmount  float64
	PartySizeMinimum    float64
	AutoApply           bool
	CustomerCanModify   bool
	Active              bool
}

// DiscountPolicy only applies when explicitly selected by the caller.
type DiscountPolicy struct {
	ID                  string
	Name                string
	Kind                ChargeKind
	Amount              *float64
	MinimumOrderAmount  float64
	AppliesToOrderTypes []OrderType
	Stackable           bool
	Active              bool
}

// PolicySet groups all configured policies. Entries are evaluated in slice order.
type PolicySet struct {
	Taxes          []TaxPolicy
	ServiceCharges []ServiceChargePolicy
	Gratuity       []GratuityPolicy
	Discounts      []DiscountPolicy
}

// Input is everything a single computation reads.
type Input struct {
	Cart                   []LineItem
	Policies               PolicySet
	Context                OrderContext
	AppliedDiscountIDs     []string
	// AppliedGratuityIDs opts in gratuities that are not auto-applied.
	AppliedGratuityIDs     []string
	// WaivedServiceChargeIDs removes non-mandatory service charges.
	WaivedServiceChargeIDs []string
	// GratuityOverrides replaces the computed amount of gratuities the customer may modify.
	GratuityOverrides      map[string]decimal.Decimal
}

// LineEntry is one receipt-ready row of the breakdown.
type LineEntry struct {
	PolicyID string          `json:"policyId"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Rate     decimal.Decimal `json:"rate"`
	Kind     ChargeKind      `json:"kind"`
}

// Breakdown lists applied policies per category in evaluation order.
type Breakdown struct {
	Taxes          []LineEntry `json:"taxes"`
	ServiceCharges []LineEntry `json:"serviceCharges"`
	Gratuity       []LineEntry `json:"gratuity"`
	Discounts      []LineEntry `json:"discounts"`
}

// Totals is the result of a computation and the single source of truth for
// receipts and order submission.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxTotal           decimal.Decimal `json:"taxTotal"`
	ServiceChargeTotal decimal.Decimal `json:"serviceChargeTotal"`
	GratuityTotal      decimal.Decimal `json:"gratuityTotal"`
	DiscountTotal      decimal.Decimal `json:"discountTotal"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	Breakdown          Breakdown       `json:"breakdown"`
	Issues             []Issue         `json:"issues"`
}
