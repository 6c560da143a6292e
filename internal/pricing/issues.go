package pricing

// Category names the stage an Issue was raised in.
type Category string

const (
	CategoryCart          Category = "cart"
	CategoryTax           Category = "tax"
	CategoryServiceCharge Category = "service_charge"
	CategoryGratuity      Category = "gratuity"
	CategoryDiscount      Category = "discount"
	CategoryTotal         Category = "total"
)

// Reason describes why an Issue was recorded.
type Reason string

const (
	ReasonInvalidQuantity      Reason = "invalid_quantity"
	ReasonInvalidPrice         Reason = "invalid_price"
	ReasonInvalidModifierPrice Reason = "invalid_modifier_price"
	ReasonMalformedAmount      Reason = "malformed_amount"
	ReasonMalformedBound       Reason = "malformed_bound"
	ReasonMalformedPartySize   Reason = "malformed_party_size"
	ReasonUnsupportedKind      Reason = "unsupported_kind"
	ReasonNegativeClamped      Reason = "negative_amount_clamped"
	ReasonWaiverNotAllowed     Reason = "waiver_not_allowed"
	ReasonOverrideNotAllowed   Reason = "override_not_allowed"
	ReasonNegativeGrandTotal   Reason = "negative_grand_total"
)

// Issue is a data condition observed while computing totals. Issues never
// change the computed amounts.
type Issue struct {
	Category Category `json:"category"`
	Ref      string   `json:"ref,omitempty"`
	Name     string   `json:"name,omitempty"`
	Reason   Reason   `json:"reason"`
}

// Skipped reports whether the issue excluded an entry from the totals.
func (i Issue) Skipped() bool {
	switch i.Reason {
	case ReasonInvalidQuantity, ReasonInvalidPrice, ReasonMalformedAmount, ReasonMalformedBound, ReasonMalformedPartySize, ReasonUnsupportedKind:
		return true
	default:
		return false
	}
}
