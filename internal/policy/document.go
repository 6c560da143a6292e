package policy

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Number is a configured numeric value. It decodes JSON numbers and numeric
// strings; any other value decodes to NaN so the pricing engine skips just
// that policy entry instead of rejecting the whole document. A JSON null
// leaves the value untouched, so an optional bound stays unset.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = math.NaN()
	}
	*n = Number(v)
	return nil
}

// MarshalJSON keeps non-finite values representable so they survive a cache round trip.
func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64))), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (n *Number) ptr() *float64 {
	if n == nil {
		return nil
	}
	v := float64(*n)
	return &v
}

// Document is the canonical policy configuration schema served by the
// configuration API and stored in the cache.
type Document struct {
	Taxes          []Tax           `json:"taxes"`
	ServiceCharges []ServiceCharge `json:"service_charges"`
	Gratuity       []Gratuity      `json:"gratuity"`
	Discounts      []Discount      `json:"discounts"`
}

type Tax struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Kind                string   `json:"kind"`
	Rate                *Number  `json:"rate"`
	AppliesToOrderTypes []string `json:"applies_to_order_types,omitempty"`
	Active              bool     `json:"active"`
}

type ServiceCharge struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Kind                string   `json:"kind"`
	Amount              *Number  `json:"amount"`
	AppliesToOrderTypes []string `json:"applies_to_order_types,omitempty"`
	BaseIsSubtotal      bool     `json:"base_is_subtotal"`
	MinimumOrderAmount  Number   `json:"minimum_order_amount,omitempty"`
	MaximumOrderAmount  Number   `json:"maximum_order_amount,omitempty"`
	PartySizeThreshold  Number   `json:"party_size_threshold,omitempty"`
	Mandatory           bool     `json:"mandatory"`
	Active              bool     `json:"active"`
}

type Gratuity struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Kind                string   `json:"kind"`
	Amount              *Number  `json:"amount"`
	AppliesToOrderTypes []string `json:"applies_to_order_types,omitempty"`
	MinimumOrderAmount  Number   `json:"minimum_order_amount,omitempty"`
	MaximumOrderAmount  Number   `json:"maximum_order_amount,omitempty"`
	PartySizeMinimum    Number   `json:"party_size_minimum,omitempty"`

	// LegacyPartySizeMin is the older spelling still sent by some terminals.
	LegacyPartySizeMin Number `json:"party_size_min,omitempty"`
	AutoApply          bool   `json:"auto_apply"`
	CustomerCanModify  bool   `json:"customer_can_modify"`
	Active             bool   `json:"active"`
}

type Discount struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Kind                string   `json:"kind"`
	Amount              *Number  `json:"amount"`
	MinimumOrderAmount  Number   `json:"minimum_order_amount,omitempty"`
	AppliesToOrderTypes []string `json:"applies_to_order_types,omitempty"`
	Stackable           bool     `json:"stackable"`
	Active              bool     `json:"active"`
}

// Decode parses a policy document. An empty payload yields an empty document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Version returns a stable content hash of the document.
func (d Document) Version() string {
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return common.Sha256Hex(string(data))
}

// PolicySet converts the document into the engine's representation,
// preserving entry order.
func (d Document) PolicySet() pricing.PolicySet {
	set := pricing.PolicySet{
		Taxes:          make([]pricing.TaxPolicy, 0, len(d.Taxes)),
		ServiceCharges: make([]pricing.ServiceChargePolicy, 0, len(d.ServiceCharges)),
		Gratuity:       make([]pricing.GratuityPolicy, 0, len(d.Gratuity)),
		Discounts:      make([]pricing.DiscountPolicy, 0, len(d.Discounts)),
	}
	for _, t := range d.Taxes {
		set.Taxes = append(set.Taxes, pricing.TaxPolicy{
			ID:                  strings.TrimSpace(t.ID),
			Name:                t.Name,
			Kind:                kindOf(t.Kind),
			Rate:                t.Rate.ptr(),
			AppliesToOrderTypes: orderTypes(t.AppliesToOrderTypes),
			Active:              t.Active,
		})
	}
	for _, s := range d.ServiceCharges {
		set.ServiceCharges = append(set.ServiceCharges, pricing.ServiceChargePolicy{
			ID:                  strings.TrimSpace(s.ID),
			Name:                s.Name,
			Kind:                kindOf(s.Kind),
			Amount:              s.Amount.ptr(),
			AppliesToOrderTypes: orderTypes(s.AppliesToOrderTypes),
			BaseIsSubtotal:      s.BaseIsSubtotal,
			MinimumOrderAmount:  float64(s.MinimumOrderAmount),
			MaximumOrderAmount:  float64(s.MaximumOrderAmount),
			PartySizeThreshold:  float64(s.PartySizeThreshold),
			Mandatory:           s.Mandatory,
			Active:              s.Active,
		})
	}
	for _, g := range d.Gratuity {
		partySize := g.PartySizeMinimum
		if partySize == 0 {
			partySize = g.LegacyPartySizeMin
		}
		set.Gratuity = append(set.Gratuity, pricing.GratuityPolicy{
			ID:                  strings.TrimSpace(g.ID),
			Name:                g.Name,
			Kind:                kindOf(g.Kind),
			Amount:              g.Amount.ptr(),
			AppliesToOrderTypes: orderTypes(g.AppliesToOrderTypes),
			MinimumOrderAmount:  float64(g.MinimumOrderAmount),
			MaximumOrderAmount:  float64(g.MaximumOrderAmount),
			PartySizeMinimum:    float64(partySize),
			AutoApply:           g.AutoApply,
			CustomerCanModify:   g.CustomerCanModify,
			Active:              g.Active,
		})
	}
	for _, disc := range d.Discounts {
		set.Discounts = append(set.Discounts, pricing.DiscountPolicy{
			ID:                  strings.TrimSpace(disc.ID),
			Name:                disc.Name,
			Kind:                kindOf(disc.Kind),
			Amount:              disc.Amount.ptr(),
			MinimumOrderAmount:  float64(disc.MinimumOrderAmount),
			AppliesToOrderTypes: orderTypes(disc.AppliesToOrderTypes),
			Stackable:           disc.Stackable,
			Active:              disc.Active,
		})
	}
	return set
}

func kindOf(kind string) pricing.ChargeKind {
	return pricing.ChargeKind(strings.ToLower(strings.TrimSpace(kind)))
}

func orderTypes(values []string) []pricing.OrderType {
	if len(values) == 0 {
		return nil
	}
	out := make([]pricing.OrderType, 0, len(values))
	for _, v := range values {
		out = append(out, pricing.OrderType(strings.ToLower(strings.TrimSpace(v))))
	}
	return out
}
