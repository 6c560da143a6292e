package policy_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

const sampleDocument = `{
  "taxes": [
    {"id": "tax-1", "name": "Sales Tax", "kind": "percentage", "rate": 8.25, "active": true},
    {"id": "tax-2", "name": "Broken", "kind": "percentage", "rate": "abc", "active": true}
  ],
  "service_charges": [
    {"id": "svc-1", "name": "Large Party", "kind": "Percentage", "amount": "18",
     "applies_to_order_types": ["DINE_IN"], "base_is_subtotal": true,
     "minimum_order_amount": "200", "party_size_threshold": 6, "mandatory": true, "active": true}
  ],
  "gratuity": [
    {"id": "grat-1", "name": "Auto Gratuity", "kind": "percentage", "amount": 18,
     "party_size_min": 8, "auto_apply": true, "active": true}
  ],
  "discounts": [
    {"id": "disc-1", "name": "Happy Hour", "kind": "fixed", "amount": 5, "stackable": true, "active": true}
  ]
}`

func TestDecodeLenientNumbers(t *testing.T) {
	doc, err := policy.Decode([]byte(sampleDocument))
	require.NoError(t, err)

	set := doc.PolicySet()
	require.Len(t, set.Taxes, 2)
	require.Equal(t, 8.25, *set.Taxes[0].Rate)
	require.True(t, math.IsNaN(*set.Taxes[1].Rate))

	svc := set.ServiceCharges[0]
	require.Equal(t, pricing.KindPercentage, svc.Kind)
	require.Equal(t, 18.0, *svc.Amount)
	require.Equal(t, 200.0, svc.MinimumOrderAmount)
	require.Equal(t, []pricing.OrderType{pricing.OrderTypeDineIn}, svc.AppliesToOrderTypes)
	require.True(t, svc.BaseIsSubtotal)
	require.True(t, svc.Mandatory)

	require.Equal(t, 8.0, set.Gratuity[0].PartySizeMinimum)
	require.True(t, set.Gratuity[0].AutoApply)
	require.True(t, set.Discounts[0].Stackable)
}

func TestMissingAmountStaysNil(t *testing.T) {
	doc, err := policy.Decode([]byte(`{"discounts":[{"id":"d","kind":"fixed","active":true}]}`))
	require.NoError(t, err)
	require.Nil(t, doc.PolicySet().Discounts[0].Amount)
}

func TestDecodeEmptyPayload(t *testing.T) {
	doc, err := policy.Decode(nil)
	require.NoError(t, err)
	set := doc.PolicySet()
	require.NotNil(t, set.Taxes)
	require.Empty(t, set.Taxes)
}

func TestVersionSurvivesMalformedRoundTrip(t *testing.T) {
	doc, err := policy.Decode([]byte(sampleDocument))
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	again, err := policy.Decode(data)
	require.NoError(t, err)

	require.Equal(t, doc.Version(), again.Version())
	require.True(t, math.IsNaN(*again.PolicySet().Taxes[1].Rate))
}

func TestVersionChangesWithContent(t *testing.T) {
	a := policy.Defaults(policy.DefaultsConfig{TaxRate: 8})
	b := policy.Defaults(policy.DefaultsConfig{TaxRate: 9})
	require.NotEqual(t, a.Version(), b.Version())
	require.Len(t, a.Version(), 64)
}

func TestDefaults(t *testing.T) {
	require.Empty(t, policy.Defaults(policy.DefaultsConfig{}).Taxes)

	doc := policy.Defaults(policy.DefaultsConfig{TaxRate: 7.5})
	set := doc.PolicySet()
	require.Len(t, set.Taxes, 1)
	require.Equal(t, "Sales Tax", set.Taxes[0].Name)
	require.Equal(t, 7.5, *set.Taxes[0].Rate)
	require.True(t, set.Taxes[0].Active)
}

func TestNullBoundsMeanNoConstraint(t *testing.T) {
	doc, err := policy.Decode([]byte(`{"service_charges":[{"id":"svc","name":"Service","kind":"percentage","amount":10,
		"minimum_order_amount":null,"maximum_order_amount":null,"party_size_threshold":null,"active":true}],
		"discounts":[{"id":"d","kind":"fixed","amount":null,"minimum_order_amount":null,"active":true}]}`))
	require.NoError(t, err)

	set := doc.PolicySet()
	require.Zero(t, set.ServiceCharges[0].MinimumOrderAmount)
	require.Zero(t, set.ServiceCharges[0].MaximumOrderAmount)
	require.Zero(t, set.ServiceCharges[0].PartySizeThreshold)
	require.Nil(t, set.Discounts[0].Amount)

	totals := pricing.Compute(pricing.Input{
		Cart:               []pricing.LineItem{{MenuItemID: "burger", BasePrice: decimal.NewFromInt(100), Quantity: 1}},
		Policies:           set,
		Context:            pricing.OrderContext{OrderType: pricing.OrderTypeDineIn, PartySize: 2},
		AppliedDiscountIDs: []string{"d"},
	})
	require.True(t, totals.ServiceChargeTotal.Equal(decimal.NewFromInt(10)), totals.ServiceChargeTotal.String())
	require.Equal(t, []pricing.Issue{{Category: pricing.CategoryDiscount, Ref: "d", Reason: pricing.ReasonMalformedAmount}}, totals.Issues)
}

func TestBadPartySizeIsolatedToItsEntry(t *testing.T) {
	doc, err := policy.Decode([]byte(`{
  "taxes": [{"id": "tax-1", "name": "Sales Tax", "kind": "percentage", "rate": 10, "active": true}],
  "service_charges": [
    {"id": "svc-str", "name": "Quoted", "kind": "fixed", "amount": 4, "party_size_threshold": "8", "active": true},
    {"id": "svc-frac", "name": "Fractional", "kind": "fixed", "amount": 5, "party_size_threshold": 6.5, "active": true},
    {"id": "svc-word", "name": "Garbled", "kind": "fixed", "amount": 6, "party_size_threshold": "eight", "active": true}
  ],
  "gratuity": [{"id": "grat", "name": "Float Min", "kind": "fixed", "amount": 7, "party_size_minimum": 8.0, "auto_apply": true, "active": true}]
}`))
	require.NoError(t, err)

	set := doc.PolicySet()
	require.Equal(t, 8.0, set.ServiceCharges[0].PartySizeThreshold)
	require.Equal(t, 8.0, set.Gratuity[0].PartySizeMinimum)

	totals := pricing.Compute(pricing.Input{
		Cart:     []pricing.LineItem{{MenuItemID: "burger", BasePrice: decimal.NewFromInt(100), Quantity: 1}},
		Policies: set,
		Context:  pricing.OrderContext{OrderType: pricing.OrderTypeDineIn, PartySize: 8},
	})
	require.True(t, totals.TaxTotal.Equal(decimal.NewFromInt(10)))
	require.True(t, totals.ServiceChargeTotal.Equal(decimal.NewFromInt(4)), totals.ServiceChargeTotal.String())
	require.True(t, totals.GratuityTotal.Equal(decimal.NewFromInt(7)))
	require.Equal(t, []pricing.Issue{
		{Category: pricing.CategoryServiceCharge, Ref: "svc-frac", Name: "Fractional", Reason: pricing.ReasonMalformedPartySize},
		{Category: pricing.CategoryServiceCharge, Ref: "svc-word", Name: "Garbled", Reason: pricing.ReasonMalformedPartySize},
	}, totals.Issues)
}
