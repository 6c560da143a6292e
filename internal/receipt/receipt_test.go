package receipt_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/receipt"
)

func sampleTotals() pricing.Totals {
	d := decimal.RequireFromString
	return pricing.Totals{
		Subtotal:      d("100"),
		TaxTotal:      d("8.25"),
		DiscountTotal: d("15"),
		GrandTotal:    d("93.25"),
		Breakdown: pricing.Breakdown{
			Taxes: []pricing.LineEntry{{PolicyID: "tax-1", Name: "Sales Tax", Amount: d("8.25"), Rate: d("8.25"), Kind: pricing.KindPercentage}},
			Discounts: []pricing.LineEntry{
				{PolicyID: "d1", Name: "Happy Hour", Amount: d("10"), Rate: d("10"), Kind: pricing.KindPercentage},
				{PolicyID: "d2", Amount: d("5"), Rate: d("5"), Kind: pricing.KindFixed},
			},
		},
	}
}

func TestSummaryOrderAndAmounts(t *testing.T) {
	lines := receipt.Summary(sampleTotals(), receipt.Options{})
	require.Len(t, lines, 5)

	kinds := make([]receipt.LineKind, 0, len(lines))
	for _, l := range lines {
		kinds = append(kinds, l.Kind)
		require.NotEmpty(t, l.Display)
	}
	require.Equal(t, []receipt.LineKind{
		receipt.LineSubtotal, receipt.LineTax, receipt.LineDiscount, receipt.LineDiscount, receipt.LineTotal,
	}, kinds)

	require.Equal(t, "100.00", lines[0].Amount)
	require.Equal(t, "Subtotal", lines[0].Label)
	require.Equal(t, "8.25", lines[1].Amount)
	require.Contains(t, lines[1].Label, "Sales Tax")
	require.Contains(t, lines[1].Label, "8.25")
	require.Equal(t, "-10.00", lines[2].Amount)
	require.Equal(t, "d2", lines[3].Label)
	require.Equal(t, "-5.00", lines[3].Amount)
	require.Equal(t, "93.25", lines[4].Amount)
	require.Equal(t, "Total", lines[4].Label)
}

func TestSummaryLocalizedLabels(t *testing.T) {
	f, err := receipt.NewFormatter(receipt.Options{Locale: "de", Currency: "EUR"})
	require.NoError(t, err)
	lines := f.Summary(sampleTotals())
	require.Equal(t, "Zwischensumme", lines[0].Label)
	require.Equal(t, "Gesamtbetrag", lines[len(lines)-1].Label)
	require.Equal(t, "93.25", lines[len(lines)-1].Amount)
}

func TestNewFormatterRejectsUnknownCurrency(t *testing.T) {
	_, err := receipt.NewFormatter(receipt.Options{Currency: "ZZZ1"})
	require.ErrorIs(t, err, receipt.ErrUnknownLocale)

	_, err = receipt.NewFormatter(receipt.Options{Locale: "not a locale!"})
	require.ErrorIs(t, err, receipt.ErrUnknownLocale)

	lines := receipt.Summary(sampleTotals(), receipt.Options{Currency: "ZZZ1"})
	require.Len(t, lines, 5)
}
