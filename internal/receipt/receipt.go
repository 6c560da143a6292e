// Package receipt renders priced totals as the ordered summary lines printed
// at the foot of a receipt.
package receipt

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrUnknownLocale reports a locale or currency code that cannot be parsed.
var ErrUnknownLocale = errors.New("receipt: unknown locale or currency")

// LineKind classifies a summary line.
type LineKind string

const (
	LineSubtotal      LineKind = "subtotal"
	LineTax           LineKind = "tax"
	LineServiceCharge LineKind = "service_charge"
	LineGratuity      LineKind = "gratuity"
	LineDiscount      LineKind = "discount"
	LineTotal         LineKind = "total"
)

// Line is one printable row. Amount is the exact two-place value; Display is
// the localized rendering for the receipt printer.
type Line struct {
	Kind     LineKind `json:"kind"`
	PolicyID string   `json:"policyId,omitempty"`
	Label    string   `json:"label"`
	Amount   string   `json:"amount"`
	Display  string   `json:"display"`
}

// Options selects the receipt locale and currency.
type Options struct {
	Locale   string
	Currency string
}

// Formatter renders lines for one locale and currency.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
	places  int32
}

// NewFormatter validates the locale and ISO 4217 currency code.
func NewFormatter(opts Options) (*Formatter, error) {
	tag := language.AmericanEnglish
	if raw := strings.ReplaceAll(strings.TrimSpace(opts.Locale), "_", "-"); raw != "" {
		parsed, err := language.Parse(raw)
		if err != nil {
			return nil, errors.Join(ErrUnknownLocale, err)
		}
		tag = parsed
	}
	unit := currency.USD
	if code := strings.TrimSpace(opts.Currency); code != "" {
		parsed, err := currency.ParseISO(code)
		if err != nil {
			return nil, errors.Join(ErrUnknownLocale, err)
		}
		unit = parsed
	}
	places, _ := currency.Standard.Rounding(unit)
	return &Formatter{printer: message.NewPrinter(tag), unit: unit, places: int32(places)}, nil
}

// Summary lists the subtotal, each applied tax, service charge and gratuity,
// each discount as a negative amount, then the grand total. Totals should
// already be rounded for display.
func (f *Formatter) Summary(t pricing.Totals) []Line {
	lines := make([]Line, 0, 2+len(t.Breakdown.Taxes)+len(t.Breakdown.ServiceCharges)+len(t.Breakdown.Gratuity)+len(t.Breakdown.Discounts))
	lines = append(lines, f.line(LineSubtotal, "", f.printer.Sprintf("Subtotal"), t.Subtotal))
	for _, e := range t.Breakdown.Taxes {
		lines = append(lines, f.entry(LineTax, e, e.Amount))
	}
	for _, e := range t.Breakdown.ServiceCharges {
		lines = append(lines, f.entry(LineServiceCharge, e, e.Amount))
	}
	for _, e := range t.Breakdown.Gratuity {
		lines = append(lines, f.entry(LineGratuity, e, e.Amount))
	}
	for _, e := range t.Breakdown.Discounts {
		lines = append(lines, f.entry(LineDiscount, e, e.Amount.Neg()))
	}
	lines = append(lines, f.line(LineTotal, "", f.printer.Sprintf("Total"), t.GrandTotal))
	return lines
}

func (f *Formatter) entry(kind LineKind, e pricing.LineEntry, amount decimal.Decimal) Line {
	label := e.Name
	if label == "" {
		label = e.PolicyID
	}
	if e.Kind == pricing.KindPercentage {
		rate, _ := e.Rate.Float64()
		label = f.printer.Sprintf("%s (%v%%)", label, number.Decimal(rate, number.MaxFractionDigits(3)))
	}
	return f.line(kind, e.PolicyID, label, amount)
}

func (f *Formatter) line(kind LineKind, policyID, label string, amount decimal.Decimal) Line {
	value, _ := amount.Round(f.places).Float64()
	return Line{
		Kind:     kind,
		PolicyID: policyID,
		Label:    label,
		Amount:   amount.StringFixed(2),
		Display:  f.printer.Sprint(currency.Symbol(f.unit.Amount(value))),
	}
}

// Summary is a convenience wrapper that falls back to en-US / USD when the
// options cannot be parsed.
func Summary(t pricing.Totals, opts Options) []Line {
	f, err := NewFormatter(opts)
	if err != nil {
		f, _ = NewFormatter(Options{})
	}
	return f.Summary(t)
}
