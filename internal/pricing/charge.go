package pricing

import (
	"github.com/shopspring/decimal"
)

// configuredValue converts a configured rate or amount. Missing and
// non-finite values are rejected.
func configuredValue(v *float64) (decimal.Decimal, bool) {
	if v == nil || !finite(*v) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*v), true
}

// supportsKind reports whether kind is valid for a policy category.
func supportsKind(kind ChargeKind, perPerson bool) bool {
	switch kind {
	case KindPercentage, KindFixed:
		return true
	case KindPerPerson:
		return perPerson
	default:
		return false
	}
}

// charge computes the raw amount of an eligible policy. The result may be
// negative; callers clamp it.
func charge(kind ChargeKind, value, base decimal.Decimal, partySize int) decimal.Decimal {
	switch kind {
	case KindPercentage:
		return base.Mul(value).Shift(-2)
	case KindPerPerson:
		return value.Mul(decimal.NewFromInt(int64(partySize)))
	default:
		return value
	}
}
