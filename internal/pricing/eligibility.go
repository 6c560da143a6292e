package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// appliesToOrderType treats an empty list as "all order types". Unknown order
// types never satisfy a restricted list.
func appliesToOrderType(types []OrderType, orderType OrderType) bool {
	if len(types) == 0 {
		return true
	}
	if !orderType.Valid() {
		return false
	}
	for _, candidate := range types {
		if candidate == orderType {
			return true
		}
	}
	return false
}

// amountBounds holds an optional minimum and maximum; zero disables a side.
type amountBounds struct {
	min decimal.Decimal
	max decimal.Decimal
}

func newAmountBounds(minimum, maximum float64) (amountBounds, bool) {
	if !finite(minimum) || !finite(maximum) {
		return amountBounds{}, false
	}
	return amountBounds{min: decimal.NewFromFloat(minimum), max: decimal.NewFromFloat(maximum)}, true
}

func (b amountBounds) admits(base decimal.Decimal) bool {
	if b.min.IsPositive() && base.LessThan(b.min) {
		return false
	}
	if b.max.IsPositive() && base.GreaterThan(b.max) {
		return false
	}
	return true
}

// newPartySizeFilter accepts whole, finite guest counts. Zero or a negative
// count disables the filter.
func newPartySizeFilter(threshold float64) (int, bool) {
	if !finite(threshold) || threshold != math.Trunc(threshold) || threshold > math.MaxInt32 {
		return 0, false
	}
	return int(threshold), true
}

func partySizeAdmits(threshold, partySize int) bool {
	return threshold <= 0 || partySize >= threshold
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type idSet map[string]struct{}

func newIDSet(ids []string) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return set
}

func (s idSet) has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}
