package entitlement

import (
	"math"

	"github.com/beatcrate/backend/internal/plans"
)

// round2 applies standard rounding to 2 decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// InferBase strips active add-on costs from a combined subscription total,
// yielding the base plan price. The tier used to price each subtraction is
// classified from the running remainder, so the result is exact whenever
// the classification is stable across the subtraction - with several
// add-ons stacked near a tier boundary it is an approximation. New rows
// store the base price separately and never take this path.
func InferBase(cat *plans.Catalog, total float64, active map[plans.AddOn]bool) float64 {
	base := total
	for _, addon := range plans.AddOns {
		if !active[addon] {
			continue
		}
		tier := cat.TierFor(base)
		base = round2(base - tier.AddOnPrice(addon))
		if base < 0 {
			base = 0
		}
	}
	return base
}

// ComposeTotal builds the billed total from a base plan price and the set
// of active add-ons, priced at the base tier's discount.
func ComposeTotal(cat *plans.Catalog, base float64, active map[plans.AddOn]bool) float64 {
	tier := cat.TierFor(base)
	total := base
	for _, addon := range plans.AddOns {
		if active[addon] {
			total += tier.AddOnPrice(addon)
		}
	}
	return round2(total)
}

// RecalculateTotal recomputes the subscription total after add-on toggles
// when only the combined total is known: decompose with the previous flags,
// then recompose with the new ones. Toggling an add-on on and off again
// round-trips to the original total within rounding tolerance.
func RecalculateTotal(cat *plans.Catalog, currentTotal float64, prev, next map[plans.AddOn]bool) float64 {
	base := InferBase(cat, currentTotal, prev)
	return ComposeTotal(cat, base, next)
}

// AddOnDelta returns the signed price change of toggling one add-on at the
// tier of the given base price. Used for the transaction amount.
func AddOnDelta(cat *plans.Catalog, base float64, addon plans.AddOn, enabled bool) float64 {
	price := cat.TierFor(base).AddOnPrice(addon)
	if enabled {
		return price
	}
	return -price
}
