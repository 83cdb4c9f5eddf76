package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beatcrate/backend/internal/plans"
)

func TestComposeTotal(t *testing.T) {
	cat := plans.Default()

	// Standard plan plus Deemix at the standard discount
	total := ComposeTotal(cat, 38.00, map[plans.AddOn]bool{plans.AddOnDeemix: true})
	assert.InDelta(t, 47.74, total, 0.001)

	// No add-ons: total is the base
	assert.InDelta(t, 19.90, ComposeTotal(cat, 19.90, nil), 0.001)

	// Both add-ons on the complete plan
	total = ComposeTotal(cat, 57.00, map[plans.AddOn]bool{
		plans.AddOnDeemix:        true,
		plans.AddOnDeezerPremium: true,
	})
	assert.InDelta(t, 57.00+7.49+11.90, total, 0.001)
}

func TestInferBaseSingleAddOn(t *testing.T) {
	cat := plans.Default()

	tests := []struct {
		total  float64
		active map[plans.AddOn]bool
		want   float64
	}{
		{47.74, map[plans.AddOn]bool{plans.AddOnDeemix: true}, 38.00},
		{31.89, map[plans.AddOn]bool{plans.AddOnDeemix: true}, 19.90},
		{64.49, map[plans.AddOn]bool{plans.AddOnDeemix: true}, 57.00},
		{52.90, map[plans.AddOn]bool{plans.AddOnDeezerPremium: true}, 38.00},
		{38.00, nil, 38.00},
	}
	for _, tt := range tests {
		got := InferBase(cat, tt.total, tt.active)
		assert.InDelta(t, tt.want, got, 0.001, "total %.2f", tt.total)
	}
}

func TestInferBaseNeverNegative(t *testing.T) {
	cat := plans.Default()

	// A free account wrongly flagged with an add-on must not go negative
	got := InferBase(cat, 5.00, map[plans.AddOn]bool{plans.AddOnDeemix: true})
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestRecalculateTotalRoundTrip(t *testing.T) {
	cat := plans.Default()

	// Enable Deemix on a bare standard plan, then disable it again
	withAddon := RecalculateTotal(cat, 38.00,
		nil,
		map[plans.AddOn]bool{plans.AddOnDeemix: true})
	assert.InDelta(t, 47.74, withAddon, 0.001)

	back := RecalculateTotal(cat, withAddon,
		map[plans.AddOn]bool{plans.AddOnDeemix: true},
		nil)
	assert.InDelta(t, 38.00, back, 0.001)
}

func TestRecalculateTotalSwapAddOn(t *testing.T) {
	cat := plans.Default()

	// Swap Deemix for DeezerPremium on a basic plan
	got := RecalculateTotal(cat, 31.89,
		map[plans.AddOn]bool{plans.AddOnDeemix: true},
		map[plans.AddOn]bool{plans.AddOnDeezerPremium: true})
	assert.InDelta(t, 19.90+17.90, got, 0.001)
}

func TestAddOnDelta(t *testing.T) {
	cat := plans.Default()

	assert.InDelta(t, 9.74, AddOnDelta(cat, 38.00, plans.AddOnDeemix, true), 0.001)
	assert.InDelta(t, -9.74, AddOnDelta(cat, 38.00, plans.AddOnDeemix, false), 0.001)
	assert.InDelta(t, 14.99, AddOnDelta(cat, 0, plans.AddOnDeemix, true), 0.001)
}
