package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForBoundaries(t *testing.T) {
	cat := Default()

	tests := []struct {
		price float64
		want  string
	}{
		{0, "FREE"},
		{10.00, "FREE"},
		{19.89, "FREE"},
		{19.90, "BASIC"}, // threshold belongs to the higher tier
		{25.00, "BASIC"},
		{37.99, "BASIC"},
		{38.00, "STANDARD"},
		{47.74, "STANDARD"},
		{56.99, "STANDARD"},
		{57.00, "COMPLETE"},
		{120.00, "COMPLETE"},
		{-5.00, "FREE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cat.TierFor(tt.price).Name, "price %.2f", tt.price)
	}
}

func TestDefaultTierTable(t *testing.T) {
	cat := Default()

	free := cat.Free()
	assert.Equal(t, 5, free.DownloadsPerDay)
	assert.False(t, free.DirectDownload)
	assert.False(t, free.ExclusiveGenres)

	top := cat.Top()
	assert.Equal(t, "COMPLETE", top.Name)
	assert.Equal(t, Unlimited, top.DownloadsPerDay)
	assert.Equal(t, Unlimited, top.PlaylistDownloadsPerWeek)
	assert.True(t, top.PrioritySupport)

	standard := cat.TierFor(38.00)
	assert.InDelta(t, 9.74, standard.AddOnPrice(AddOnDeemix), 0.001)
	assert.InDelta(t, 14.90, standard.AddOnPrice(AddOnDeezerPremium), 0.001)
}

func TestAddOnPriceUnknownAddOn(t *testing.T) {
	cat := Default()
	assert.Zero(t, cat.Free().AddOnPrice(AddOn("nonexistent")))
	assert.Zero(t, Tier{}.AddOnPrice(AddOnDeemix))
}

func TestNewCatalogValidation(t *testing.T) {
	require.Panics(t, func() { NewCatalog(nil) })
	require.Panics(t, func() {
		NewCatalog([]Tier{{Name: "PAID", MinPrice: 10}})
	})
	require.Panics(t, func() {
		NewCatalog([]Tier{
			{Name: "FREE", MinPrice: 0},
			{Name: "A", MinPrice: 20},
			{Name: "B", MinPrice: 20},
		})
	})
}
