package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
)

func TestResolveFreeTier(t *testing.T) {
	cat := plans.Default()

	b := Resolve(cat, 0, false, nil)
	assert.Equal(t, "FREE", b.Tier)
	assert.Equal(t, 5, b.DownloadsPerDay)
	assert.False(t, b.UnlimitedDownloads())
	assert.False(t, b.ExclusiveGenres)
	assert.False(t, b.DirectDownload)
	assert.Zero(t, b.PackRequestsPerWeek)
}

func TestResolveBoundaryInclusive(t *testing.T) {
	cat := plans.Default()

	b := Resolve(cat, 38.00, false, nil)
	assert.Equal(t, "STANDARD", b.Tier)
	assert.Equal(t, 50, b.DownloadsPerDay)
	assert.True(t, b.ExclusiveGenres)

	b = Resolve(cat, 37.99, false, nil)
	assert.Equal(t, "BASIC", b.Tier)
	assert.Equal(t, 25, b.DownloadsPerDay)
	assert.False(t, b.ExclusiveGenres)
}

func TestResolveAdminAlwaysTop(t *testing.T) {
	cat := plans.Default()

	for _, price := range []float64{0, 19.90, 100} {
		b := Resolve(cat, price, true, nil)
		assert.Equal(t, "COMPLETE", b.Tier, "admin at price %.2f", price)
		assert.True(t, b.UnlimitedDownloads())
		assert.True(t, b.PrioritySupport)
	}
}

func TestResolveAddOnFlags(t *testing.T) {
	cat := plans.Default()

	b := Resolve(cat, 19.90, false, map[plans.AddOn]bool{plans.AddOnDeemix: true})
	assert.True(t, b.Deemix)
	assert.False(t, b.DeezerPremium)
}

func TestResolveUserPrefersStoredBasePrice(t *testing.T) {
	cat := plans.Default()

	// Combined total 47.74 would misread as STANDARD+addon either way here,
	// but the stored base price must win when present
	u := &models.User{PlanPrice: 47.74, BasePrice: 38.00, Deemix: true}
	b := ResolveUser(cat, u)
	assert.Equal(t, "STANDARD", b.Tier)
	assert.True(t, b.Deemix)
}

func TestResolveUserLegacyDecomposition(t *testing.T) {
	cat := plans.Default()

	// Legacy row: only the combined total is stored
	u := &models.User{PlanPrice: 47.74, Deemix: true}
	b := ResolveUser(cat, u)
	assert.Equal(t, "STANDARD", b.Tier)
}

func TestResolveUserExpiredSubscription(t *testing.T) {
	cat := plans.Default()
	past := time.Now().Add(-24 * time.Hour)

	u := &models.User{PlanPrice: 38.00, BasePrice: 38.00, SubscriptionExpiry: &past}
	b := ResolveUser(cat, u)
	assert.Equal(t, "FREE", b.Tier)

	// Admin accounts never expire into the free tier
	admin := &models.User{UserType: models.UserTypeAdmin, SubscriptionExpiry: &past}
	b = ResolveUser(cat, admin)
	assert.Equal(t, "COMPLETE", b.Tier)
}
