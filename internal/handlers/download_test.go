package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beatcrate/backend/internal/entitlement"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
)

func TestCountsAgainstDailyLimit(t *testing.T) {
	limited := entitlement.Benefits{DownloadsPerDay: 25}
	unlimited := entitlement.Benefits{DownloadsPerDay: plans.Unlimited}

	member := &models.User{UserType: models.UserTypeMember}
	vip := &models.User{UserType: models.UserTypeMember, IsVIP: true}
	admin := &models.User{UserType: models.UserTypeAdmin}
	support := &models.User{UserType: models.UserTypeSupport}

	assert.True(t, countsAgainstDailyLimit(member, limited))
	assert.False(t, countsAgainstDailyLimit(member, unlimited))
	assert.False(t, countsAgainstDailyLimit(vip, limited))
	assert.False(t, countsAgainstDailyLimit(admin, limited))
	assert.False(t, countsAgainstDailyLimit(support, limited))
}

func TestDailyLimitBlocks(t *testing.T) {
	tests := []struct {
		name      string
		counted   bool
		firstTime bool
		used      int
		limit     int
		want      bool
	}{
		{"first download at limit", true, true, 5, 5, true},
		{"first download over limit", true, true, 7, 5, true},
		{"first download below limit", true, true, 4, 5, false},
		{"re-download at limit passes", true, false, 5, 5, false},
		{"re-download below limit passes", true, false, 2, 5, false},
		{"exempt user never blocked", false, true, 5, 5, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want,
			dailyLimitBlocks(tt.counted, tt.firstTime, tt.used, tt.limit), tt.name)
	}
}
