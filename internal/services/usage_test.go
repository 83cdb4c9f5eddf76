package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/beatcrate/backend/internal/models"
)

func TestApplyLazyResetsFirstTouch(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &models.User{DailyDownloadsUsed: 3}

	changed := ApplyLazyResets(u, now)
	assert.True(t, changed)
	assert.Zero(t, u.DailyDownloadsUsed)
	assert.Equal(t, now, *u.DailyResetAt)
	assert.Equal(t, now, *u.WeeklyResetAt)
}

func TestApplyLazyResetsWithinWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	u := &models.User{
		DailyDownloadsUsed:     3,
		DailyResetAt:           &recent,
		WeeklyPackRequestsUsed: 2,
		WeeklyResetAt:          &recent,
	}

	changed := ApplyLazyResets(u, now)
	assert.False(t, changed)
	assert.Equal(t, 3, u.DailyDownloadsUsed)
	assert.Equal(t, 2, u.WeeklyPackRequestsUsed)
}

func TestApplyLazyResetsDailyOnly(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dayAgo := now.Add(-25 * time.Hour)
	recentWeek := now.Add(-48 * time.Hour)
	u := &models.User{
		DailyDownloadsUsed:          5,
		DailyResetAt:                &dayAgo,
		WeeklyPackRequestsUsed:      2,
		WeeklyPlaylistDownloadsUsed: 1,
		WeeklyResetAt:               &recentWeek,
	}

	changed := ApplyLazyResets(u, now)
	assert.True(t, changed)
	assert.Zero(t, u.DailyDownloadsUsed)
	assert.Equal(t, now, *u.DailyResetAt)

	// Weekly counters untouched inside their window
	assert.Equal(t, 2, u.WeeklyPackRequestsUsed)
	assert.Equal(t, 1, u.WeeklyPlaylistDownloadsUsed)
	assert.Equal(t, recentWeek, *u.WeeklyResetAt)
}

func TestApplyLazyResetsWeekly(t *testing.T) {
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	weekAgo := now.Add(-8 * 24 * time.Hour)
	u := &models.User{
		DailyResetAt:                &recent,
		WeeklyPackRequestsUsed:      3,
		WeeklyPlaylistDownloadsUsed: 7,
		WeeklyResetAt:               &weekAgo,
	}

	changed := ApplyLazyResets(u, now)
	assert.True(t, changed)
	assert.Zero(t, u.WeeklyPackRequestsUsed)
	assert.Zero(t, u.WeeklyPlaylistDownloadsUsed)
	assert.Equal(t, now, *u.WeeklyResetAt)
}
