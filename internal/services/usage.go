package services

import (
	"time"

	"github.com/beatcrate/backend/internal/models"
)

const (
	dailyWindow  = 24 * time.Hour
	weeklyWindow = 7 * 24 * time.Hour
)

// ApplyLazyResets zeroes the user's usage counters whose window has elapsed.
// Counters reset on read rather than by a scheduled job, so a user who goes
// quiet for a week costs nothing. Returns true when the row changed and
// needs saving.
func ApplyLazyResets(u *models.User, now time.Time) bool {
	changed := false

	if u.DailyResetAt == nil || now.Sub(*u.DailyResetAt) >= dailyWindow {
		u.DailyDownloadsUsed = 0
		t := now
		u.DailyResetAt = &t
		changed = true
	}

	if u.WeeklyResetAt == nil || now.Sub(*u.WeeklyResetAt) >= weeklyWindow {
		u.WeeklyPackRequestsUsed = 0
		u.WeeklyPlaylistDownloadsUsed = 0
		t := now
		u.WeeklyResetAt = &t
		changed = true
	}

	return changed
}
