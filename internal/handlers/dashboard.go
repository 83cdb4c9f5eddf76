package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/models"
)

// DashboardHandler serves the staff overview stats
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

type dashboardStats struct {
	TotalMembers    int64   `json:"total_members"`
	ActiveMembers   int64   `json:"active_members"`
	VIPMembers      int64   `json:"vip_members"`
	TotalTracks     int64   `json:"total_tracks"`
	PendingTracks   int64   `json:"pending_tracks"`
	DownloadsToday  int64   `json:"downloads_today"`
	OpenPackReqs    int64   `json:"open_pack_requests"`
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	PlaylistsLive   int64   `json:"playlists_live"`
	SignupsThisWeek int64   `json:"signups_this_week"`
}

// Stats returns the dashboard counters, cached for a minute
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	var stats dashboardStats
	if err := database.CacheGet(database.CacheKeyStats, &stats); err == nil {
		return c.JSON(fiber.Map{"success": true, "data": stats})
	}

	db := database.DB
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeMember).Count(&stats.TotalMembers)
	db.Model(&models.User{}).Where("user_type = ? AND is_active = ?", models.UserTypeMember, true).Count(&stats.ActiveMembers)
	db.Model(&models.User{}).Where("is_vip = ?", true).Count(&stats.VIPMembers)
	db.Model(&models.Track{}).Where("status = ?", models.TrackStatusPublished).Count(&stats.TotalTracks)
	db.Model(&models.Track{}).Where("status = ?", models.TrackStatusPending).Count(&stats.PendingTracks)
	db.Model(&models.Download{}).Where("downloaded_at >= ?", dayAgo).Count(&stats.DownloadsToday)
	db.Model(&models.PackRequest{}).Where("status = ?", models.PackRequestStatusOpen).Count(&stats.OpenPackReqs)
	db.Model(&models.Playlist{}).Where("is_published = ?", true).Count(&stats.PlaylistsLive)
	db.Model(&models.User{}).Where("user_type = ? AND created_at >= ?", models.UserTypeMember, weekAgo).Count(&stats.SignupsThisWeek)

	// Sum of billed totals across current subscribers
	db.Model(&models.User{}).
		Where("user_type = ? AND is_active = ? AND plan_price > 0", models.UserTypeMember, true).
		Where("subscription_expiry IS NULL OR subscription_expiry > ?", now).
		Select("COALESCE(SUM(plan_price), 0)").
		Scan(&stats.MonthlyRevenue)

	database.CacheSet(database.CacheKeyStats, stats, database.CacheTTLStats)
	return c.JSON(fiber.Map{"success": true, "data": stats})
}
