package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/entitlement"
	"github.com/beatcrate/backend/internal/middleware"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
	"github.com/beatcrate/backend/internal/services"
	"github.com/beatcrate/backend/internal/storage"
)

// DownloadHandler serves track downloads and the cooldown control queries
type DownloadHandler struct {
	catalog *plans.Catalog
	guard   *services.DownloadGuard
	storage *storage.Client
}

func NewDownloadHandler(catalog *plans.Catalog, guard *services.DownloadGuard, store *storage.Client) *DownloadHandler {
	return &DownloadHandler{catalog: catalog, guard: guard, storage: store}
}

// countsAgainstDailyLimit reports whether a download consumes the user's
// daily quota. VIP and staff accounts are exempt from the counter; the
// per-track cooldown still applies to them.
func countsAgainstDailyLimit(user *models.User, benefits entitlement.Benefits) bool {
	if user.IsVIP || user.IsStaff() {
		return false
	}
	return !benefits.UnlimitedDownloads()
}

// dailyLimitBlocks decides whether the daily quota refuses a download.
// Only first-time downloads of a track consume quota, so a re-download
// (expired cooldown or confirmed) passes even at the limit.
func dailyLimitBlocks(counted, firstTime bool, used, limit int) bool {
	return counted && firstTime && used >= limit
}

// Download issues a presigned URL for a track. Enforces, in order: track
// availability, exclusive-genre access, the daily quota, then the per-track
// cooldown. confirm_redownload acknowledges the cooldown warning and resets
// the window.
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		TrackID           uint `json:"track_id"`
		ConfirmRedownload bool `json:"confirm_redownload"`
	}
	if err := c.BodyParser(&req); err != nil || req.TrackID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "track_id is required",
		})
	}

	var track models.Track
	if err := database.DB.First(&track, req.TrackID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}
	if track.Status != models.TrackStatusPublished && !user.IsStaff() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	benefits := entitlement.ResolveUser(h.catalog, user)

	if track.IsExclusive && !benefits.ExclusiveGenres && !user.IsStaff() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Exclusive tracks require a higher subscription tier",
		})
	}

	now := time.Now()
	if services.ApplyLazyResets(user, now) {
		database.DB.Model(user).Updates(map[string]interface{}{
			"daily_downloads_used":           user.DailyDownloadsUsed,
			"daily_reset_at":                 user.DailyResetAt,
			"weekly_pack_requests_used":      user.WeeklyPackRequestsUsed,
			"weekly_playlist_downloads_used": user.WeeklyPlaylistDownloadsUsed,
			"weekly_reset_at":                user.WeeklyResetAt,
		})
	}

	counted := countsAgainstDailyLimit(user, benefits)
	if counted && user.DailyDownloadsUsed >= benefits.DownloadsPerDay {
		// Re-downloads do not consume daily quota, so the refusal only
		// applies when this would be a first download of the track
		elig, err := h.guard.CheckEligibility(c.Context(), user.ID, track.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to check download status",
			})
		}
		if dailyLimitBlocks(counted, !elig.HasDownloadedBefore, user.DailyDownloadsUsed, benefits.DownloadsPerDay) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Daily download limit reached",
				"limit": benefits.DownloadsPerDay,
				"used":  user.DailyDownloadsUsed,
			})
		}
	}

	// Presign before any state is written, so a storage failure cannot
	// start a cooldown window for a file the user never got
	url, err := h.storage.DownloadURL(c.Context(), track.StorageKey, track.DisplayFilename())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate download link",
		})
	}

	_, firstTime, err := h.guard.RecordDownload(c.Context(), user.ID, track.ID, req.ConfirmRedownload)
	if err != nil {
		var cooldown *services.CooldownError
		if errors.As(err, &cooldown) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":                 "You have recently downloaded this track",
				"needs_confirmation":    true,
				"next_allowed_download": cooldown.NextAllowedAt,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to record download",
		})
	}

	remaining := plans.Unlimited
	if counted {
		if firstTime {
			user.DailyDownloadsUsed++
			database.DB.Model(user).Update("daily_downloads_used", user.DailyDownloadsUsed)
		}
		remaining = benefits.DownloadsPerDay - user.DailyDownloadsUsed
		if remaining < 0 {
			remaining = 0
		}
	}
	database.DB.Model(&track).UpdateColumn("download_count", track.DownloadCount+1)

	return c.JSON(fiber.Map{
		"success":             true,
		"download_url":        url,
		"remaining_downloads": remaining,
		"track":               track.Summary(),
		"is_vip_user":         user.IsVIP,
	})
}

// CheckControl answers the pre-download cooldown query for one track.
// Read-only; the frontend calls it before showing the confirm dialog.
func (h *DownloadHandler) CheckControl(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	trackID, err := c.ParamsInt("id", 0)
	if err != nil || trackID <= 0 {
		// Also accept ?track_id= for the non-REST form
		trackID = c.QueryInt("track_id", 0)
	}
	if trackID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "track_id is required",
		})
	}

	elig, err := h.guard.CheckEligibility(c.Context(), userID, uint(trackID))
	if err != nil {
		if errors.Is(err, services.ErrInvalidID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid track id",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to check download status",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    elig,
	})
}

// RecordControl registers a download event without issuing a link. Direct
// delivery clients call it after fetching the file themselves; the cooldown
// bookkeeping stays identical to the URL path.
func (h *DownloadHandler) RecordControl(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		TrackID uint `json:"track_id"`
		Confirm bool `json:"confirm"`
	}
	if err := c.BodyParser(&req); err != nil || req.TrackID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "track_id is required",
		})
	}

	row, _, err := h.guard.RecordDownload(c.Context(), userID, req.TrackID, req.Confirm)
	if err != nil {
		var cooldown *services.CooldownError
		if errors.As(err, &cooldown) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":                 "You have recently downloaded this track",
				"needs_confirmation":    true,
				"next_allowed_download": cooldown.NextAllowedAt,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to record download",
		})
	}

	return c.JSON(fiber.Map{
		"success":               true,
		"next_allowed_download": row.NextAllowedAt,
	})
}

// BatchControl answers cooldown eligibility for a page of tracks in one
// round trip, so list views can badge re-downloads.
func (h *DownloadHandler) BatchControl(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		TrackIDs []uint `json:"track_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if len(req.TrackIDs) == 0 {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    []services.Eligibility{},
		})
	}

	results, err := h.guard.CheckBatch(c.Context(), userID, req.TrackIDs)
	if err != nil {
		if errors.Is(err, services.ErrTooManyTracks) || errors.Is(err, services.ErrInvalidID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to check download status",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}

// History lists the user's downloads, newest first
func (h *DownloadHandler) History(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	var total int64
	database.DB.Model(&models.Download{}).Where("user_id = ?", userID).Count(&total)

	var rows []models.Download
	if err := database.DB.Preload("Track").
		Where("user_id = ?", userID).
		Order("downloaded_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load download history",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
		"pagination": fiber.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}
