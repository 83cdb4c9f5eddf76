package handlers

import (
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

// PlaylistHandler serves curated playlists and their bulk downloads
type PlaylistHandler struct {
	catalog *plans.Catalog
	storage *storage.Client
}

func NewPlaylistHandler(cat *plans.Catalog, store *storage.Client) *PlaylistHandler {
	return &PlaylistHandler{catalog: cat, storage: store}
}

// List returns published playlists. Staff also see unpublished ones.
func (h *PlaylistHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	staff := user != nil && user.IsStaff()

	if !staff {
		var cached []models.Playlist
		if err := database.CacheGet(database.CacheKeyPlaylists, &cached); err == nil {
			return c.JSON(fiber.Map{"success": true, "data": cached})
		}
	}

	query := database.DB.Model(&models.Playlist{})
	if !staff {
		query = query.Where("is_published = ?", true)
	}

	var playlists []models.Playlist
	if err := query.Order("created_at DESC").Find(&playlists).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load playlists",
		})
	}

	for i := range playlists {
		database.DB.Model(&models.PlaylistTrack{}).
			Where("playlist_id = ?", playlists[i].ID).
			Count(&playlists[i].TrackCount)
	}

	if !staff {
		database.CacheSet(database.CacheKeyPlaylists, playlists, database.CacheTTLPlaylists)
	}
	return c.JSON(fiber.Map{"success": true, "data": playlists})
}

// Get returns one playlist with its ordered tracks
func (h *PlaylistHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist id",
		})
	}

	var playlist models.Playlist
	if err := database.DB.First(&playlist, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Playlist not found",
		})
	}
	if !playlist.IsPublished && (user == nil || !user.IsStaff()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Playlist not found",
		})
	}

	var entries []models.PlaylistTrack
	database.DB.Preload("Track").
		Where("playlist_id = ?", playlist.ID).
		Order("position ASC").
		Find(&entries)
	playlist.Tracks = entries
	playlist.TrackCount = int64(len(entries))

	return c.JSON(fiber.Map{"success": true, "data": playlist})
}

// Download issues presigned URLs for every track in the playlist and
// consumes one unit of the weekly playlist quota. Tracks in the playlist
// are exempt from the per-track cooldown here; curated packs are meant to
// be grabbed whole.
func (h *PlaylistHandler) Download(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist id",
		})
	}

	var playlist models.Playlist
	if err := database.DB.First(&playlist, id).Error; err != nil || !playlist.IsPublished {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Playlist not found",
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

	benefits := entitlement.ResolveUser(h.catalog, user)
	limit := benefits.PlaylistDownloadsPerWeek
	if !user.IsVIP && !user.IsStaff() && limit != plans.Unlimited {
		if limit <= 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Playlist downloads require a higher subscription tier",
			})
		}
		if user.WeeklyPlaylistDownloadsUsed >= limit {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Weekly playlist download limit reached",
				"limit": limit,
				"used":  user.WeeklyPlaylistDownloadsUsed,
			})
		}
	}

	var entries []models.PlaylistTrack
	database.DB.Preload("Track").
		Where("playlist_id = ?", playlist.ID).
		Order("position ASC").
		Find(&entries)

	type trackLink struct {
		Track models.TrackSummary `json:"track"`
		URL   string              `json:"url"`
	}
	links := make([]trackLink, 0, len(entries))
	for _, entry := range entries {
		if entry.Track == nil || entry.Track.Status != models.TrackStatusPublished {
			continue
		}
		url, err := h.storage.DownloadURL(c.Context(), entry.Track.StorageKey, entry.Track.DisplayFilename())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to generate download links",
			})
		}
		links = append(links, trackLink{Track: entry.Track.Summary(), URL: url})
	}

	if !user.IsVIP && !user.IsStaff() && limit != plans.Unlimited {
		user.WeeklyPlaylistDownloadsUsed++
		database.DB.Model(user).Update("weekly_playlist_downloads_used", user.WeeklyPlaylistDownloadsUsed)
	}
	database.DB.Create(&models.PlaylistDownload{UserID: user.ID, PlaylistID: playlist.ID})
	database.DB.Model(&playlist).UpdateColumn("download_count", playlist.DownloadCount+1)

	return c.JSON(fiber.Map{
		"success":  true,
		"playlist": playlist.Name,
		"tracks":   links,
	})
}

// Create makes a new playlist (staff only route)
func (h *PlaylistHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Genre       string `json:"genre"`
		TrackIDs    []uint `json:"track_ids"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "name is required",
		})
	}

	playlist := models.Playlist{
		Name:        req.Name,
		Description: req.Description,
		Genre:       req.Genre,
		CreatedBy:   middleware.GetCurrentUserID(c),
	}
	if err := database.DB.Create(&playlist).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create playlist",
		})
	}

	for i, trackID := range req.TrackIDs {
		database.DB.Create(&models.PlaylistTrack{
			PlaylistID: playlist.ID,
			TrackID:    trackID,
			Position:   i,
		})
	}

	database.InvalidatePlaylistCache()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": playlist})
}

// Update edits playlist metadata or publishes it (staff only route)
func (h *PlaylistHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist id",
		})
	}

	var playlist models.Playlist
	if err := database.DB.First(&playlist, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Playlist not found",
		})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Genre       *string `json:"genre"`
		IsPublished *bool   `json:"is_published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Genre != nil {
		updates["genre"] = *req.Genre
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No fields to update",
		})
	}

	if err := database.DB.Model(&playlist).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update playlist",
		})
	}

	database.InvalidatePlaylistCache()
	return c.JSON(fiber.Map{"success": true, "data": playlist})
}

// AddTrack appends a track to a playlist (staff only route)
func (h *PlaylistHandler) AddTrack(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist id",
		})
	}

	var req struct {
		TrackID uint `json:"track_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.TrackID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "track_id is required",
		})
	}

	var maxPos int
	database.DB.Model(&models.PlaylistTrack{}).
		Where("playlist_id = ?", id).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPos)

	entry := models.PlaylistTrack{
		PlaylistID: uint(id),
		TrackID:    req.TrackID,
		Position:   maxPos + 1,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Track is already in the playlist",
		})
	}

	database.InvalidatePlaylistCache()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": entry})
}

// RemoveTrack removes a track from a playlist (staff only route)
func (h *PlaylistHandler) RemoveTrack(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	trackID, err2 := c.ParamsInt("trackId")
	if err != nil || err2 != nil || id <= 0 || trackID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist or track id",
		})
	}

	result := database.DB.Where("playlist_id = ? AND track_id = ?", id, trackID).
		Delete(&models.PlaylistTrack{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track is not in the playlist",
		})
	}

	database.InvalidatePlaylistCache()
	return c.JSON(fiber.Map{"success": true, "message": "Track removed"})
}

// Delete removes a playlist (admin only route)
func (h *PlaylistHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid playlist id",
		})
	}

	var playlist models.Playlist
	if err := database.DB.First(&playlist, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Playlist not found",
		})
	}

	database.DB.Where("playlist_id = ?", id).Delete(&models.PlaylistTrack{})
	if err := database.DB.Delete(&playlist).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete playlist",
		})
	}

	database.InvalidatePlaylistCache()
	return c.JSON(fiber.Map{"success": true, "message": "Playlist deleted"})
}
