package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/catalog"
	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/entitlement"
	"github.com/beatcrate/backend/internal/middleware"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
)

// TrackHandler serves the track catalog
type TrackHandler struct {
	catalog *plans.Catalog
}

func NewTrackHandler(cat *plans.Catalog) *TrackHandler {
	return &TrackHandler{catalog: cat}
}

type trackListResponse struct {
	Tracks []models.Track `json:"tracks"`
	Total  int64          `json:"total"`
}

// List returns published tracks with filtering and pagination. Exclusive
// tracks are hidden from tiers without exclusive-genre access. Unfiltered
// pages are cached briefly in Redis.
func (h *TrackHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	genre := c.Query("genre")
	search := c.Query("search")

	benefits := entitlement.ResolveUser(h.catalog, user)
	showExclusive := benefits.ExclusiveGenres || user.IsStaff()

	// Cache only the unfiltered listing; filter combinations would explode
	// the key space for little hit rate
	cacheKey := ""
	if genre == "" && search == "" {
		cacheKey = fmt.Sprintf("%sp%d:n%d:x%t", database.CacheKeyTrackList, page, perPage, showExclusive)
		var cached trackListResponse
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			return c.JSON(fiber.Map{
				"success": true,
				"data":    cached.Tracks,
				"pagination": fiber.Map{
					"page":     page,
					"per_page": perPage,
					"total":    cached.Total,
				},
			})
		}
	}

	query := database.DB.Model(&models.Track{}).Where("status = ?", models.TrackStatusPublished)
	if !showExclusive {
		query = query.Where("is_exclusive = ?", false)
	}
	if genre != "" {
		query = query.Where("genre = ?", catalog.NormalizeGenre(genre))
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title ILIKE ? OR artist ILIKE ? OR label ILIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var tracks []models.Track
	if err := query.Order("published_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tracks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load tracks",
		})
	}

	if cacheKey != "" {
		database.CacheSet(cacheKey, trackListResponse{Tracks: tracks, Total: total}, database.CacheTTLTrackList)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tracks,
		"pagination": fiber.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// Genres returns the distinct genres present in the published catalog
func (h *TrackHandler) Genres(c *fiber.Ctx) error {
	var genres []string
	if err := database.CacheGet(database.CacheKeyGenres, &genres); err == nil {
		return c.JSON(fiber.Map{"success": true, "data": genres})
	}

	if err := database.DB.Model(&models.Track{}).
		Where("status = ? AND genre <> ''", models.TrackStatusPublished).
		Distinct("genre").
		Order("genre").
		Pluck("genre", &genres).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load genres",
		})
	}

	database.CacheSet(database.CacheKeyGenres, genres, database.CacheTTLGenres)
	return c.JSON(fiber.Map{"success": true, "data": genres})
}

// Get returns a single track
func (h *TrackHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid track id",
		})
	}

	var track models.Track
	if err := database.DB.First(&track, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	if track.Status != models.TrackStatusPublished && (user == nil || !user.IsStaff()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": track})
}

// Submit lets a member propose a track for the catalog. It lands in
// pending status for curation.
func (h *TrackHandler) Submit(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		Title      string `json:"title"`
		Artist     string `json:"artist"`
		MixName    string `json:"mix_name"`
		Genre      string `json:"genre"`
		BPM        int    `json:"bpm"`
		MusicalKey string `json:"musical_key"`
		Label      string `json:"label"`
		StorageKey string `json:"storage_key"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Title == "" || req.Artist == "" || req.StorageKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "title, artist and storage_key are required",
		})
	}

	submitterID := user.ID
	track := models.Track{
		Title:       req.Title,
		Artist:      req.Artist,
		MixName:     req.MixName,
		Genre:       catalog.NormalizeGenre(req.Genre),
		BPM:         req.BPM,
		MusicalKey:  req.MusicalKey,
		Label:       req.Label,
		StorageKey:  req.StorageKey,
		Status:      models.TrackStatusPending,
		SubmittedBy: &submitterID,
	}
	if err := database.DB.Create(&track).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to submit track",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Track submitted for review",
		"data":    track,
	})
}

// Pending lists tracks awaiting curation (staff only route)
func (h *TrackHandler) Pending(c *fiber.Ctx) error {
	var tracks []models.Track
	if err := database.DB.Where("status = ?", models.TrackStatusPending).
		Order("created_at ASC").
		Find(&tracks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load pending tracks",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": tracks})
}

// Create registers a track directly (staff only route)
func (h *TrackHandler) Create(c *fiber.Ctx) error {
	var track models.Track
	if err := c.BodyParser(&track); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if track.Title == "" || track.Artist == "" || track.StorageKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "title, artist and storage_key are required",
		})
	}

	track.ID = 0
	track.Genre = catalog.NormalizeGenre(track.Genre)
	track.DownloadCount = 0
	if track.Status == 0 {
		track.Status = models.TrackStatusPending
	}
	if track.Status == models.TrackStatusPublished && track.PublishedAt == nil {
		now := time.Now()
		track.PublishedAt = &now
	}

	if err := database.DB.Create(&track).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create track",
		})
	}

	database.InvalidateTrackCache()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": track})
}

// Update edits track metadata (staff only route)
func (h *TrackHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid track id",
		})
	}

	var track models.Track
	if err := database.DB.First(&track, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	var req struct {
		Title       *string `json:"title"`
		Artist      *string `json:"artist"`
		MixName     *string `json:"mix_name"`
		Genre       *string `json:"genre"`
		BPM         *int    `json:"bpm"`
		MusicalKey  *string `json:"musical_key"`
		Label       *string `json:"label"`
		ReleaseYear *int    `json:"release_year"`
		IsExclusive *bool   `json:"is_exclusive"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Artist != nil {
		updates["artist"] = *req.Artist
	}
	if req.MixName != nil {
		updates["mix_name"] = *req.MixName
	}
	if req.Genre != nil {
		updates["genre"] = catalog.NormalizeGenre(*req.Genre)
	}
	if req.BPM != nil {
		updates["bpm"] = *req.BPM
	}
	if req.MusicalKey != nil {
		updates["musical_key"] = *req.MusicalKey
	}
	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.ReleaseYear != nil {
		updates["release_year"] = *req.ReleaseYear
	}
	if req.IsExclusive != nil {
		updates["is_exclusive"] = *req.IsExclusive
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No fields to update",
		})
	}

	if err := database.DB.Model(&track).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update track",
		})
	}

	database.InvalidateTrackCache()
	return c.JSON(fiber.Map{"success": true, "data": track})
}

// Publish moves a pending track into the catalog (staff only route)
func (h *TrackHandler) Publish(c *fiber.Ctx) error {
	return h.setStatus(c, models.TrackStatusPublished, "Track published")
}

// Reject declines a pending track (staff only route)
func (h *TrackHandler) Reject(c *fiber.Ctx) error {
	return h.setStatus(c, models.TrackStatusRejected, "Track rejected")
}

func (h *TrackHandler) setStatus(c *fiber.Ctx, status models.TrackStatus, message string) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid track id",
		})
	}

	var track models.Track
	if err := database.DB.First(&track, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	updates := map[string]interface{}{"status": status}
	if status == models.TrackStatusPublished {
		now := time.Now()
		updates["published_at"] = now
	}
	if err := database.DB.Model(&track).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update track status",
		})
	}

	database.InvalidateTrackCache()
	database.InvalidateStatsCache()
	return c.JSON(fiber.Map{"success": true, "message": message, "data": track})
}

// Delete removes a track from the catalog (admin only route)
func (h *TrackHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid track id",
		})
	}

	var track models.Track
	if err := database.DB.First(&track, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Track not found",
		})
	}

	if err := database.DB.Delete(&track).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete track",
		})
	}

	database.InvalidateTrackCache()
	database.InvalidateStatsCache()
	return c.JSON(fiber.Map{"success": true, "message": "Track deleted"})
}
