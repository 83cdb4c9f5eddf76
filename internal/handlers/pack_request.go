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
)

// PackRequestHandler serves member requests for curated packs
type PackRequestHandler struct {
	catalog *plans.Catalog
}

func NewPackRequestHandler(cat *plans.Catalog) *PackRequestHandler {
	return &PackRequestHandler{catalog: cat}
}

// Create files a pack request against the weekly quota
func (h *PackRequestHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		Genres string `json:"genres"`
		Notes  string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil || req.Genres == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "genres is required",
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
	limit := benefits.PackRequestsPerWeek
	if !user.IsVIP && !user.IsStaff() && limit != plans.Unlimited {
		if limit <= 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Pack requests require a paid subscription",
			})
		}
		if user.WeeklyPackRequestsUsed >= limit {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Weekly pack request limit reached",
				"limit": limit,
				"used":  user.WeeklyPackRequestsUsed,
			})
		}
	}

	request := models.PackRequest{
		UserID: user.ID,
		Genres: req.Genres,
		Notes:  req.Notes,
		Status: models.PackRequestStatusOpen,
	}
	if err := database.DB.Create(&request).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create pack request",
		})
	}

	if !user.IsVIP && !user.IsStaff() && limit != plans.Unlimited {
		user.WeeklyPackRequestsUsed++
		database.DB.Model(user).Update("weekly_pack_requests_used", user.WeeklyPackRequestsUsed)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": request})
}

// Mine lists the caller's own pack requests
func (h *PackRequestHandler) Mine(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var requests []models.PackRequest
	if err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load pack requests",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": requests})
}

// List returns all pack requests, open first (staff only route)
func (h *PackRequestHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")

	query := database.DB.Model(&models.PackRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.PackRequest
	if err := query.Order("status ASC, created_at ASC").Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load pack requests",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": requests})
}

// Fulfill marks a request fulfilled, optionally linking the playlist built
// for it (staff only route)
func (h *PackRequestHandler) Fulfill(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid pack request id",
		})
	}

	var req struct {
		PlaylistID *uint `json:"playlist_id"`
	}
	c.BodyParser(&req)

	var request models.PackRequest
	if err := database.DB.First(&request, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Pack request not found",
		})
	}
	if request.Status != models.PackRequestStatusOpen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Pack request is already resolved",
		})
	}

	staffID := middleware.GetCurrentUserID(c)
	updates := map[string]interface{}{
		"status":       models.PackRequestStatusFulfilled,
		"fulfilled_by": staffID,
	}
	if req.PlaylistID != nil {
		updates["playlist_id"] = *req.PlaylistID
	}
	if err := database.DB.Model(&request).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fulfill pack request",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

// Decline closes a request without fulfillment (staff only route)
func (h *PackRequestHandler) Decline(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid pack request id",
		})
	}

	var request models.PackRequest
	if err := database.DB.First(&request, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Pack request not found",
		})
	}
	if request.Status != models.PackRequestStatusOpen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Pack request is already resolved",
		})
	}

	staffID := middleware.GetCurrentUserID(c)
	if err := database.DB.Model(&request).Updates(map[string]interface{}{
		"status":       models.PackRequestStatusDeclined,
		"fulfilled_by": staffID,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to decline pack request",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}
