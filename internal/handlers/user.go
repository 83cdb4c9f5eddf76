package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/entitlement"
	"github.com/beatcrate/backend/internal/middleware"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
	"github.com/beatcrate/backend/internal/services"
)

// UserHandler serves member accounts and the add-on toggles that reprice them
type UserHandler struct {
	catalog *plans.Catalog
}

func NewUserHandler(cat *plans.Catalog) *UserHandler {
	return &UserHandler{catalog: cat}
}

// List returns users with pagination and search (staff only route)
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	search := c.Query("search")

	query := database.DB.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ? OR dj_name ILIKE ? OR full_name ILIKE ?",
			like, like, like, like)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load users",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// Get returns a single user with their resolved benefits (staff only route)
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"data":     user,
		"benefits": entitlement.ResolveUser(h.catalog, &user),
	})
}

// Create registers a new account (admin only route)
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Username  string          `json:"username"`
		Password  string          `json:"password"`
		Email     string          `json:"email"`
		Phone     string          `json:"phone"`
		FullName  string          `json:"full_name"`
		DJName    string          `json:"dj_name"`
		UserType  models.UserType `json:"user_type"`
		BasePrice float64         `json:"base_price"`
		Days      int             `json:"days"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Username and password are required",
		})
	}
	if len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Password must be at least 6 characters",
		})
	}

	var count int64
	database.DB.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Username already exists",
		})
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to hash password",
		})
	}

	if req.UserType == 0 {
		req.UserType = models.UserTypeMember
	}

	user := models.User{
		Username:            req.Username,
		Password:            hashed,
		Email:               req.Email,
		Phone:               req.Phone,
		FullName:            req.FullName,
		DJName:              req.DJName,
		UserType:            req.UserType,
		IsActive:            true,
		BasePrice:           req.BasePrice,
		PlanPrice:           req.BasePrice,
		ForcePasswordChange: true,
	}
	if req.Days > 0 {
		expiry := time.Now().AddDate(0, 0, req.Days)
		user.SubscriptionExpiry = &expiry
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create user",
		})
	}

	database.InvalidateStatsCache()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}

// Update edits account fields (admin only route). Plan changes go through
// here; add-on toggles have their own endpoint so repricing stays in one
// place.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		Email     *string  `json:"email"`
		Phone     *string  `json:"phone"`
		FullName  *string  `json:"full_name"`
		DJName    *string  `json:"dj_name"`
		IsActive  *bool    `json:"is_active"`
		BasePrice *float64 `json:"base_price"`
		Days      *int     `json:"days"`
		Password  *string  `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.DJName != nil {
		updates["dj_name"] = *req.DJName
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Password must be at least 6 characters",
			})
		}
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to hash password",
			})
		}
		updates["password"] = hashed
		updates["force_password_change"] = true
	}

	// Plan change: recompose the billed total at the new base price so
	// active add-ons get repriced at the new tier's discount
	if req.BasePrice != nil && *req.BasePrice != user.BasePrice {
		newTotal := entitlement.ComposeTotal(h.catalog, *req.BasePrice, entitlement.ActiveAddOns(&user))
		updates["base_price"] = *req.BasePrice
		updates["plan_price"] = newTotal

		admin := middleware.GetCurrentUser(c)
		txn := models.Transaction{
			Type:        models.TransactionTypePlanChange,
			Amount:      newTotal - user.PlanPrice,
			TotalBefore: user.PlanPrice,
			TotalAfter:  newTotal,
			Description: fmt.Sprintf("Plan changed from %.2f to %.2f", user.BasePrice, *req.BasePrice),
			Reference:   uuid.New().String(),
			UserID:      user.ID,
			IPAddress:   c.IP(),
		}
		if admin != nil {
			txn.CreatedBy = admin.ID
		}
		database.DB.Create(&txn)
	}
	if req.Days != nil {
		expiry := time.Now().AddDate(0, 0, *req.Days)
		updates["subscription_expiry"] = expiry
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No fields to update",
		})
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update user",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}

// Delete soft-deletes an account (admin only route)
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	currentID := middleware.GetCurrentUserID(c)
	if uint(id) == currentID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Cannot delete your own account",
		})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	if err := database.DB.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete user",
		})
	}

	database.InvalidateStatsCache()
	return c.JSON(fiber.Map{"success": true, "message": "User deleted"})
}

// ToggleAddOn flips one add-on on a user account and reprices the
// subscription (admin only route). Accounts with a stored base price get
// an exact recompose; legacy rows that only carry the combined total go
// through decompose-then-recompose.
func (h *UserHandler) ToggleAddOn(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var req struct {
		Field string `json:"field"`
		Value bool   `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	addon := plans.AddOn(req.Field)
	column := ""
	switch addon {
	case plans.AddOnDeemix:
		column = "deemix"
	case plans.AddOnDeezerPremium:
		column = "deezer_premium"
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Unknown add-on",
		})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	prev := entitlement.ActiveAddOns(&user)
	if prev[addon] == req.Value {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Add-on already in requested state",
		})
	}
	next := map[plans.AddOn]bool{}
	for k, v := range prev {
		next[k] = v
	}
	next[addon] = req.Value

	var newTotal float64
	if user.BasePrice > 0 {
		newTotal = entitlement.ComposeTotal(h.catalog, user.BasePrice, next)
	} else {
		newTotal = entitlement.RecalculateTotal(h.catalog, user.PlanPrice, prev, next)
	}

	txnType := models.TransactionTypeAddonEnable
	verb := "enabled"
	if !req.Value {
		txnType = models.TransactionTypeAddonDisable
		verb = "disabled"
	}

	admin := middleware.GetCurrentUser(c)
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]interface{}{
			column:       req.Value,
			"plan_price": newTotal,
		}).Error; err != nil {
			return err
		}

		txn := models.Transaction{
			Type:        txnType,
			Amount:      newTotal - user.PlanPrice,
			TotalBefore: user.PlanPrice,
			TotalAfter:  newTotal,
			Description: fmt.Sprintf("Add-on %s %s for %s", addon, verb, user.Username),
			Reference:   uuid.New().String(),
			UserID:      user.ID,
			IPAddress:   c.IP(),
		}
		if admin != nil {
			txn.CreatedBy = admin.ID
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to toggle add-on",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    fmt.Sprintf("Add-on %s %s", addon, verb),
		"plan_price": newTotal,
	})
}

// ToggleVIP flips the VIP flag (admin only route). VIP members skip the
// daily download counter; the per-track cooldown still applies.
func (h *UserHandler) ToggleVIP(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	if err := database.DB.Model(&user).Update("is_vip", !user.IsVIP).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to toggle VIP status",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"is_vip":  !user.IsVIP,
	})
}

// MyBenefits returns the caller's resolved benefit bundle and usage state
func (h *UserHandler) MyBenefits(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	if services.ApplyLazyResets(user, time.Now()) {
		database.DB.Model(user).Updates(map[string]interface{}{
			"daily_downloads_used":           user.DailyDownloadsUsed,
			"daily_reset_at":                 user.DailyResetAt,
			"weekly_pack_requests_used":      user.WeeklyPackRequestsUsed,
			"weekly_playlist_downloads_used": user.WeeklyPlaylistDownloadsUsed,
			"weekly_reset_at":                user.WeeklyResetAt,
		})
	}

	benefits := entitlement.ResolveUser(h.catalog, user)
	return c.JSON(fiber.Map{
		"success":  true,
		"benefits": benefits,
		"usage": fiber.Map{
			"daily_downloads_used":           user.DailyDownloadsUsed,
			"weekly_pack_requests_used":      user.WeeklyPackRequestsUsed,
			"weekly_playlist_downloads_used": user.WeeklyPlaylistDownloadsUsed,
		},
		"is_vip": user.IsVIP,
	})
}

// Transactions lists a user's billing history (staff only route)
func (h *UserHandler) Transactions(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var txns []models.Transaction
	if err := database.DB.Where("user_id = ?", id).
		Order("created_at DESC").
		Limit(200).
		Find(&txns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load transactions",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": txns})
}
