package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/entitlement"
	"github.com/beatcrate/backend/internal/middleware"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
)

// PromoHandler manages redeemable subscription codes
type PromoHandler struct {
	catalog *plans.Catalog
}

func NewPromoHandler(cat *plans.Catalog) *PromoHandler {
	return &PromoHandler{catalog: cat}
}

// Ambiguous characters (0/O, 1/I) are excluded from generated codes
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePromoCode() (string, error) {
	var sb strings.Builder
	sb.WriteString("BC-")
	for i := 0; i < 10; i++ {
		if i == 5 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeCharset[n.Int64()])
	}
	return sb.String(), nil
}

// Generate creates a batch of promo codes (admin only route)
func (h *PromoHandler) Generate(c *fiber.Ctx) error {
	var req struct {
		Count      int     `json:"count"`
		PlanPrice  float64 `json:"plan_price"`
		Days       int     `json:"days"`
		ExpiryDays int     `json:"expiry_days"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Count < 1 || req.Count > 1000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "count must be between 1 and 1000",
		})
	}
	if req.PlanPrice <= 0 || req.Days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "plan_price and days must be positive",
		})
	}

	adminID := middleware.GetCurrentUserID(c)
	batchID := uuid.New().String()
	var expiry *time.Time
	if req.ExpiryDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiryDays)
		expiry = &t
	}

	codes := make([]models.PromoCode, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		code, err := generatePromoCode()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to generate codes",
			})
		}
		codes = append(codes, models.PromoCode{
			Code:        code,
			PlanPrice:   req.PlanPrice,
			Days:        req.Days,
			BatchID:     batchID,
			BatchNumber: i + 1,
			IsActive:    true,
			ExpiryDate:  expiry,
			CreatedBy:   adminID,
		})
	}

	if err := database.DB.Create(&codes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save promo codes",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"batch_id": batchID,
		"data":     codes,
	})
}

// List returns promo codes, filterable by batch and used state (admin only route)
func (h *PromoHandler) List(c *fiber.Ctx) error {
	query := database.DB.Model(&models.PromoCode{})
	if batch := c.Query("batch_id"); batch != "" {
		query = query.Where("batch_id = ?", batch)
	}
	if used := c.Query("used"); used != "" {
		query = query.Where("is_used = ?", used == "true")
	}

	var codes []models.PromoCode
	if err := query.Order("created_at DESC, batch_number ASC").
		Limit(1000).
		Find(&codes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load promo codes",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": codes})
}

// Deactivate voids an unused code (admin only route)
func (h *PromoHandler) Deactivate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid promo code id",
		})
	}

	result := database.DB.Model(&models.PromoCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_active", false)
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Promo code not found or already used",
		})
	}

	return c.JSON(fiber.Map{"success": true, "message": "Promo code deactivated"})
}

// Redeem applies a promo code to the caller's account. The code's plan
// price becomes the new base price and the granted days extend the current
// subscription. Single-use: the claim is an atomic conditional update so
// two concurrent redemptions of the same code cannot both succeed.
func (h *PromoHandler) Redeem(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "code is required",
		})
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	var promo models.PromoCode
	if err := database.DB.Where("code = ?", code).First(&promo).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Invalid promo code",
		})
	}
	if !promo.IsActive || promo.IsUsed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Promo code has already been used",
		})
	}
	if promo.ExpiryDate != nil && time.Now().After(*promo.ExpiryDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Promo code has expired",
		})
	}

	newTotal := entitlement.ComposeTotal(h.catalog, promo.PlanPrice, entitlement.ActiveAddOns(user))

	// Days stack on a running subscription, otherwise count from now
	start := time.Now()
	if user.SubscriptionExpiry != nil && user.SubscriptionExpiry.After(start) {
		start = *user.SubscriptionExpiry
	}
	newExpiry := start.AddDate(0, 0, promo.Days)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		claim := tx.Model(&models.PromoCode{}).
			Where("id = ? AND is_used = ? AND is_active = ?", promo.ID, false, true).
			Updates(map[string]interface{}{
				"is_used": true,
				"used_by": user.ID,
				"used_at": now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(user).Updates(map[string]interface{}{
			"base_price":          promo.PlanPrice,
			"plan_price":          newTotal,
			"subscription_expiry": newExpiry,
		}).Error; err != nil {
			return err
		}

		txn := models.Transaction{
			Type:        models.TransactionTypePromoRedeem,
			Amount:      newTotal,
			TotalBefore: user.PlanPrice,
			TotalAfter:  newTotal,
			Description: fmt.Sprintf("Redeemed promo code %s (%d days)", promo.Code, promo.Days),
			Reference:   uuid.New().String(),
			UserID:      user.ID,
			IPAddress:   c.IP(),
			CreatedBy:   user.ID,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Promo code has already been used",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to redeem promo code",
		})
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"message":             fmt.Sprintf("Subscription extended by %d days", promo.Days),
		"plan_price":          newTotal,
		"subscription_expiry": newExpiry,
	})
}
