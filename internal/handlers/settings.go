package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/models"
)

// SettingsHandler manages system preferences (admin only routes).
// Known keys: site_name, api_rate_limit, max_login_attempts.
type SettingsHandler struct{}

func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// editableKeys guards against arbitrary key writes; jwt_secret in
// particular must never be settable over the API
var editableKeys = map[string]bool{
	"site_name":          true,
	"api_rate_limit":     true,
	"max_login_attempts": true,
}

// List returns all editable preferences
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	var prefs []models.SystemPreference
	if err := database.DB.Order("key").Find(&prefs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load settings",
		})
	}

	visible := make([]models.SystemPreference, 0, len(prefs))
	for _, p := range prefs {
		if editableKeys[p.Key] {
			visible = append(visible, p)
		}
	}
	return c.JSON(fiber.Map{"success": true, "data": visible})
}

// Get returns one preference
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	key := c.Params("key")
	if !editableKeys[key] {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Unknown setting",
		})
	}

	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", key).First(&pref).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Setting not set",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": pref})
}

// Update sets one preference, creating it if absent
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	key := c.Params("key")
	if !editableKeys[key] {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Unknown setting",
		})
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var pref models.SystemPreference
	err := database.DB.Where("key = ?", key).First(&pref).Error
	if err != nil {
		pref = models.SystemPreference{Key: key, Value: req.Value, ValueType: "string"}
		if err := database.DB.Create(&pref).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to save setting",
			})
		}
	} else {
		if err := database.DB.Model(&pref).Update("value", req.Value).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to save setting",
			})
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": pref})
}
