package middleware

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/models"
)

// AuditLogger middleware logs API actions to audit log
func AuditLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip non-modifying requests
		method := c.Method()
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			return c.Next()
		}

		// Skip certain paths
		path := c.Path()
		skipPaths := []string{"/api/auth/login", "/api/auth/refresh", "/api/downloads", "/health"}
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		// Get user before executing (context is valid here)
		user := GetCurrentUser(c)
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		// Capture request body for POST/PUT (to get entity name)
		var requestBody []byte
		if method == "POST" || method == "PUT" || method == "PATCH" {
			requestBody = c.Body()
		}

		// For DELETE, capture entity name BEFORE deletion
		var entityNameBeforeDelete string
		if method == "DELETE" {
			entityType := getEntityTypeFromPath(path)
			entityID := extractIDFromPath(path)
			if entityID != "" {
				entityNameBeforeDelete = getEntityName(entityType, entityID)
			}
		}

		// Execute the request
		err := c.Next()

		// Only log successful responses
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 400 && user != nil {
			logAuditEntry(user, method, path, ip, userAgent, requestBody, entityNameBeforeDelete)
		}

		return err
	}
}

// extractIDFromPath gets the numeric ID from URL path
func extractIDFromPath(path string) string {
	idRegex := regexp.MustCompile(`/(\d+)(?:/|$)`)
	matches := idRegex.FindStringSubmatch(path)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

func logAuditEntry(user *models.User, method, path, ip, userAgent string, requestBody []byte, preDeleteName string) {
	if user == nil {
		return
	}

	// Determine action based on method and path verbs
	var action models.AuditAction
	switch {
	case strings.Contains(path, "/toggle"):
		action = models.AuditActionToggle
	case strings.Contains(path, "/publish"):
		action = models.AuditActionPublish
	case strings.Contains(path, "/redeem"):
		action = models.AuditActionRedeem
	case method == "POST":
		action = models.AuditActionCreate
	case method == "PUT" || method == "PATCH":
		action = models.AuditActionUpdate
	case method == "DELETE":
		action = models.AuditActionDelete
	default:
		return
	}

	// Determine entity type from path
	entityType := getEntityTypeFromPath(path)
	if entityType == "" {
		return
	}

	// Generate human-readable description
	description := generateDescription(action, entityType, path, requestBody, preDeleteName)

	auditLog := models.AuditLog{
		UserID:      user.ID,
		Username:    user.Username,
		UserType:    user.UserType,
		Action:      action,
		EntityType:  entityType,
		Description: description,
		IPAddress:   ip,
		UserAgent:   userAgent,
		OldValue:    "{}",
		NewValue:    "{}",
	}
	database.DB.Create(&auditLog)
}

// generateDescription creates a human-readable description for audit logs
func generateDescription(action models.AuditAction, entityType, path string, requestBody []byte, preDeleteName string) string {
	entityID := extractIDFromPath(path)

	var entityName string
	if action == models.AuditActionDelete && preDeleteName != "" {
		// For deletes, use the pre-captured name
		entityName = preDeleteName
	} else if action == models.AuditActionCreate && len(requestBody) > 0 {
		entityName = getNameFromRequestBody(requestBody)
	} else if entityID != "" {
		entityName = getEntityName(entityType, entityID)
	}

	switch action {
	case models.AuditActionToggle:
		return "Toggled " + entityType + formatEntityName(entityName)
	case models.AuditActionPublish:
		return "Published " + entityType + formatEntityName(entityName)
	case models.AuditActionRedeem:
		return "Redeemed promo code"
	}

	actionVerbs := map[models.AuditAction]string{
		models.AuditActionCreate: "Created",
		models.AuditActionUpdate: "Updated",
		models.AuditActionDelete: "Deleted",
	}
	verb := actionVerbs[action]

	if strings.Contains(path, "/reject") {
		return "Rejected " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/fulfill") {
		return "Fulfilled " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/decline") {
		return "Declined " + entityType + formatEntityName(entityName)
	}
	if strings.Contains(path, "/generate") {
		return "Generated promo code batch"
	}

	if entityName != "" {
		return verb + " " + entityType + " \"" + entityName + "\""
	}
	return verb + " " + entityType
}

// getNameFromRequestBody extracts a display name from JSON request body
func getNameFromRequestBody(body []byte) string {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}

	// Try common name fields in order of preference
	nameFields := []string{"title", "name", "username", "dj_name", "full_name"}
	for _, field := range nameFields {
		if val, ok := data[field]; ok {
			if strVal, ok := val.(string); ok && strVal != "" {
				return strVal
			}
		}
	}
	return ""
}

// getEntityName looks up the entity name from database
func getEntityName(entityType, entityID string) string {
	if entityID == "" {
		return ""
	}

	switch entityType {
	case "track":
		var track models.Track
		if database.DB.Select("title").First(&track, entityID).Error == nil {
			return track.Title
		}
	case "user":
		var user models.User
		if database.DB.Select("username").First(&user, entityID).Error == nil {
			return user.Username
		}
	case "playlist":
		var playlist models.Playlist
		if database.DB.Select("name").First(&playlist, entityID).Error == nil {
			return playlist.Name
		}
	case "promo":
		return "promo code #" + entityID
	case "pack-request":
		return "pack request #" + entityID
	}
	return "#" + entityID
}

// formatEntityName adds quotes around non-empty names
func formatEntityName(name string) string {
	if name == "" || strings.HasPrefix(name, "#") {
		return ""
	}
	return " \"" + name + "\""
}

func getEntityTypeFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/api/"), "/")
	if len(parts) == 0 {
		return ""
	}

	entityMap := map[string]string{
		"tracks":        "track",
		"users":         "user",
		"playlists":     "playlist",
		"promo":         "promo",
		"pack-requests": "pack-request",
		"settings":      "settings",
	}

	if entity, ok := entityMap[parts[0]]; ok {
		return entity
	}
	return ""
}
