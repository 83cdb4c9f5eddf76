package middleware

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/models"
)

const defaultRateLimit = 100 // requests per window when no preference is set

// rateWindow tracks request count per client IP within one window
type rateWindow struct {
	Count   int
	ResetAt time.Time
}

var (
	rateWindows     = make(map[string]*rateWindow)
	rateWindowMutex sync.Mutex
)

// apiRateLimit reads the configurable limit from system preferences.
// Admins tune it at runtime through the settings endpoint.
func apiRateLimit() int {
	var pref models.SystemPreference
	if err := database.DB.Where("key = ?", "api_rate_limit").First(&pref).Error; err != nil {
		return defaultRateLimit
	}
	if val, err := strconv.Atoi(pref.Value); err == nil && val > 0 {
		return val
	}
	return defaultRateLimit
}

// Logger writes one line per request: status, latency, client IP, route
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.Printf(
			"%s | %3d | %13v | %15s | %-7s %s",
			time.Now().Format("2006/01/02 - 15:04:05"),
			c.Response().StatusCode(),
			time.Since(start),
			c.IP(),
			c.Method(),
			c.Path(),
		)

		return err
	}
}

// CORS allows the member and admin frontends to call the API cross-origin
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Set("Access-Control-Allow-Credentials", "true")
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == "OPTIONS" {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}

// RateLimiter caps requests per IP per window. The api_rate_limit system
// preference overrides maxRequests when set, so download spikes during big
// label drops can be absorbed without a redeploy.
func RateLimiter(maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		if limit := apiRateLimit(); limit > 0 {
			maxRequests = limit
		}

		rateWindowMutex.Lock()

		entry, exists := rateWindows[ip]
		now := time.Now()

		if !exists || now.After(entry.ResetAt) {
			rateWindows[ip] = &rateWindow{
				Count:   1,
				ResetAt: now.Add(window),
			}
			rateWindowMutex.Unlock()
			return c.Next()
		}

		if entry.Count >= maxRequests {
			rateWindowMutex.Unlock()
			remaining := int(entry.ResetAt.Sub(now).Seconds())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Rate limit exceeded. Try again in " + strconv.Itoa(remaining) + " seconds",
			})
		}

		entry.Count++
		rateWindowMutex.Unlock()
		return c.Next()
	}
}

// Recovery turns handler panics into a logged 500 instead of a dropped
// connection
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic recovered on %s %s: %v", c.Method(), c.Path(), r)
				c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": "Internal server error",
				})
			}
		}()
		return c.Next()
	}
}
