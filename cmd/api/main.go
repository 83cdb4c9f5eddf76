package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/beatcrate/backend/internal/config"
	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/handlers"
	"github.com/beatcrate/backend/internal/middleware"
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
	"github.com/beatcrate/backend/internal/services"
	"github.com/beatcrate/backend/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Persisted secret wins over the (possibly ephemeral) config one
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	seedAdminUser()

	// The tier table is built once here and injected everywhere
	catalog := plans.Default()

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to init track storage: %v", err)
	}

	guard := services.NewDownloadGuard(services.NewDownloadStore(database.DB))

	// Label drop ingest runs only when an FTP host is configured
	var ftpIngest *services.FTPIngestService
	if cfg.FTPHost != "" {
		ftpIngest = services.NewFTPIngestService(cfg.FTPHost, cfg.FTPUser, cfg.FTPPassword, cfg.FTPDropDir, cfg.FTPPollMinutes)
		ftpIngest.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      "BeatCrate API v1.0",
		ServerHeader: "BeatCrate",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(middleware.Recovery())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "beatcrate-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	twoFAHandler := handlers.NewTwoFAHandler()
	userHandler := handlers.NewUserHandler(catalog)
	trackHandler := handlers.NewTrackHandler(catalog)
	downloadHandler := handlers.NewDownloadHandler(catalog, guard, store)
	playlistHandler := handlers.NewPlaylistHandler(catalog, store)
	packRequestHandler := handlers.NewPackRequestHandler(catalog)
	promoHandler := handlers.NewPromoHandler(catalog)
	dashboardHandler := handlers.NewDashboardHandler()
	auditHandler := handlers.NewAuditHandler()
	settingsHandler := handlers.NewSettingsHandler()

	// API routes
	api := app.Group("/api")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg), middleware.AuditLogger())

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/refresh", authHandler.RefreshToken)
	protected.Put("/auth/password", authHandler.ChangePassword)

	// 2FA routes (staff accounts)
	twofa := protected.Group("/auth/2fa", middleware.StaffOnly())
	twofa.Get("/status", twoFAHandler.Status)
	twofa.Post("/setup", twoFAHandler.Setup)
	twofa.Post("/verify", twoFAHandler.Verify)
	twofa.Post("/disable", twoFAHandler.Disable)

	// Member self-service
	protected.Get("/me/benefits", userHandler.MyBenefits)

	// Track catalog
	tracks := protected.Group("/tracks")
	tracks.Get("/", trackHandler.List)
	tracks.Get("/genres", trackHandler.Genres)
	tracks.Get("/pending", middleware.StaffOnly(), trackHandler.Pending)
	tracks.Get("/:id", trackHandler.Get)
	tracks.Post("/submit", trackHandler.Submit)
	tracks.Post("/", middleware.StaffOnly(), middleware.NotReadonly(), trackHandler.Create)
	tracks.Put("/:id", middleware.StaffOnly(), middleware.NotReadonly(), trackHandler.Update)
	tracks.Post("/:id/publish", middleware.StaffOnly(), middleware.NotReadonly(), trackHandler.Publish)
	tracks.Post("/:id/reject", middleware.StaffOnly(), middleware.NotReadonly(), trackHandler.Reject)
	tracks.Delete("/:id", middleware.AdminOnly(), trackHandler.Delete)

	// Downloads and the cooldown control queries
	downloads := protected.Group("/downloads")
	downloads.Post("/", downloadHandler.Download)
	downloads.Get("/history", downloadHandler.History)
	downloads.Get("/control", downloadHandler.CheckControl)
	downloads.Get("/control/:id", downloadHandler.CheckControl)
	downloads.Post("/control", downloadHandler.RecordControl)
	downloads.Post("/batch-control", downloadHandler.BatchControl)

	// Playlists
	playlists := protected.Group("/playlists")
	playlists.Get("/", playlistHandler.List)
	playlists.Get("/:id", playlistHandler.Get)
	playlists.Post("/:id/download", playlistHandler.Download)
	playlists.Post("/", middleware.StaffOnly(), middleware.NotReadonly(), playlistHandler.Create)
	playlists.Put("/:id", middleware.StaffOnly(), middleware.NotReadonly(), playlistHandler.Update)
	playlists.Post("/:id/tracks", middleware.StaffOnly(), middleware.NotReadonly(), playlistHandler.AddTrack)
	playlists.Delete("/:id/tracks/:trackId", middleware.StaffOnly(), middleware.NotReadonly(), playlistHandler.RemoveTrack)
	playlists.Delete("/:id", middleware.AdminOnly(), playlistHandler.Delete)

	// Pack requests
	packRequests := protected.Group("/pack-requests")
	packRequests.Post("/", packRequestHandler.Create)
	packRequests.Get("/mine", packRequestHandler.Mine)
	packRequests.Get("/", middleware.StaffOnly(), packRequestHandler.List)
	packRequests.Post("/:id/fulfill", middleware.StaffOnly(), middleware.NotReadonly(), packRequestHandler.Fulfill)
	packRequests.Post("/:id/decline", middleware.StaffOnly(), middleware.NotReadonly(), packRequestHandler.Decline)

	// Promo codes
	promo := protected.Group("/promo")
	promo.Post("/redeem", promoHandler.Redeem)
	promo.Get("/", middleware.AdminOnly(), promoHandler.List)
	promo.Post("/generate", middleware.AdminOnly(), promoHandler.Generate)
	promo.Delete("/:id", middleware.AdminOnly(), promoHandler.Deactivate)

	// User management (staff read, admin write)
	users := protected.Group("/users", middleware.StaffOnly())
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Get("/:id/transactions", userHandler.Transactions)
	users.Post("/", middleware.AdminOnly(), userHandler.Create)
	users.Put("/:id", middleware.AdminOnly(), userHandler.Update)
	users.Patch("/:id/toggle", middleware.AdminOnly(), userHandler.ToggleAddOn)
	users.Patch("/:id/vip", middleware.AdminOnly(), userHandler.ToggleVIP)
	users.Delete("/:id", middleware.AdminOnly(), userHandler.Delete)

	// Dashboard (staff)
	protected.Get("/dashboard/stats", middleware.StaffOnly(), dashboardHandler.Stats)

	// Audit trail (admin only)
	protected.Get("/audit", middleware.AdminOnly(), auditHandler.List)

	// Settings (admin only)
	settings := protected.Group("/settings", middleware.AdminOnly())
	settings.Get("/", settingsHandler.List)
	settings.Get("/:key", settingsHandler.Get)
	settings.Put("/:key", settingsHandler.Update)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if ftpIngest != nil {
			ftpIngest.Stop()
		}
		app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting BeatCrate API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedAdminUser() {
	var count int64
	database.DB.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&count)

	if count == 0 {
		log.Println("Creating default admin user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)

		admin := models.User{
			Username:            "admin",
			Password:            string(hashedPassword),
			Email:               "admin@beatcrate.local",
			FullName:            "System Administrator",
			UserType:            models.UserTypeAdmin,
			ForcePasswordChange: true,
			IsActive:            true,
		}

		if err := database.DB.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created successfully (username: admin, password: admin123)")
		}
	}
}
