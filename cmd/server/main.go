package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/thousandways/scitore-api/internal/cache"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/database"
	"github.com/thousandways/scitore-api/internal/handlers"
	"github.com/thousandways/scitore-api/internal/jwks"
	"github.com/thousandways/scitore-api/internal/logging"
	"github.com/thousandways/scitore-api/internal/middleware"
	"github.com/thousandways/scitore-api/internal/routes"
	"github.com/thousandways/scitore-api/internal/services"
	"github.com/thousandways/scitore-api/internal/storage"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.RevenueCatWebhookAuth == "" {
		slog.Warn("REVENUECAT_WEBHOOK_AUTH not set, webhook requests are not authenticated")
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Identity providers
	httpClient := &http.Client{Timeout: 10 * time.Second}
	googleValidator, err := idtoken.NewValidator(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		slog.Error("google token validator init failed", "error", err)
		os.Exit(1)
	}
	appleKeys := jwks.New(cfg.AppleJWKSURL, cfg.AppleJWKSTTL, jwks.WithHTTPClient(httpClient))

	// Object storage
	var store storage.ObjectStore = storage.Discard{}
	if cfg.StorageEnabled() {
		store = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	} else {
		slog.Warn("SUPABASE_URL/SUPABASE_KEY not set, audio uploads disabled")
	}

	// Catalog cache (optional)
	rdb := cache.NewClient(cfg)
	responseCache := cache.NewResponseCache(rdb, cfg.CacheTTL)

	// Services
	verifier := services.NewIdentityVerifier(googleValidator, appleKeys, cfg)
	accountService := services.NewAccountService(database.DB)
	authService := services.NewAuthService(database.DB, cfg, verifier, accountService)
	userService := services.NewUserService(database.DB)
	audioService := services.NewAudioService(database.DB, store)
	playlistService := services.NewPlaylistService(database.DB)
	playbackService := services.NewPlaybackService(database.DB, playlistService)
	bookmarkService := services.NewBookmarkService(database.DB, playlistService)
	entitlementService := services.NewEntitlementService(database.DB)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${locals:requestid} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, database.DB, responseCache, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		User:     handlers.NewUserHandler(userService),
		Audio:    handlers.NewAudioHandler(audioService),
		Playlist: handlers.NewPlaylistHandler(playlistService),
		History:  handlers.NewHistoryHandler(playbackService),
		Bookmark: handlers.NewBookmarkHandler(bookmarkService),
		Webhook:  handlers.NewWebhookHandler(entitlementService, cfg.RevenueCatWebhookAuth),
		Health:   handlers.NewHealthHandler(database.DB, rdb),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only client errors carry their detail
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
