package routes

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/thousandways/scitore-api/internal/cache"
	"github.com/thousandways/scitore-api/internal/config"
	"github.com/thousandways/scitore-api/internal/handlers"
	"github.com/thousandways/scitore-api/internal/middleware"
	"gorm.io/gorm"
)

const webhooksPrefix = "/api/webhooks/"

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Audio    *handlers.AudioHandler
	Playlist *handlers.PlaylistHandler
	History  *handlers.HistoryHandler
	Bookmark *handlers.BookmarkHandler
	Webhook  *handlers.WebhookHandler
	Health   *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, responseCache *cache.ResponseCache, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP. Billing deliveries come
	// in bursts from a few provider IPs and are exempt.
	api.Use(limiter.New(limiter.Config{
		Next:              func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), webhooksPrefix) },
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Login: stricter limit, 10 req/min per IP
	login := api.Group("/login", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	login.Post("/google/loginSignUp", h.Auth.GoogleLogin)
	login.Post("/apple/loginSignUp", h.Auth.AppleLogin)
	login.Post("/refresh", h.Auth.Refresh)
	login.Post("/logout", h.Auth.Logout)

	jwt := middleware.JWTProtected(cfg)
	admin := middleware.AdminRequired(db, cfg)

	// Catalog: public cached reads, admin writes purge the cache
	audio := api.Group("/audio", responseCache.PurgeOnWrite())
	audio.Get("/", responseCache.Middleware(), h.Audio.List)
	audio.Get("/:id", responseCache.Middleware(), h.Audio.Get)
	audio.Post("/", admin, h.Audio.Create)
	audio.Post("/upload", admin, h.Audio.Upload)
	audio.Put("/:id", admin, h.Audio.Update)
	audio.Delete("/:id", admin, h.Audio.Delete)

	playlist := api.Group("/playlist", responseCache.PurgeOnWrite())
	playlist.Get("/", responseCache.Middleware(), h.Playlist.List)
	playlist.Get("/search", responseCache.Middleware(), h.Playlist.Search)
	playlist.Get("/:id", responseCache.Middleware(), h.Playlist.Get)
	playlist.Post("/", admin, h.Playlist.Create)
	playlist.Post("/bulk", admin, h.Playlist.CreateBulk)
	playlist.Put("/:id", admin, h.Playlist.Update)
	playlist.Put("/:id/chapters", admin, h.Playlist.UpdateChapters)
	playlist.Delete("/:id", admin, h.Playlist.Delete)

	// User-scoped: the token subject must own the resource
	users := api.Group("/users", jwt)
	users.Get("/:id", middleware.RequireSelf("id"), h.User.Get)
	users.Post("/:id", middleware.RequireSelf("id"), h.User.Update)
	users.Delete("/:id", middleware.RequireSelf("id"), h.User.Delete)

	history := api.Group("/play-history", jwt)
	history.Post("/update", h.History.Update)
	history.Get("/:userId", middleware.RequireSelf("userId"), h.History.List)
	history.Get("/:userId/:playlistId", middleware.RequireSelf("userId"), h.History.Get)

	bookmarks := api.Group("/bookmarks", jwt)
	bookmarks.Post("/toggle", h.Bookmark.Toggle)
	bookmarks.Get("/:userId", middleware.RequireSelf("userId"), h.Bookmark.List)
	bookmarks.Get("/:userId/:playlistId", middleware.RequireSelf("userId"), h.Bookmark.Status)

	// Webhooks: shared-secret header, no JWT
	api.Post("/webhooks/revenuecat", h.Webhook.HandleRevenueCat)
}
