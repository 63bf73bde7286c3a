package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

type Handlers struct {
	Health        *handlers.HealthHandler
	Subscriptions *handlers.SubscriptionHandler
	Transactions  *handlers.TransactionHandler
	Ops           *handlers.OpsHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// JWT is attached per group so public routes stay untouched.
	// Static segments are registered before /:id.
	subs := api.Group("/subscriptions", middleware.JWTProtected(cfg))
	subs.Post("/", h.Subscriptions.Create)
	subs.Get("/", h.Subscriptions.List)
	subs.Get("/breakdown", h.Subscriptions.Breakdown)
	subs.Post("/cancel", h.Subscriptions.Cancel)
	subs.Post("/confirm", h.Subscriptions.Confirm)
	subs.Get("/:id", h.Subscriptions.Get)
	subs.Put("/:id", h.Subscriptions.Update)
	subs.Delete("/:id", h.Subscriptions.Remove)

	txns := api.Group("/transactions", middleware.JWTProtected(cfg))
	txns.Post("/", h.Transactions.Create)
	txns.Get("/", h.Transactions.List)
	txns.Post("/details", h.Transactions.Details)

	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Post("/renewals/sweep", h.Ops.Sweep)
}
