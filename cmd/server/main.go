package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/database"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/logging"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/notify"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/plans"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/routes"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/worker"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != database.DriverSQLite && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Plan limits (optional; without a file every plan is unlimited)
	registry := plans.NewRegistry()
	if cfg.PlansConfigPath != "" {
		loaded, err := plans.LoadFromFile(cfg.PlansConfigPath)
		if err != nil {
			slog.Error("failed to load plans", "path", cfg.PlansConfigPath, "error", err)
			os.Exit(1)
		}
		registry = loaded
	}
	slog.Info("plan registry loaded", "plans", registry.Len())

	// Database
	db, err := database.Open(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout),
		pgLogHandler,
	)))

	tz, err := timezone.NewResolver(cfg.TimezoneCacheSize)
	if err != nil {
		slog.Error("timezone cache init failed", "error", err)
		os.Exit(1)
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(slog.Default())
	if cfg.NotifyWebhookURL != "" {
		dispatcher = notify.NewWebhookDispatcher(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
	}

	// Services
	prefs := services.NewUserPreferenceStore(db)
	quota := services.NewPlanQuota(db, registry)
	subscriptionService := services.NewSubscriptionService(db, quota, prefs, tz, cfg)
	transactionService := services.NewTransactionService(db, prefs, cfg)
	breakdownService := services.NewBreakdownService(db, prefs, tz, cfg)
	scheduler := services.NewRenewalScheduler(db, prefs, tz, dispatcher, cfg)

	// Background jobs
	sweep := worker.NewPeriodic("renewal-sweep", cfg.SweepInterval, scheduler.Run)
	cleanup := worker.NewPeriodic("log-cleanup", 24*time.Hour, logging.Cleanup(db, cfg.LogRetentionDays))
	sweep.Start()
	cleanup.Start()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
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
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, db, routes.Handlers{
		Health:        handlers.NewHealthHandler(db, registry),
		Subscriptions: handlers.NewSubscriptionHandler(subscriptionService, breakdownService),
		Transactions:  handlers.NewTransactionHandler(transactionService),
		Ops:           handlers.NewOpsHandler(scheduler, cfg),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "sweep_interval", cfg.SweepInterval.String())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	sweep.Stop()
	cleanup.Stop()
	if err := dispatcher.Close(); err != nil {
		slog.Error("dispatcher close error", "error", err)
	}
	tz.Close()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
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

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
