package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"fefe/internal/config"
	"fefe/internal/http/handlers"
	applog "fefe/internal/log"
	"fefe/internal/payments"
	"fefe/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging: app log goes to stdout plus the file.
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
			applog.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	var provider payments.Provider
	if cfg.PaymentSecretKey != "" {
		provider = payments.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey)
	} else {
		log.Printf("[warn] PAYMENT_SECRET_KEY not set, using in-memory payment provider")
		provider = payments.NewFakeProvider()
	}

	engine := html.New("./web/templates", ".html")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	deps := handlers.NewDeps(db, cfg, provider)
	auth := deps.Auth

	api := app.Group("/api/v1")

	// Auth (login throttled)
	loginLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, retry later"})
		},
	})
	api.Post("/auth/register", deps.AuthHandler.Register)
	api.Post("/auth/login", loginLimiter, deps.AuthHandler.Login)
	api.Post("/auth/logout", deps.AuthHandler.Logout)
	api.Get("/auth/me", handlers.RequireUser(auth), deps.AuthHandler.Me)

	// Catalog
	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/:id", deps.ProductHandler.Get)
	api.Get("/products/:id/availability", availLimiter, deps.ProductHandler.Availability)
	api.Get("/products/:id/reviews", deps.ProductHandler.Reviews)
	api.Post("/products/:id/reviews", handlers.RequireUser(auth), deps.ProductHandler.AddReview)

	// Orders
	api.Post("/orders", handlers.RequireUser(auth), deps.OrderHandler.Create)
	api.Get("/orders/my-orders", handlers.RequireUser(auth), deps.OrderHandler.MyOrders)
	api.Get("/orders/:id", handlers.RequireUser(auth), deps.OrderHandler.Get)
	api.Put("/orders/:id/cancel", handlers.RequireUser(auth), deps.OrderHandler.Cancel)

	// Payments. The webhook is unauthenticated; the HMAC signature is the
	// auth. Throttled against replay floods.
	webhookLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.webhook.hit", nil)
			return c.SendStatus(fiber.StatusTooManyRequests)
		},
	})
	api.Post("/payments/create-intent", handlers.RequireUser(auth), deps.PaymentHandler.CreateIntent)
	api.Post("/payments/confirm", handlers.RequireUser(auth), deps.PaymentHandler.Confirm)
	api.Post("/payments/webhook", webhookLimiter, deps.PaymentHandler.Webhook)

	// Collaborations
	api.Get("/collaborations", handlers.OptionalUser(auth), deps.CollabHandler.List)
	api.Get("/collaborations/my-projects", handlers.RequireUser(auth), deps.CollabHandler.MyProjects)
	api.Get("/collaborations/:id", handlers.OptionalUser(auth), deps.CollabHandler.Get)
	api.Post("/collaborations", handlers.RequireUser(auth), deps.CollabHandler.Create)
	api.Post("/collaborations/:id/apply", handlers.RequireUser(auth), deps.CollabHandler.Apply)
	api.Put("/collaborations/:id/participants/:participantId", handlers.RequireUser(auth), deps.CollabHandler.Decide)
	api.Put("/collaborations/:id/complete", handlers.RequireUser(auth), deps.CollabHandler.Complete)
	api.Put("/collaborations/:id/budget", handlers.RequireUser(auth), deps.CollabHandler.UpdateBudget)
	api.Put("/collaborations/:id/status", handlers.RequireUser(auth), deps.CollabHandler.SetStatus)

	// Collaborator profiles
	api.Post("/collaborators", handlers.RequireUser(auth), deps.CollaboratorHandler.CreateProfile)
	api.Get("/collaborators/me", handlers.RequireUser(auth), deps.CollaboratorHandler.Me)
	api.Get("/collaborators/:id", deps.CollaboratorHandler.Get)

	// Admin JSON API
	adminAPI := api.Group("/admin", handlers.RequireAdmin(auth))
	adminAPI.Get("/orders", deps.AdminHandler.ListOrders)
	adminAPI.Get("/orders/stats", deps.AdminHandler.OrderStats)
	adminAPI.Put("/orders/:id/status", deps.OrderHandler.UpdateStatus)
	adminAPI.Put("/orders/:id/refund", deps.PaymentHandler.Refund)

	// Admin back-office pages
	admin := app.Group("/admin", handlers.RequireAdmin(auth))
	admin.Get("/", deps.AdminHandler.Dashboard)
	admin.Get("/orders", deps.AdminHandler.OrdersPage)
	admin.Get("/inventory", deps.AdminHandler.InventoryPage)
	admin.Post("/inventory", deps.AdminHandler.UpdateInventory)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
