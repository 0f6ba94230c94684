// Package server assembles the HTTP API.
package server

import (
	"net/http"
	"time"

	"ecofinds/internal/handlers"
	"ecofinds/internal/handlers/response"
	"ecofinds/internal/middleware"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

// Options tune the HTTP app.
type Options struct {
	// Uploads serves stored images under /uploads when set.
	Uploads http.FileSystem
	// Health reports the status of backing services, keyed by name.
	Health func() map[string]string
	// BodyLimit caps request bodies in bytes. Zero means 16 MiB.
	BodyLimit int
}

// New builds the fiber app with every route mounted.
func New(auth *services.AuthService, catalog *services.CatalogService, cart *services.CartService, opts Options) *fiber.App {
	if opts.BodyLimit == 0 {
		opts.BodyLimit = 16 << 20
	}

	app := fiber.New(fiber.Config{
		AppName:      "EcoFinds",
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: response.ErrorHandler,
	})
	middleware.SetupMiddleware(app)

	if opts.Uploads != nil {
		app.Use("/uploads", filesystem.New(filesystem.Config{
			Root:   opts.Uploads,
			MaxAge: 3600,
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if opts.Health != nil {
			for name, s := range opts.Health() {
				status[name] = s
			}
		}
		return c.JSON(status)
	})

	apiV1 := app.Group("/api/v1")
	requireAuth := middleware.AuthRequired(auth)
	handlers.NewAuthHandler(auth).RegisterRoutes(apiV1, requireAuth)
	handlers.NewProductHandler(catalog).RegisterRoutes(apiV1, requireAuth)
	handlers.NewCartHandler(cart).RegisterRoutes(apiV1, requireAuth)

	app.Use(middleware.NotFound)
	return app
}
