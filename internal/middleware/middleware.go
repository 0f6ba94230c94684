package middleware

import (
	"strings"

	"ecofinds/internal/handlers/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// SetupMiddleware configures all application middleware.
func SetupMiddleware(app *fiber.App) {
	app.Use(requestid.New())

	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${method} ${path} - ${ip} - ${latency} - ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		// Listing images are loaded cross-origin by the web client.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: false,
		ExposeHeaders:    "X-Request-ID",
		MaxAge:           86400,
	}))
}

// NotFound answers every request no route matched.
func NotFound(c *fiber.Ctx) error {
	msg := "The requested resource was not found"
	if !strings.HasPrefix(c.Path(), "/api") {
		return c.Status(fiber.StatusNotFound).SendString(msg)
	}
	return c.Status(fiber.StatusNotFound).JSON(response.Error("Not Found", msg))
}
