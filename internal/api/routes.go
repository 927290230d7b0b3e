package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/letterpress/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers) {
	// API group with versioning
	api := app.Group("/api/v1", middleware.NewAPIKey())

	// Health check endpoint
	api.Get("/health", handlers.HealthCheck)

	// Subscribers
	api.Post("/subscribe", handlers.Subscribe)
	api.Post("/unsubscribe", handlers.Unsubscribe)

	// AI
	api.Post("/summarize", handlers.Summarize)
	api.Post("/redesign", handlers.Redesign)

	// Output
	api.Post("/render", handlers.Render)
	api.Post("/export", handlers.Export)
	api.Post("/send", handlers.Send)
	api.Post("/send-bulk", handlers.SendBulk)

	// Saved newsletters
	newsletters := api.Group("/newsletters")
	{
		newsletters.Get("", handlers.ListNewsletters)
		newsletters.Post("", handlers.CreateNewsletter)
		newsletters.Get("/:id", handlers.GetNewsletter)
		newsletters.Put("/:id", handlers.UpdateNewsletter)
		newsletters.Delete("/:id", handlers.DeleteNewsletter)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Endpoint not found",
		})
	})
}
