package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"filemaster/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. protected
// runs in front of every /api route (authentication, rate limiting).
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.FileService, protected ...fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api", protected...)
	api.Post("/process", ProcessFiles(svc))
	api.Get("/download/:id", DownloadFile(svc))
	api.Get("/stats", GetStats(svc))
}
