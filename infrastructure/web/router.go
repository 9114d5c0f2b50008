package web

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the conversion front end routes
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Post("/upload", h.Upload)
	app.Get("/upload_list", h.UploadList)
	app.Post("/start_processing", h.StartProcessing)
	app.Post("/settings", h.UpdateSettings)
	app.Get("/settings", h.GetSettings)
	app.Get("/processing_list", h.ProcessingList)
	app.Get("/processed_files", h.ProcessedFiles)
	app.Get("/failed_files", h.FailedFiles)
	app.Get("/events", h.Events)
	app.Get("/download/:filename", h.Download)
	app.Delete("/files/:filename", h.DeleteFile)
}

// NewApp creates a fiber app with the routes registered
func NewApp(h *Handler, maxUploadMB int) *fiber.App {
	if maxUploadMB <= 0 {
		maxUploadMB = 2048
	}
	app := fiber.New(fiber.Config{
		AppName:               "video2audio",
		BodyLimit:             maxUploadMB * 1024 * 1024,
		DisableStartupMessage: true,
		UnescapePath:          true,
	})
	RegisterRoutes(app, h)
	return app
}
