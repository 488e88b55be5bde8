package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/handlers"
	"github.com/wirelesstrade/rent_portal/middleware"
)

func UploadRoutes(app *fiber.App) {
	api := app.Group("/api/v1", middleware.Protected())

	uploads := api.Group("/uploads")
	uploads.Get("/signature", middleware.AdminRequired(), handlers.GenerateUploadSignature)
}
