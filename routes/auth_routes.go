package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/handlers"
	"github.com/wirelesstrade/rent_portal/middleware"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", handlers.LoginUser)

	accounts := api.Group("/tenant-accounts", middleware.Protected(), middleware.AdminRequired())
	accounts.Post("", handlers.CreateTenantAccount)
}
