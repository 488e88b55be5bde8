package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/handlers"
	"github.com/wirelesstrade/rent_portal/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Get("/dashboard-summary", handlers.DashboardSummary)
	admin.Post("/notifications/send", handlers.SendNotification)

	apartments := admin.Group("/apartments")
	apartments.Post("", handlers.CreateApartment)
	apartments.Get("", handlers.ListApartments)
	apartments.Get("/:id", handlers.GetApartment)
	apartments.Put("/:id", handlers.UpdateApartment)
	apartments.Delete("/:id", handlers.DeleteApartment)

	tenants := admin.Group("/tenants")
	tenants.Post("", handlers.CreateTenant)
	tenants.Get("", handlers.ListTenants)
	tenants.Get("/:id", handlers.GetTenant)
	tenants.Put("/:id", handlers.UpdateTenant)
	tenants.Delete("/:id", handlers.DeleteTenant)
	tenants.Get("/:id/documents", handlers.ListLeaseDocuments)

	periods := admin.Group("/rent-periods")
	periods.Get("", handlers.ListRentPeriods)
	periods.Post("", handlers.CreateRentPeriod)

	admin.Post("/documents", handlers.SaveLeaseDocument)
}
