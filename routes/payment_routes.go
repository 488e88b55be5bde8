package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/handlers"
	"github.com/wirelesstrade/rent_portal/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Daraja posts here; no auth, the handler validates against stored transactions.
	api.Post("/payments/mpesa/callback", handlers.HandleMpesaCallback)

	mpesa := api.Group("/payments/mpesa", middleware.Protected())
	mpesa.Post("/initiate", handlers.InitiateMpesaPayment)
	mpesa.Post("/query", handlers.QueryMpesaStatus)
	mpesa.Post("/poll", handlers.PollMpesaStatus)

	payments := api.Group("/payments", middleware.Protected())
	payments.Get("", handlers.ListPayments)
	payments.Post("/manual", middleware.AdminRequired(), handlers.RecordManualPayment)
}
