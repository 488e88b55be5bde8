package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/handlers"
	"github.com/wirelesstrade/rent_portal/middleware"
)

func PortalRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	portal := api.Group("/portal", middleware.Protected())
	portal.Get("/my-rent", handlers.MyRentData)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServePaymentFeed))
}
