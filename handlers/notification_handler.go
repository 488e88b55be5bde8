package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/notifications"
)

type SendNotificationRequest struct {
	Type        string `json:"type" validate:"required,oneof=sms whatsapp email all"`
	To          string `json:"to" validate:"required"`
	Subject     string `json:"subject,omitempty"`
	Message     string `json:"message" validate:"required"`
	HTMLContent string `json:"html_content,omitempty"`
	ToName      string `json:"to_name,omitempty"`
}

// SendNotification fans a message out to the requested channels and reports
// the per-channel outcome. A failed channel never fails the request.
func SendNotification(c *fiber.Ctx) error {
	var req SendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	results := notifications.Dispatch(notifications.DispatchRequest{
		Type:        req.Type,
		To:          req.To,
		Subject:     req.Subject,
		Message:     req.Message,
		HTMLContent: req.HTMLContent,
		ToName:      req.ToName,
	})

	return c.JSON(fiber.Map{"results": results})
}
