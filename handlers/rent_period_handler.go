package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/middleware"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/services"
)

// ListRentPeriods is the admin view, filterable by tenant, month, year and status.
func ListRentPeriods(c *fiber.Ctx) error {
	query := database.DB.Preload("Tenant").Order("year DESC, month DESC")

	if tenantID := c.Query("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if month := c.QueryInt("month", 0); month >= 1 && month <= 12 {
		query = query.Where("month = ?", month)
	}
	if year := c.QueryInt("year", 0); year > 0 {
		query = query.Where("year = ?", year)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var periods []models.RentPeriod
	if err := query.Limit(200).Find(&periods).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(periods)
}

type CreateRentPeriodRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
	Month    int    `json:"month" validate:"required,min=1,max=12"`
	Year     int    `json:"year" validate:"required,min=2020"`
}

// CreateRentPeriod opens a specific billing month for a tenant. Idempotent:
// an existing (tenant, month, year) period is returned unchanged.
func CreateRentPeriod(c *fiber.Ctx) error {
	var req CreateRentPeriodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	tenantID, _ := uuid.Parse(req.TenantID)

	var tenant models.Tenant
	if err := database.DB.First(&tenant, "id = ?", tenantID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}

	period, err := services.EnsureRentPeriod(&tenant, req.Year, req.Month)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create rent period"})
	}
	return c.Status(fiber.StatusCreated).JSON(period)
}

// MyRentData is the tenant self-service view: own periods and payments only.
func MyRentData(c *fiber.Ctx) error {
	tenantID, ok := middleware.ClaimTenantID(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Account is not linked to a tenant"})
	}

	var tenant models.Tenant
	if err := database.DB.Preload("Apartment").First(&tenant, "id = ?", tenantID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant record not found"})
	}

	var periods []models.RentPeriod
	if err := database.DB.Where("tenant_id = ?", tenantID).Order("year DESC, month DESC").Limit(24).Find(&periods).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	var paymentList []models.RentPayment
	if err := database.DB.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(50).Find(&paymentList).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.JSON(fiber.Map{
		"tenant":       tenant,
		"rent_periods": periods,
		"payments":     paymentList,
	})
}
