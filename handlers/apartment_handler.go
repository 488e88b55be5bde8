package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
)

type CreateApartmentRequest struct {
	Name       string `json:"name" validate:"required,min=2"`
	Address    string `json:"address" validate:"required"`
	TotalUnits int    `json:"total_units" validate:"required,min=1"`
}

func CreateApartment(c *fiber.Ctx) error {
	var req CreateApartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	apartment := models.Apartment{
		Name:       req.Name,
		Address:    req.Address,
		TotalUnits: req.TotalUnits,
	}
	if err := database.DB.Create(&apartment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create apartment"})
	}
	return c.Status(fiber.StatusCreated).JSON(apartment)
}

type apartmentSummary struct {
	models.Apartment
	OccupiedUnits    int64   `json:"occupied_units"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
	CollectedRevenue float64 `json:"collected_revenue"`
}

// ListApartments returns every apartment with occupancy and current-month
// revenue figures derived from the ledger, never from a client-side cache.
func ListApartments(c *fiber.Ctx) error {
	var apartments []models.Apartment
	if err := database.DB.Order("name ASC").Find(&apartments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	now := time.Now().UTC()
	summaries := make([]apartmentSummary, 0, len(apartments))
	for _, apartment := range apartments {
		var occupied int64
		database.DB.Model(&models.Tenant{}).Where("apartment_id = ?", apartment.ID).Count(&occupied)

		var expected, collected float64
		row := database.DB.Model(&models.RentPeriod{}).
			Select("COALESCE(SUM(rent_periods.rent_amount), 0), COALESCE(SUM(rent_periods.amount_paid), 0)").
			Joins("JOIN tenants ON tenants.id = rent_periods.tenant_id").
			Where("tenants.apartment_id = ? AND rent_periods.year = ? AND rent_periods.month = ?", apartment.ID, now.Year(), int(now.Month())).
			Row()
		if err := row.Scan(&expected, &collected); err != nil {
			expected, collected = 0, 0
		}

		summaries = append(summaries, apartmentSummary{
			Apartment:        apartment,
			OccupiedUnits:    occupied,
			MonthlyRevenue:   expected,
			CollectedRevenue: collected,
		})
	}

	return c.JSON(summaries)
}

func GetApartment(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid apartment ID"})
	}

	var apartment models.Apartment
	if err := database.DB.Preload("Tenants").First(&apartment, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Apartment not found"})
	}
	return c.JSON(apartment)
}

type UpdateApartmentRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Address    *string `json:"address,omitempty"`
	TotalUnits *int    `json:"total_units,omitempty" validate:"omitempty,min=1"`
}

func UpdateApartment(c *fiber.Ctx) error {
	id := c.Params("id")

	var apartment models.Apartment
	if err := database.DB.First(&apartment, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Apartment not found"})
	}

	var req UpdateApartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Name != nil {
		apartment.Name = *req.Name
	}
	if req.Address != nil {
		apartment.Address = *req.Address
	}
	if req.TotalUnits != nil {
		apartment.TotalUnits = *req.TotalUnits
	}

	if err := database.DB.Save(&apartment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update apartment"})
	}
	return c.JSON(apartment)
}

func DeleteApartment(c *fiber.Ctx) error {
	id := c.Params("id")

	var count int64
	database.DB.Model(&models.Tenant{}).Where("apartment_id = ?", id).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Apartment still has tenants"})
	}

	result := database.DB.Delete(&models.Apartment{}, "id = ?", id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete apartment"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Apartment not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
