package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/services"
)

type CreateTenantRequest struct {
	ApartmentID string  `json:"apartment_id" validate:"required,uuid"`
	Name        string  `json:"name" validate:"required,min=2"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string  `json:"phone" validate:"required,min=9"`
	UnitNumber  string  `json:"unit_number" validate:"required"`
	RentAmount  float64 `json:"rent_amount" validate:"required,gt=0"`
	DueDay      int     `json:"due_day,omitempty" validate:"omitempty,min=1,max=28"`
	MoveInDate  *string `json:"move_in_date,omitempty"`
}

func CreateTenant(c *fiber.Ctx) error {
	var req CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	apartmentID, _ := uuid.Parse(req.ApartmentID)

	var apartment models.Apartment
	if err := database.DB.First(&apartment, "id = ?", apartmentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Apartment not found"})
	}

	dueDay := req.DueDay
	if dueDay == 0 {
		dueDay = 5
	}

	tenant := models.Tenant{
		ApartmentID: apartmentID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		UnitNumber:  req.UnitNumber,
		RentAmount:  req.RentAmount,
		DueDay:      dueDay,
	}
	if req.MoveInDate != nil {
		if moveIn, err := time.Parse("2006-01-02", *req.MoveInDate); err == nil {
			tenant.MoveInDate = &moveIn
		}
	}

	if err := database.DB.Create(&tenant).Error; err != nil {
		log.Printf("Failed to create tenant: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create tenant"})
	}

	// Open the current billing month right away so the tenant is payable.
	now := time.Now().UTC()
	if _, err := services.EnsureRentPeriod(&tenant, now.Year(), int(now.Month())); err != nil {
		log.Printf("Tenant %s created but period generation failed: %v", tenant.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tenant)
}

func ListTenants(c *fiber.Ctx) error {
	query := database.DB.Preload("Apartment").Order("name ASC")

	if apartmentID := c.Query("apartment_id"); apartmentID != "" {
		query = query.Where("apartment_id = ?", apartmentID)
	}

	var tenants []models.Tenant
	if err := query.Find(&tenants).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(tenants)
}

func GetTenant(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	var tenant models.Tenant
	if err := database.DB.Preload("Apartment").First(&tenant, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}

	var periods []models.RentPeriod
	if err := database.DB.Where("tenant_id = ?", id).Order("year DESC, month DESC").Limit(12).Find(&periods).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.JSON(fiber.Map{"tenant": tenant, "rent_periods": periods})
}

type UpdateTenantRequest struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Email      *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string  `json:"phone,omitempty" validate:"omitempty,min=9"`
	UnitNumber *string  `json:"unit_number,omitempty"`
	RentAmount *float64 `json:"rent_amount,omitempty" validate:"omitempty,gt=0"`
	DueDay     *int     `json:"due_day,omitempty" validate:"omitempty,min=1,max=28"`
}

func UpdateTenant(c *fiber.Ctx) error {
	id := c.Params("id")

	var tenant models.Tenant
	if err := database.DB.First(&tenant, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}

	var req UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.Email != nil {
		tenant.Email = req.Email
	}
	if req.Phone != nil {
		tenant.Phone = *req.Phone
	}
	if req.UnitNumber != nil {
		tenant.UnitNumber = *req.UnitNumber
	}
	if req.RentAmount != nil {
		tenant.RentAmount = *req.RentAmount
	}
	if req.DueDay != nil {
		tenant.DueDay = *req.DueDay
	}

	if err := database.DB.Save(&tenant).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update tenant"})
	}
	return c.JSON(tenant)
}

func DeleteTenant(c *fiber.Ctx) error {
	id := c.Params("id")

	var tenant models.Tenant
	if err := database.DB.First(&tenant, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}

	if err := database.DB.Delete(&tenant).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete tenant"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
