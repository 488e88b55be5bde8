package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
)

// DashboardSummary aggregates the landlord's month at a glance.
func DashboardSummary(c *fiber.Ctx) error {
	now := time.Now().UTC()

	var tenantCount, apartmentCount int64
	database.DB.Model(&models.Tenant{}).Count(&tenantCount)
	database.DB.Model(&models.Apartment{}).Count(&apartmentCount)

	var expected, collected float64
	row := database.DB.Model(&models.RentPeriod{}).
		Select("COALESCE(SUM(rent_amount), 0), COALESCE(SUM(amount_paid), 0)").
		Where("year = ? AND month = ?", now.Year(), int(now.Month())).
		Row()
	if err := row.Scan(&expected, &collected); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	var overdueCount int64
	database.DB.Model(&models.RentPeriod{}).
		Where("status = ?", models.RentStatusOverdue).
		Count(&overdueCount)

	var pendingTransactions int64
	database.DB.Model(&models.MpesaTransaction{}).
		Where("status = ?", models.TransactionStatusPending).
		Count(&pendingTransactions)

	var recentPayments []models.RentPayment
	database.DB.Preload("Tenant").Order("created_at DESC").Limit(10).Find(&recentPayments)

	outstanding := expected - collected
	if outstanding < 0 {
		outstanding = 0
	}

	return c.JSON(fiber.Map{
		"month":                int(now.Month()),
		"year":                 now.Year(),
		"tenants":              tenantCount,
		"apartments":           apartmentCount,
		"expected_rent":        expected,
		"collected_rent":       collected,
		"outstanding_rent":     outstanding,
		"overdue_periods":      overdueCount,
		"pending_transactions": pendingTransactions,
		"recent_payments":      recentPayments,
	})
}
