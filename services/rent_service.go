package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/utils"
	"gorm.io/gorm"
)

// ComputeRentStatus derives a period's status from its figures. Paid wins over
// overdue; an unpaid or partial period past its due date is overdue.
func ComputeRentStatus(amountPaid, rentAmount float64, dueDate, now time.Time) string {
	if amountPaid >= rentAmount {
		return models.RentStatusPaid
	}
	if now.After(dueDate) {
		return models.RentStatusOverdue
	}
	if amountPaid > 0 {
		return models.RentStatusPartial
	}
	return models.RentStatusUnpaid
}

// ApplyPaymentToPeriod credits amount to the period and recomputes the derived
// balance and status. Overpayment is accepted as-is; the balance floors at zero.
func ApplyPaymentToPeriod(period *models.RentPeriod, amount float64, now time.Time) {
	period.AmountPaid += amount
	period.Balance = period.RentAmount - period.AmountPaid
	if period.Balance < 0 {
		period.Balance = 0
	}
	period.Status = ComputeRentStatus(period.AmountPaid, period.RentAmount, period.DueDate, now)
}

// PeriodDueDate places the due date on the tenant's due day within the billing month.
func PeriodDueDate(year, month, dueDay int) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	firstOfNext := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 0, -1).Day()
	if dueDay > lastDay {
		dueDay = lastDay
	}
	return time.Date(year, time.Month(month), dueDay, 0, 0, 0, 0, time.UTC)
}

// EnsureRentPeriod creates the (tenant, month, year) period if it does not
// exist yet and returns it either way.
func EnsureRentPeriod(tenant *models.Tenant, year, month int) (*models.RentPeriod, error) {
	var period models.RentPeriod
	err := database.DB.
		Where("tenant_id = ? AND year = ? AND month = ?", tenant.ID, year, month).
		First(&period).Error
	if err == nil {
		return &period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		reference, refErr := utils.GeneratePaymentReference(tx)
		if refErr != nil {
			return refErr
		}
		period = models.RentPeriod{
			TenantID:         tenant.ID,
			Month:            month,
			Year:             year,
			RentAmount:       tenant.RentAmount,
			Balance:          tenant.RentAmount,
			Status:           models.RentStatusUnpaid,
			DueDate:          PeriodDueDate(year, month, tenant.DueDay),
			PaymentReference: &reference,
		}
		return tx.Create(&period).Error
	})
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// GenerateMonthlyPeriods opens the current month's period for every tenant.
// Called from cron at the start of the month and at boot.
func GenerateMonthlyPeriods() {
	now := time.Now().UTC()

	var tenants []models.Tenant
	if err := database.DB.Find(&tenants).Error; err != nil {
		log.Printf("Error loading tenants for period generation: %v", err)
		return
	}

	created := 0
	for i := range tenants {
		var count int64
		err := database.DB.Model(&models.RentPeriod{}).
			Where("tenant_id = ? AND year = ? AND month = ?", tenants[i].ID, now.Year(), int(now.Month())).
			Count(&count).Error
		if err != nil {
			log.Printf("Error checking period for tenant %s: %v", tenants[i].ID, err)
			continue
		}
		if count > 0 {
			continue
		}
		if _, err := EnsureRentPeriod(&tenants[i], now.Year(), int(now.Month())); err != nil {
			log.Printf("Error creating period for tenant %s: %v", tenants[i].ID, err)
			continue
		}
		created++
	}

	if created > 0 {
		log.Printf("✅ Generated %d rent periods for %d/%d", created, int(now.Month()), now.Year())
	}
}

// SweepOverduePeriods flips unpaid and partial periods past their due date to
// overdue. Status is otherwise only recomputed when a payment lands.
func SweepOverduePeriods() {
	result := database.DB.Model(&models.RentPeriod{}).
		Where("status IN ? AND due_date < ?", []string{models.RentStatusUnpaid, models.RentStatusPartial}, time.Now().UTC()).
		Update("status", models.RentStatusOverdue)
	if result.Error != nil {
		log.Printf("Error sweeping overdue periods: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Marked %d rent periods overdue", result.RowsAffected)
	}
}

// FormatKES renders an amount the way tenant messages show money.
func FormatKES(amount float64) string {
	return fmt.Sprintf("KES %.0f", amount)
}
