package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/notifications"
	"github.com/wirelesstrade/rent_portal/services"
)

// SendRentReminders notifies tenants whose rent falls due in three days.
func SendRentReminders() {
	log.Println("Running job: SendRentReminders...")

	now := time.Now()
	windowStart := now.AddDate(0, 0, 3).Truncate(24 * time.Hour)
	windowEnd := windowStart.Add(24 * time.Hour)

	var duePeriods []models.RentPeriod
	err := database.DB.
		Preload("Tenant").
		Where("status IN ? AND due_date >= ? AND due_date < ?",
			[]string{models.RentStatusUnpaid, models.RentStatusPartial}, windowStart, windowEnd).
		Find(&duePeriods).Error
	if err != nil {
		log.Printf("Error checking for upcoming rent due dates: %v", err)
		return
	}

	for _, period := range duePeriods {
		message := fmt.Sprintf(
			"Hi %s, your rent of %s for unit %s is due on %s. Pay via M-Pesa from your portal to settle on time.",
			period.Tenant.Name,
			services.FormatKES(period.Balance),
			period.Tenant.UnitNumber,
			period.DueDate.Format("2 Jan 2006"),
		)
		sendTenantNotice(period.Tenant, "Rent Due Reminder", message)
	}

	if len(duePeriods) > 0 {
		log.Printf("✅ Sent %d rent reminders", len(duePeriods))
	}
}

// SendOverdueAlerts notifies tenants whose periods have slipped past due.
func SendOverdueAlerts() {
	log.Println("Running job: SendOverdueAlerts...")

	services.SweepOverduePeriods()

	var overduePeriods []models.RentPeriod
	err := database.DB.
		Preload("Tenant").
		Where("status = ?", models.RentStatusOverdue).
		Find(&overduePeriods).Error
	if err != nil {
		log.Printf("Error fetching overdue periods: %v", err)
		return
	}

	for _, period := range overduePeriods {
		message := fmt.Sprintf(
			"Hi %s, your rent for %d/%d is overdue. Outstanding balance: %s. Please pay via M-Pesa as soon as possible.",
			period.Tenant.Name, period.Month, period.Year,
			services.FormatKES(period.Balance),
		)
		sendTenantNotice(period.Tenant, "Rent Overdue", message)
	}
}

// GenerateRentPeriods opens the current month's billing period for every
// tenant that does not have one yet. Safe to run repeatedly.
func GenerateRentPeriods() {
	log.Println("Running job: GenerateRentPeriods...")
	services.GenerateMonthlyPeriods()
}

func sendTenantNotice(tenant models.Tenant, subject, message string) {
	requests := []notifications.DispatchRequest{
		{Type: "sms", To: tenant.Phone, Subject: subject, Message: message, ToName: tenant.Name},
	}
	if tenant.Email != nil && *tenant.Email != "" {
		requests = append(requests, notifications.DispatchRequest{
			Type:        "email",
			To:          *tenant.Email,
			Subject:     subject,
			Message:     message,
			HTMLContent: fmt.Sprintf("<p>%s</p>", message),
			ToName:      tenant.Name,
		})
	}
	go func() {
		for _, req := range requests {
			for channel, result := range notifications.Dispatch(req) {
				if !result.Success {
					log.Printf("⚠️ Reminder via %s failed for tenant %s: %s", channel, tenant.ID, result.Error)
				}
			}
		}
	}()
}
