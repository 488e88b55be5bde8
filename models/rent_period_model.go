package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RentStatusUnpaid  = "unpaid"
	RentStatusPartial = "partial"
	RentStatusPaid    = "paid"
	RentStatusOverdue = "overdue"
)

// RentPeriod is one billing month for one tenant. AmountPaid and Status are
// mutated only by recording a RentPayment against the period.
type RentPeriod struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rent_periods_tenant_month" json:"tenant_id"`
	Month    int       `gorm:"not null;uniqueIndex:idx_rent_periods_tenant_month" json:"month"`
	Year     int       `gorm:"not null;uniqueIndex:idx_rent_periods_tenant_month" json:"year"`

	RentAmount float64   `gorm:"type:numeric(12,2);not null" json:"rent_amount"`
	AmountPaid float64   `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	Balance    float64   `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	Status     string    `gorm:"size:20;not null;default:'unpaid'" json:"status"`
	DueDate    time.Time `gorm:"not null" json:"due_date"`

	PaymentReference *string `gorm:"size:30;unique" json:"payment_reference,omitempty"`

	Tenant Tenant `gorm:"foreignkey:TenantID" json:"tenant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
