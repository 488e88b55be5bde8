package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodMpesa        = "mpesa"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// RentPayment is an append-only record of a funds movement. Only the
// verification fields may change after creation.
type RentPayment struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RentPeriodID uuid.UUID `gorm:"type:uuid;not null" json:"rent_period_id"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null" json:"tenant_id"`

	Amount float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method string  `gorm:"size:20;not null" json:"method"`

	// TransactionID carries the provider correlation id for M-Pesa payments.
	TransactionID *string `gorm:"size:255;unique" json:"transaction_id,omitempty"`
	MpesaReceipt  *string `gorm:"size:50" json:"mpesa_receipt,omitempty"`
	PhoneNumber   *string `gorm:"size:20" json:"phone_number,omitempty"`
	ReceiptURL    *string `gorm:"size:512" json:"receipt_url,omitempty"`

	Verified   bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Notes      *string    `gorm:"type:text" json:"notes,omitempty"`

	PaymentDate time.Time `gorm:"not null" json:"payment_date"`

	RentPeriod RentPeriod `gorm:"foreignkey:RentPeriodID" json:"rent_period,omitempty"`
	Tenant     Tenant     `gorm:"foreignkey:TenantID" json:"tenant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
