package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// MpesaTransaction records one STK push attempt, keyed by the provider's
// CheckoutRequestID. Status moves pending -> completed or pending -> failed
// exactly once; the conditional update in services.Reconcile enforces this.
type MpesaTransaction struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CheckoutRequestID string    `gorm:"size:100;not null;unique" json:"checkout_request_id"`
	MerchantRequestID *string   `gorm:"size:100" json:"merchant_request_id,omitempty"`

	TenantID     *uuid.UUID `gorm:"type:uuid" json:"tenant_id,omitempty"`
	RentPeriodID *uuid.UUID `gorm:"type:uuid" json:"rent_period_id,omitempty"`

	PhoneNumber      string  `gorm:"size:20;not null" json:"phone_number"`
	Amount           float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
	AccountReference string  `gorm:"size:50;not null" json:"account_reference"`
	TransactionDesc  string  `gorm:"size:255" json:"transaction_desc"`

	Status             string  `gorm:"size:20;not null;default:'pending'" json:"status"`
	ResultCode         *int    `json:"result_code,omitempty"`
	ResultDesc         *string `gorm:"size:255" json:"result_desc,omitempty"`
	MpesaReceiptNumber *string `gorm:"size:50" json:"mpesa_receipt_number,omitempty"`
	TransactionDate    *string `gorm:"size:20" json:"transaction_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved reports whether the transaction has reached a terminal state.
func (t *MpesaTransaction) Resolved() bool {
	return t.Status != TransactionStatusPending
}
