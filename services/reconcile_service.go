package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyResolved     = errors.New("transaction already resolved")
)

// TerminalUpdate is the write that moves a pending transaction to its terminal
// state.
type TerminalUpdate struct {
	Status             string
	ResultCode         int
	ResultDesc         string
	MpesaReceiptNumber *string
	TransactionDate    *string
}

// LedgerStore is the narrow persistence surface the reconciler needs. The GORM
// implementation lives in ledger_store.go; tests substitute an in-memory one.
type LedgerStore interface {
	FindTransaction(checkoutRequestID string) (*models.MpesaTransaction, error)
	// ResolveTransaction applies upd only while the row is still pending and
	// reports whether this caller won the flip. This single conditional write
	// is what keeps a racing callback and status poll from both reconciling.
	ResolveTransaction(checkoutRequestID string, upd TerminalUpdate) (bool, error)
	FindRentPeriod(id uuid.UUID) (*models.RentPeriod, error)
	// SavePayment persists the payment and the credited period atomically.
	SavePayment(payment *models.RentPayment, period *models.RentPeriod) error
}

// CallbackItem is one Name/Value pair from the provider's CallbackMetadata list.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// CallbackMetadata holds the fields worth extracting from a successful callback.
type CallbackMetadata struct {
	ReceiptNumber   *string
	Amount          *float64
	PhoneNumber     *string
	TransactionDate *string
}

// ExtractCallbackMetadata pulls the known fields out of the metadata item list.
// Daraja sends Amount and dates as JSON numbers and the rest as strings, but
// none of that is contractual, so both forms are accepted for every field.
func ExtractCallbackMetadata(items []CallbackItem) CallbackMetadata {
	var meta CallbackMetadata
	for _, item := range items {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s := itemString(item.Value); s != "" {
				meta.ReceiptNumber = &s
			}
		case "Amount":
			if f, ok := itemNumber(item.Value); ok {
				meta.Amount = &f
			}
		case "PhoneNumber":
			if s := itemString(item.Value); s != "" {
				meta.PhoneNumber = &s
			}
		case "TransactionDate":
			if s := itemString(item.Value); s != "" {
				meta.TransactionDate = &s
			}
		}
	}
	return meta
}

func itemString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}

func itemNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

// ReconcileResult reports what a resolution attempt did.
type ReconcileResult struct {
	Transaction *models.MpesaTransaction
	Payment     *models.RentPayment
	Status      string
}

// ReconcileTransaction applies a terminal provider result to the transaction
// store and, on success, to the rent ledger. It is the sole writer for both;
// the callback handler and the query endpoint funnel through here.
//
// Duplicate deliveries return ErrAlreadyResolved without touching anything.
func ReconcileTransaction(store LedgerStore, checkoutRequestID string, resultCode int, resultDesc string, meta CallbackMetadata, now time.Time) (*ReconcileResult, error) {
	txn, err := store.FindTransaction(checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ErrTransactionNotFound
	}
	if txn.Resolved() {
		return nil, ErrAlreadyResolved
	}

	status := models.TransactionStatusFailed
	if resultCode == 0 {
		status = models.TransactionStatusCompleted
	}

	upd := TerminalUpdate{
		Status:             status,
		ResultCode:         resultCode,
		ResultDesc:         resultDesc,
		MpesaReceiptNumber: meta.ReceiptNumber,
		TransactionDate:    meta.TransactionDate,
	}

	won, err := store.ResolveTransaction(checkoutRequestID, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transaction %s: %w", checkoutRequestID, err)
	}
	if !won {
		// The other party (callback vs. poll) got there first.
		return nil, ErrAlreadyResolved
	}

	txn.Status = status
	txn.ResultCode = &resultCode
	txn.ResultDesc = &resultDesc
	txn.MpesaReceiptNumber = meta.ReceiptNumber
	txn.TransactionDate = meta.TransactionDate

	result := &ReconcileResult{Transaction: txn, Status: status}

	if status != models.TransactionStatusCompleted || txn.RentPeriodID == nil {
		return result, nil
	}

	period, err := store.FindRentPeriod(*txn.RentPeriodID)
	if err != nil {
		// The transaction is terminal but the ledger was not credited. This
		// needs manual follow-up; the provider has already been acknowledged.
		log.Printf("🔥 CRITICAL: reconciled %s but rent period lookup failed: %v", checkoutRequestID, err)
		return result, fmt.Errorf("rent period lookup failed for %s: %w", checkoutRequestID, err)
	}
	if period == nil {
		log.Printf("🔥 CRITICAL: reconciled %s but rent period %s no longer exists", checkoutRequestID, txn.RentPeriodID)
		return result, fmt.Errorf("rent period %s not found for %s", txn.RentPeriodID, checkoutRequestID)
	}

	// The provider's actual charged amount wins over the requested one.
	amount := txn.Amount
	if meta.Amount != nil {
		amount = *meta.Amount
	}

	phone := txn.PhoneNumber
	if meta.PhoneNumber != nil {
		phone = *meta.PhoneNumber
	}

	verifiedAt := now
	notes := fmt.Sprintf("M-Pesa payment - %s", resultDesc)
	payment := &models.RentPayment{
		RentPeriodID:  period.ID,
		TenantID:      period.TenantID,
		Amount:        amount,
		Method:        models.PaymentMethodMpesa,
		TransactionID: &txn.CheckoutRequestID,
		MpesaReceipt:  meta.ReceiptNumber,
		PhoneNumber:   &phone,
		Verified:      true,
		VerifiedAt:    &verifiedAt,
		Notes:         &notes,
		PaymentDate:   now,
	}

	ApplyPaymentToPeriod(period, amount, now)

	if err := store.SavePayment(payment, period); err != nil {
		log.Printf("🔥 CRITICAL: failed to record payment for %s: %v", checkoutRequestID, err)
		return result, fmt.Errorf("failed to record payment for %s: %w", checkoutRequestID, err)
	}

	result.Payment = payment
	return result, nil
}
