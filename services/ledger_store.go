package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
	"gorm.io/gorm"
)

// gormLedgerStore backs LedgerStore with the shared GORM connection.
type gormLedgerStore struct{}

// Ledger is the store handlers pass to ReconcileTransaction.
var Ledger LedgerStore = gormLedgerStore{}

func (gormLedgerStore) FindTransaction(checkoutRequestID string) (*models.MpesaTransaction, error) {
	var txn models.MpesaTransaction
	err := database.DB.Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (gormLedgerStore) ResolveTransaction(checkoutRequestID string, upd TerminalUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":      upd.Status,
		"result_code": upd.ResultCode,
		"result_desc": upd.ResultDesc,
	}
	if upd.MpesaReceiptNumber != nil {
		updates["mpesa_receipt_number"] = *upd.MpesaReceiptNumber
	}
	if upd.TransactionDate != nil {
		updates["transaction_date"] = *upd.TransactionDate
	}

	// The WHERE status = 'pending' guard makes the pending -> terminal flip a
	// compare-and-swap; zero rows affected means someone else already resolved it.
	result := database.DB.Model(&models.MpesaTransaction{}).
		Where("checkout_request_id = ? AND status = ?", checkoutRequestID, models.TransactionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormLedgerStore) FindRentPeriod(id uuid.UUID) (*models.RentPeriod, error) {
	var period models.RentPeriod
	err := database.DB.First(&period, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (gormLedgerStore) SavePayment(payment *models.RentPayment, period *models.RentPeriod) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Model(&models.RentPeriod{}).
			Where("id = ?", period.ID).
			Updates(map[string]interface{}{
				"amount_paid": period.AmountPaid,
				"balance":     period.Balance,
				"status":      period.Status,
			}).Error
	})
}
