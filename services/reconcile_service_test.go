package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirelesstrade/rent_portal/models"
)

// memoryLedger backs reconciliation tests without a database. ResolveTransaction
// mirrors the conditional update the GORM store issues.
type memoryLedger struct {
	transactions map[string]*models.MpesaTransaction
	periods      map[uuid.UUID]*models.RentPeriod
	payments     []*models.RentPayment
	saveErr      error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		transactions: make(map[string]*models.MpesaTransaction),
		periods:      make(map[uuid.UUID]*models.RentPeriod),
	}
}

func (m *memoryLedger) FindTransaction(id string) (*models.MpesaTransaction, error) {
	txn, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (m *memoryLedger) ResolveTransaction(id string, upd TerminalUpdate) (bool, error) {
	txn, ok := m.transactions[id]
	if !ok || txn.Status != models.TransactionStatusPending {
		return false, nil
	}
	txn.Status = upd.Status
	txn.ResultCode = &upd.ResultCode
	txn.ResultDesc = &upd.ResultDesc
	txn.MpesaReceiptNumber = upd.MpesaReceiptNumber
	txn.TransactionDate = upd.TransactionDate
	return true, nil
}

func (m *memoryLedger) FindRentPeriod(id uuid.UUID) (*models.RentPeriod, error) {
	period, ok := m.periods[id]
	if !ok {
		return nil, nil
	}
	copied := *period
	return &copied, nil
}

func (m *memoryLedger) SavePayment(payment *models.RentPayment, period *models.RentPeriod) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.payments = append(m.payments, payment)
	m.periods[period.ID] = period
	return nil
}

func seedPendingTransaction(ledger *memoryLedger, amount float64) (*models.MpesaTransaction, *models.RentPeriod) {
	tenantID := uuid.New()
	period := &models.RentPeriod{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Month:      3,
		Year:       2025,
		RentAmount: amount,
		Balance:    amount,
		Status:     models.RentStatusUnpaid,
		DueDate:    time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	txn := &models.MpesaTransaction{
		ID:                uuid.New(),
		CheckoutRequestID: "ws_CO_" + uuid.NewString()[:8],
		TenantID:          &tenantID,
		RentPeriodID:      &period.ID,
		PhoneNumber:       "254712345678",
		Amount:            amount,
		Status:            models.TransactionStatusPending,
	}
	ledger.transactions[txn.CheckoutRequestID] = txn
	ledger.periods[period.ID] = period
	return txn, period
}

func TestReconcileTransactionSuccess(t *testing.T) {
	ledger := newMemoryLedger()
	txn, period := seedPendingTransaction(ledger, 15000)

	receipt := "SBK1234XYZ"
	amount := 15000.0
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "The service request is processed successfully.", CallbackMetadata{
		ReceiptNumber: &receipt,
		Amount:        &amount,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 15000.0, result.Payment.Amount)
	assert.Equal(t, models.PaymentMethodMpesa, result.Payment.Method)
	assert.True(t, result.Payment.Verified)
	require.NotNil(t, result.Payment.MpesaReceipt)
	assert.Equal(t, receipt, *result.Payment.MpesaReceipt)

	stored := ledger.periods[period.ID]
	assert.Equal(t, models.RentStatusPaid, stored.Status)
	assert.Equal(t, 15000.0, stored.AmountPaid)
	assert.Equal(t, 0.0, stored.Balance)
	require.Len(t, ledger.payments, 1)
}

func TestReconcileTransactionFailure(t *testing.T) {
	ledger := newMemoryLedger()
	txn, period := seedPendingTransaction(ledger, 15000)

	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 1032, "Request cancelled by user", CallbackMetadata{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusFailed, result.Status)
	assert.Nil(t, result.Payment)
	assert.Empty(t, ledger.payments)

	// Ledger untouched on failure.
	stored := ledger.periods[period.ID]
	assert.Equal(t, models.RentStatusUnpaid, stored.Status)
	assert.Equal(t, 0.0, stored.AmountPaid)
}

func TestReconcileTransactionDuplicateCallback(t *testing.T) {
	ledger := newMemoryLedger()
	txn, _ := seedPendingTransaction(ledger, 15000)

	receipt := "SBK1234XYZ"
	meta := CallbackMetadata{ReceiptNumber: &receipt}

	_, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", meta, time.Now())
	require.NoError(t, err)

	_, err = ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", meta, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// Exactly one payment despite the duplicate delivery.
	assert.Len(t, ledger.payments, 1)
}

func TestReconcileTransactionUnknownCheckoutID(t *testing.T) {
	ledger := newMemoryLedger()
	_, err := ReconcileTransaction(ledger, "ws_CO_unknown", 0, "ok", CallbackMetadata{}, time.Now())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReconcileTransactionAmountFallback(t *testing.T) {
	ledger := newMemoryLedger()
	txn, _ := seedPendingTransaction(ledger, 15000)

	// No Amount in the callback metadata: the requested amount is credited.
	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", CallbackMetadata{}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 15000.0, result.Payment.Amount)
}

func TestReconcileTransactionCallbackAmountWins(t *testing.T) {
	ledger := newMemoryLedger()
	txn, period := seedPendingTransaction(ledger, 15000)

	actual := 7000.0
	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", CallbackMetadata{Amount: &actual}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 7000.0, result.Payment.Amount)

	stored := ledger.periods[period.ID]
	assert.Equal(t, models.RentStatusPartial, stored.Status)
	assert.Equal(t, 8000.0, stored.Balance)
}

func TestReconcileTransactionLostRace(t *testing.T) {
	ledger := newMemoryLedger()
	txn, _ := seedPendingTransaction(ledger, 15000)

	// Another writer flips the row between FindTransaction and ResolveTransaction.
	ledger.transactions[txn.CheckoutRequestID].Status = models.TransactionStatusCompleted

	_, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", CallbackMetadata{}, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Empty(t, ledger.payments)
}

func TestReconcileTransactionMissingRentPeriod(t *testing.T) {
	ledger := newMemoryLedger()
	txn, period := seedPendingTransaction(ledger, 15000)
	delete(ledger.periods, period.ID)

	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", CallbackMetadata{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NotContains(t, err.Error(), "%!w")

	// The transaction is terminal even though the period is gone.
	require.NotNil(t, result)
	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	assert.Nil(t, result.Payment)
	assert.Empty(t, ledger.payments)
}

func TestReconcileTransactionSavePaymentError(t *testing.T) {
	ledger := newMemoryLedger()
	txn, _ := seedPendingTransaction(ledger, 15000)
	ledger.saveErr = assert.AnError

	result, err := ReconcileTransaction(ledger, txn.CheckoutRequestID, 0, "ok", CallbackMetadata{}, time.Now())
	require.Error(t, err)

	// The transaction is terminal even though the ledger write failed.
	require.NotNil(t, result)
	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	assert.Equal(t, models.TransactionStatusCompleted, ledger.transactions[txn.CheckoutRequestID].Status)
}

func TestExtractCallbackMetadata(t *testing.T) {
	items := []CallbackItem{
		{Name: "Amount", Value: 15000.0},
		{Name: "MpesaReceiptNumber", Value: "SBK1234XYZ"},
		{Name: "TransactionDate", Value: 20250302100500.0},
		{Name: "PhoneNumber", Value: 254712345678.0},
		{Name: "Balance", Value: nil},
	}

	meta := ExtractCallbackMetadata(items)
	require.NotNil(t, meta.Amount)
	assert.Equal(t, 15000.0, *meta.Amount)
	require.NotNil(t, meta.ReceiptNumber)
	assert.Equal(t, "SBK1234XYZ", *meta.ReceiptNumber)
	require.NotNil(t, meta.TransactionDate)
	assert.Equal(t, "20250302100500", *meta.TransactionDate)
	require.NotNil(t, meta.PhoneNumber)
	assert.Equal(t, "254712345678", *meta.PhoneNumber)
}

func TestExtractCallbackMetadataEmpty(t *testing.T) {
	meta := ExtractCallbackMetadata(nil)
	assert.Nil(t, meta.Amount)
	assert.Nil(t, meta.ReceiptNumber)
	assert.Nil(t, meta.PhoneNumber)
	assert.Nil(t, meta.TransactionDate)
}
