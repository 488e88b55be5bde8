package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/services"
)

// callbackLedger is an in-memory services.LedgerStore for handler tests.
type callbackLedger struct {
	transactions map[string]*models.MpesaTransaction
}

func (l *callbackLedger) FindTransaction(id string) (*models.MpesaTransaction, error) {
	txn, ok := l.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (l *callbackLedger) ResolveTransaction(id string, upd services.TerminalUpdate) (bool, error) {
	txn, ok := l.transactions[id]
	if !ok || txn.Status != models.TransactionStatusPending {
		return false, nil
	}
	txn.Status = upd.Status
	return true, nil
}

func (l *callbackLedger) FindRentPeriod(id uuid.UUID) (*models.RentPeriod, error) {
	return nil, nil
}

func (l *callbackLedger) SavePayment(payment *models.RentPayment, period *models.RentPeriod) error {
	return nil
}

func withCallbackLedger(t *testing.T, ledger services.LedgerStore) {
	t.Helper()
	previous := services.Ledger
	services.Ledger = ledger
	t.Cleanup(func() { services.Ledger = previous })
}

func postCallback(t *testing.T, app *fiber.App, body []byte) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func assertProviderAck(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, "Accepted", ack.ResultDesc)
}

func callbackBody(checkoutRequestID string, resultCode int) []byte {
	body, _ := json.Marshal(fiber.Map{
		"Body": fiber.Map{
			"stkCallback": fiber.Map{
				"MerchantRequestID": "mr-1",
				"CheckoutRequestID": checkoutRequestID,
				"ResultCode":        resultCode,
				"ResultDesc":        "desc",
			},
		},
	})
	return body
}

// The provider must always get a success acknowledgment back, whatever happens
// internally; anything else makes it retry a delivery whose business effect
// must not repeat.
func TestHandleMpesaCallbackAlwaysAcks(t *testing.T) {
	app := fiber.New()
	app.Post("/api/v1/payments/mpesa/callback", HandleMpesaCallback)

	t.Run("malformed body", func(t *testing.T) {
		withCallbackLedger(t, &callbackLedger{transactions: map[string]*models.MpesaTransaction{}})
		resp := postCallback(t, app, []byte(`{not json`))
		assertProviderAck(t, resp)
	})

	t.Run("missing stkCallback envelope", func(t *testing.T) {
		withCallbackLedger(t, &callbackLedger{transactions: map[string]*models.MpesaTransaction{}})
		resp := postCallback(t, app, []byte(`{"Body":{}}`))
		assertProviderAck(t, resp)
	})

	t.Run("unknown checkout request id", func(t *testing.T) {
		withCallbackLedger(t, &callbackLedger{transactions: map[string]*models.MpesaTransaction{}})
		resp := postCallback(t, app, callbackBody("ws_CO_unknown", 0))
		assertProviderAck(t, resp)
	})

	t.Run("duplicate delivery", func(t *testing.T) {
		ledger := &callbackLedger{transactions: map[string]*models.MpesaTransaction{
			"ws_CO_dup": {
				CheckoutRequestID: "ws_CO_dup",
				PhoneNumber:       "254712345678",
				Amount:            1500,
				Status:            models.TransactionStatusCompleted,
			},
		}}
		withCallbackLedger(t, ledger)
		resp := postCallback(t, app, callbackBody("ws_CO_dup", 0))
		assertProviderAck(t, resp)
	})

	t.Run("pending transaction resolves and acks", func(t *testing.T) {
		ledger := &callbackLedger{transactions: map[string]*models.MpesaTransaction{
			"ws_CO_ok": {
				CheckoutRequestID: "ws_CO_ok",
				PhoneNumber:       "254712345678",
				Amount:            1500,
				Status:            models.TransactionStatusPending,
			},
		}}
		withCallbackLedger(t, ledger)
		resp := postCallback(t, app, callbackBody("ws_CO_ok", 1032))
		assertProviderAck(t, resp)
		assert.Equal(t, models.TransactionStatusFailed, ledger.transactions["ws_CO_ok"].Status)
	})
}
