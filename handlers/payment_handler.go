package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/middleware"
	"github.com/wirelesstrade/rent_portal/models"
	"github.com/wirelesstrade/rent_portal/notifications"
	"github.com/wirelesstrade/rent_portal/payments"
	"github.com/wirelesstrade/rent_portal/services"
	ws "github.com/wirelesstrade/rent_portal/websocket"
)

type InitiatePaymentRequest struct {
	PhoneNumber      string  `json:"phone_number" validate:"required"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	AccountReference string  `json:"account_reference" validate:"required,max=50"`
	TransactionDesc  string  `json:"transaction_desc,omitempty"`
	RentPeriodID     *string `json:"rent_period_id,omitempty"`
	TenantID         *string `json:"tenant_id,omitempty"`
}

// InitiateMpesaPayment sends the STK push and, only once the provider accepts
// it, persists a pending transaction keyed by the returned CheckoutRequestID.
func InitiateMpesaPayment(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	var tenantID *uuid.UUID
	if middleware.ClaimRole(c) == "tenant" {
		// Tenants can only pay for themselves, whatever the body says.
		id, ok := middleware.ClaimTenantID(c)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "Account is not linked to a tenant"})
		}
		tenantID = &id
	} else if req.TenantID != nil {
		id, err := uuid.Parse(*req.TenantID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid tenant_id"})
		}
		tenantID = &id
	}

	var rentPeriodID *uuid.UUID
	if req.RentPeriodID != nil {
		id, err := uuid.Parse(*req.RentPeriodID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid rent_period_id"})
		}
		var period models.RentPeriod
		if err := database.DB.First(&period, "id = ?", id).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Rent period not found"})
		}
		if tenantID != nil && period.TenantID != *tenantID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "Rent period belongs to another tenant"})
		}
		rentPeriodID = &id
		if tenantID == nil {
			tenantID = &period.TenantID
		}
	}

	stkResp, formattedPhone, err := payments.Client.InitiateSTKPush(c.Context(), payments.PushParams{
		PhoneNumber:      req.PhoneNumber,
		Amount:           req.Amount,
		AccountReference: req.AccountReference,
		TransactionDesc:  req.TransactionDesc,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidPhone), errors.Is(err, payments.ErrFractionalAmount):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		case errors.Is(err, payments.ErrAuth):
			log.Printf("M-Pesa auth failure on initiate: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": "Payment provider authentication failed"})
		case errors.Is(err, payments.ErrGatewayRejected):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		default:
			log.Printf("STK push failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": "Failed to initiate payment"})
		}
	}

	desc := req.TransactionDesc
	if desc == "" {
		desc = fmt.Sprintf("Rent payment for %s", req.AccountReference)
	}

	txn := models.MpesaTransaction{
		CheckoutRequestID: stkResp.CheckoutRequestID,
		MerchantRequestID: &stkResp.MerchantRequestID,
		TenantID:          tenantID,
		RentPeriodID:      rentPeriodID,
		PhoneNumber:       formattedPhone,
		Amount:            req.Amount,
		AccountReference:  req.AccountReference,
		TransactionDesc:   desc,
		Status:            models.TransactionStatusPending,
	}
	if err := database.DB.Create(&txn).Error; err != nil {
		// The push already went out; the callback will find nothing to update.
		log.Printf("🔥 CRITICAL: STK push %s sent but transaction not persisted: %v", stkResp.CheckoutRequestID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to record transaction"})
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"message":             stkResp.CustomerMessage,
		"checkout_request_id": stkResp.CheckoutRequestID,
		"merchant_request_id": stkResp.MerchantRequestID,
		"transaction_id":      txn.ID,
	})
}

type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []services.CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func callbackAck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// HandleMpesaCallback receives Daraja's asynchronous result. Whatever happens
// internally, the provider gets a success acknowledgment; anything else makes
// it retry a webhook whose business effect must not repeat.
func HandleMpesaCallback(c *fiber.Ctx) error {
	var envelope mpesaCallbackEnvelope
	if err := c.BodyParser(&envelope); err != nil {
		log.Printf("Malformed M-Pesa callback body: %v", err)
		return callbackAck(c)
	}

	stk := envelope.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		log.Println("M-Pesa callback missing stkCallback envelope")
		return callbackAck(c)
	}

	log.Printf("M-Pesa callback received: checkout=%s result=%d desc=%s", stk.CheckoutRequestID, stk.ResultCode, stk.ResultDesc)

	meta := services.ExtractCallbackMetadata(stk.CallbackMetadata.Item)
	result, err := services.ReconcileTransaction(services.Ledger, stk.CheckoutRequestID, stk.ResultCode, stk.ResultDesc, meta, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			log.Printf("Callback for unknown transaction %s ignored", stk.CheckoutRequestID)
		case errors.Is(err, services.ErrAlreadyResolved):
			log.Printf("Duplicate callback for %s ignored", stk.CheckoutRequestID)
		default:
			// Logged inside the reconciler as well; needs manual follow-up.
			log.Printf("Callback processing error for %s: %v", stk.CheckoutRequestID, err)
		}
		return callbackAck(c)
	}

	go announceResolution(result)

	return callbackAck(c)
}

// announceResolution fires the best-effort side effects of a terminal result:
// websocket event, receipt email, and SMS. None of them affect the ledger.
func announceResolution(result *services.ReconcileResult) {
	txn := result.Transaction

	ws.NotifyResolved(ws.PaymentEvent{
		CheckoutRequestID: txn.CheckoutRequestID,
		Status:            txn.Status,
		Amount:            txn.Amount,
		Receipt:           txn.MpesaReceiptNumber,
		TenantID:          txn.TenantID,
		RentPeriodID:      txn.RentPeriodID,
	})

	if result.Payment == nil || txn.TenantID == nil {
		return
	}

	var tenant models.Tenant
	if err := database.DB.First(&tenant, "id = ?", *txn.TenantID).Error; err != nil {
		log.Printf("Payment recorded but tenant %s not found for notifications: %v", *txn.TenantID, err)
		return
	}

	receiptNo := ""
	if result.Payment.MpesaReceipt != nil {
		receiptNo = *result.Payment.MpesaReceipt
	}

	message := fmt.Sprintf("Dear %s, we have received your rent payment of %s. Receipt: %s. Thank you.",
		tenant.Name, services.FormatKES(result.Payment.Amount), receiptNo)
	notifications.Dispatch(notifications.DispatchRequest{
		Type:    "sms",
		To:      tenant.Phone,
		Message: message,
	})

	if tenant.Email != nil {
		html := fmt.Sprintf(
			"<h1>Payment Received</h1><p>Dear %s,</p><p>We have received your rent payment of <b>%s</b>.</p><p>M-Pesa receipt: <b>%s</b></p><p>Thank you.</p>",
			tenant.Name, services.FormatKES(result.Payment.Amount), receiptNo)
		notifications.Dispatch(notifications.DispatchRequest{
			Type:        "email",
			To:          *tenant.Email,
			ToName:      tenant.Name,
			Subject:     "Rent Payment Receipt",
			Message:     message,
			HTMLContent: html,
		})
	}
}

type queryStatusRequest struct {
	CheckoutRequestID string `json:"checkout_request_id" validate:"required"`
}

// queryAndReconcile asks the provider for the outcome and, when it is
// terminal, funnels it through the same reconciliation path the callback uses.
// The conditional write makes the race between the two paths safe.
func queryAndReconcile(c *fiber.Ctx, checkoutRequestID string) (payments.QueryResult, error) {
	result, err := payments.Client.QueryStatus(c.Context(), checkoutRequestID)
	if err != nil {
		return payments.QueryResult{}, err
	}

	if result.Status == payments.StatusCompleted || result.Status == payments.StatusFailed {
		code, convErr := strconv.Atoi(result.ResultCode)
		if convErr != nil {
			code = 1
		}
		recResult, recErr := services.ReconcileTransaction(services.Ledger, checkoutRequestID, code, result.ResultDesc, services.CallbackMetadata{}, time.Now().UTC())
		if recErr != nil {
			if !errors.Is(recErr, services.ErrAlreadyResolved) && !errors.Is(recErr, services.ErrTransactionNotFound) {
				log.Printf("Query-driven reconciliation failed for %s: %v", checkoutRequestID, recErr)
			}
		} else {
			go announceResolution(recResult)
		}
	}

	return result, nil
}

func QueryMpesaStatus(c *fiber.Ctx) error {
	var req queryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	result, err := queryAndReconcile(c, req.CheckoutRequestID)
	if err != nil {
		log.Printf("Status query failed for %s: %v", req.CheckoutRequestID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": "Failed to query payment status"})
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"status":      result.Status,
		"result_code": result.ResultCode,
		"result_desc": result.ResultDesc,
	})
}

type pollStatusRequest struct {
	CheckoutRequestID string `json:"checkout_request_id" validate:"required"`
	MaxAttempts       int    `json:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	IntervalSeconds   int    `json:"interval_seconds,omitempty" validate:"omitempty,min=1,max=10"`
}

// PollMpesaStatus blocks until the push resolves or the attempt budget runs
// out. A timeout leaves the stored transaction pending; a late callback can
// still resolve it.
func PollMpesaStatus(c *fiber.Ctx) error {
	var req pollStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = payments.DefaultPollAttempts
	}
	interval := payments.DefaultPollInterval
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}

	result := payments.PollStatus(c.Context(), func(_ context.Context, id string) (payments.QueryResult, error) {
		return queryAndReconcile(c, id)
	}, req.CheckoutRequestID, maxAttempts, interval)

	return c.JSON(fiber.Map{
		"success":     true,
		"status":      result.Status,
		"result_code": result.ResultCode,
		"result_desc": result.ResultDesc,
	})
}

type ManualPaymentRequest struct {
	RentPeriodID string  `json:"rent_period_id" validate:"required,uuid"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Method       string  `json:"method" validate:"required,oneof=bank_transfer cash"`
	Notes        *string `json:"notes,omitempty"`
	ReceiptURL   *string `json:"receipt_url,omitempty"`
	Verified     bool    `json:"verified,omitempty"`
}

// RecordManualPayment records a bank transfer or cash payment against a rent
// period through the same ledger path M-Pesa reconciliation uses.
func RecordManualPayment(c *fiber.Ctx) error {
	var req ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	periodID, _ := uuid.Parse(req.RentPeriodID)

	period, err := services.Ledger.FindRentPeriod(periodID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if period == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rent period not found"})
	}

	now := time.Now().UTC()
	payment := &models.RentPayment{
		RentPeriodID: period.ID,
		TenantID:     period.TenantID,
		Amount:       req.Amount,
		Method:       req.Method,
		Notes:        req.Notes,
		ReceiptURL:   req.ReceiptURL,
		Verified:     req.Verified,
		PaymentDate:  now,
	}
	if req.Verified {
		payment.VerifiedAt = &now
	}

	services.ApplyPaymentToPeriod(period, req.Amount, now)

	if err := services.Ledger.SavePayment(payment, period); err != nil {
		log.Printf("Failed to record manual payment for period %s: %v", period.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment"})
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// ListPayments returns recent payments, newest first, with optional filters.
func ListPayments(c *fiber.Ctx) error {
	query := database.DB.Preload("Tenant").Preload("RentPeriod").Order("created_at DESC")

	if tenantID := c.Query("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if method := c.Query("method"); method != "" {
		query = query.Where("method = ?", method)
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var paymentList []models.RentPayment
	if err := query.Limit(limit).Find(&paymentList).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.JSON(paymentList)
}
