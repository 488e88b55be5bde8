package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	config "github.com/wirelesstrade/rent_portal/configs"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

var (
	ErrInvalidPhone     = errors.New("invalid M-Pesa phone number format")
	ErrFractionalAmount = errors.New("amount must be a whole number of shillings")
	ErrAuth             = errors.New("M-Pesa authentication failed")
	ErrGatewayRejected  = errors.New("M-Pesa rejected the request")
)

// MpesaConfig carries the Daraja credentials. BaseURL overrides the
// environment-derived URL and is only set in tests.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Environment    string
	CallbackURL    string
	BaseURL        string
}

type MpesaClient struct {
	cfg        MpesaConfig
	httpClient *http.Client

	token       string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex
}

var Client *MpesaClient

func LoadMpesaConfig() MpesaConfig {
	return MpesaConfig{
		ConsumerKey:    config.Config("MPESA_CONSUMER_KEY"),
		ConsumerSecret: config.Config("MPESA_CONSUMER_SECRET"),
		Shortcode:      config.Config("MPESA_SHORTCODE"),
		Passkey:        config.Config("MPESA_PASSKEY"),
		Environment:    config.ConfigOr("MPESA_ENVIRONMENT", "sandbox"),
		CallbackURL:    config.Config("MPESA_CALLBACK_URL"),
	}
}

func NewMpesaClient(cfg MpesaConfig) *MpesaClient {
	return &MpesaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// InitMpesaClient builds the shared client from the environment.
func InitMpesaClient() {
	cfg := LoadMpesaConfig()
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.Shortcode == "" || cfg.Passkey == "" {
		log.Println("⚠️ M-Pesa credentials incomplete; STK push will fail until configured")
	}
	Client = NewMpesaClient(cfg)
}

func (c *MpesaClient) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	if c.cfg.Environment == "production" {
		return productionBaseURL
	}
	return sandboxBaseURL
}

var phoneJunkRegex = regexp.MustCompile(`[\s\-\+]`)
var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

// FormatPhoneNumber normalizes a Kenyan phone number to the 2547XXXXXXXX form
// Daraja expects. Normalizing an already-normalized number is a no-op.
func FormatPhoneNumber(phone string) (string, error) {
	cleaned := phoneJunkRegex.ReplaceAllString(phone, "")
	if !digitsRegex.MatchString(cleaned) {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "254"):
		// already international
	default:
		cleaned = "254" + cleaned
	}

	if len(cleaned) != 12 {
		return "", ErrInvalidPhone
	}
	return cleaned, nil
}

func generateTimestamp(now time.Time) string {
	return now.Format("20060102150405")
}

func stkPassword(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

type PushParams struct {
	PhoneNumber      string
	Amount           float64
	AccountReference string
	TransactionDesc  string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush asks Daraja to prompt the payer's phone. The caller persists a
// pending MpesaTransaction only after this returns without error.
func (c *MpesaClient) InitiateSTKPush(ctx context.Context, params PushParams) (*STKPushResponse, string, error) {
	if params.Amount <= 0 || params.Amount != math.Trunc(params.Amount) {
		return nil, "", ErrFractionalAmount
	}

	phone, err := FormatPhoneNumber(params.PhoneNumber)
	if err != nil {
		return nil, "", err
	}

	accessToken, err := c.Authenticate(ctx)
	if err != nil {
		return nil, "", err
	}

	timestamp := generateTimestamp(time.Now())
	desc := params.TransactionDesc
	if desc == "" {
		desc = fmt.Sprintf("Rent payment for %s", params.AccountReference)
	}

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          stkPassword(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(params.Amount),
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  params.AccountReference,
		TransactionDesc:   desc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal STK payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create STK request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send STK request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read STK response body: %v", err)
	}

	var stkResponse STKPushResponse
	if err := json.Unmarshal(respBody, &stkResponse); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal STK response: %v", err)
	}

	if stkResponse.ResponseCode != "0" {
		log.Printf("STK push rejected: code=%s desc=%s", stkResponse.ResponseCode, stkResponse.ResponseDescription)
		return nil, "", fmt.Errorf("%w: %s", ErrGatewayRejected, stkResponse.ResponseDescription)
	}

	return &stkResponse, phone, nil
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type QueryResult struct {
	Status     string
	ResultCode string
	ResultDesc string
}

// mapQueryResultCode translates a Daraja query ResultCode into a transaction
// status. "0" is success, any other defined code is failure, and no code yet
// means the push is still outstanding.
func mapQueryResultCode(code string) string {
	switch {
	case code == "0":
		return "completed"
	case code != "":
		return "failed"
	default:
		return "pending"
	}
}

// QueryStatus actively asks Daraja for the outcome of a prior push.
func (c *MpesaClient) QueryStatus(ctx context.Context, checkoutRequestID string) (QueryResult, error) {
	accessToken, err := c.Authenticate(ctx)
	if err != nil {
		return QueryResult{}, err
	}

	timestamp := generateTimestamp(time.Now())
	payload := stkQueryPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          stkPassword(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to marshal query payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/mpesa/stkpushquery/v1/query", bytes.NewBuffer(body))
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to create query request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to send query request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read query response body: %v", err)
	}

	var queryResponse stkQueryResponse
	if err := json.Unmarshal(respBody, &queryResponse); err != nil {
		return QueryResult{}, fmt.Errorf("failed to unmarshal query response: %v", err)
	}

	return QueryResult{
		Status:     mapQueryResultCode(queryResponse.ResultCode),
		ResultCode: queryResponse.ResultCode,
		ResultDesc: queryResponse.ResultDesc,
	}, nil
}
