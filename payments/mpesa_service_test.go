package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "local zero prefix", input: "0712345678", want: "254712345678"},
		{name: "already international", input: "254712345678", want: "254712345678"},
		{name: "plus prefix", input: "+254712345678", want: "254712345678"},
		{name: "spaces and dashes", input: "0712 345-678", want: "254712345678"},
		{name: "bare nine digits", input: "712345678", want: "254712345678"},
		{name: "letters rejected", input: "07abc45678", wantErr: true},
		{name: "too short", input: "07123", wantErr: true},
		{name: "too long", input: "2547123456789", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatPhoneNumber(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPhoneNumberIdempotent(t *testing.T) {
	once, err := FormatPhoneNumber("0712345678")
	require.NoError(t, err)

	twice, err := FormatPhoneNumber(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestGenerateTimestamp(t *testing.T) {
	now := time.Date(2025, time.March, 7, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "20250307140509", generateTimestamp(now))
}

func TestStkPassword(t *testing.T) {
	got := stkPassword("174379", "passkey", "20250307140509")
	want := base64.StdEncoding.EncodeToString([]byte("174379passkey20250307140509"))
	assert.Equal(t, want, got)
}

func newAuthedTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *MpesaClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "test-token",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewMpesaClient(MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/callback",
		BaseURL:        server.URL,
	})
	return server, client
}

func TestInitiateSTKPush(t *testing.T) {
	t.Run("rejects fractional amount without calling provider", func(t *testing.T) {
		called := false
		_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		_, _, err := client.InitiateSTKPush(context.Background(), PushParams{
			PhoneNumber: "0712345678",
			Amount:      1500.50,
		})
		assert.ErrorIs(t, err, ErrFractionalAmount)
		assert.False(t, called)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		_, _, err := client.InitiateSTKPush(context.Background(), PushParams{
			PhoneNumber: "0712345678",
			Amount:      0,
		})
		assert.ErrorIs(t, err, ErrFractionalAmount)
	})

	t.Run("rejects bad phone before provider call", func(t *testing.T) {
		_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		_, _, err := client.InitiateSTKPush(context.Background(), PushParams{
			PhoneNumber: "not-a-phone",
			Amount:      1500,
		})
		assert.ErrorIs(t, err, ErrInvalidPhone)
	})

	t.Run("sends normalized phone and whole-shilling amount", func(t *testing.T) {
		var received stkPushPayload
		_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
			require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(STKPushResponse{
				MerchantRequestID: "mr-1",
				CheckoutRequestID: "ws_CO_123",
				ResponseCode:      "0",
				CustomerMessage:   "Success. Request accepted for processing",
			})
		})

		resp, phone, err := client.InitiateSTKPush(context.Background(), PushParams{
			PhoneNumber:      "0712 345 678",
			Amount:           1500,
			AccountReference: "RP-ABC12345",
		})
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)
		assert.Equal(t, "254712345678", phone)
		assert.Equal(t, "254712345678", received.PhoneNumber)
		assert.Equal(t, "254712345678", received.PartyA)
		assert.Equal(t, int64(1500), received.Amount)
		assert.Equal(t, "CustomerPayBillOnline", received.TransactionType)
		assert.Equal(t, "RP-ABC12345", received.AccountReference)
	})

	t.Run("surfaces gateway rejection", func(t *testing.T) {
		_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(STKPushResponse{
				ResponseCode:        "1",
				ResponseDescription: "Invalid shortcode",
			})
		})

		_, _, err := client.InitiateSTKPush(context.Background(), PushParams{
			PhoneNumber: "0712345678",
			Amount:      1500,
		})
		assert.ErrorIs(t, err, ErrGatewayRejected)
		assert.Contains(t, err.Error(), "Invalid shortcode")
	})
}

func TestQueryStatus(t *testing.T) {
	tests := []struct {
		name       string
		resultCode string
		wantStatus string
	}{
		{name: "success code", resultCode: "0", wantStatus: StatusCompleted},
		{name: "cancelled by user", resultCode: "1032", wantStatus: StatusFailed},
		{name: "insufficient funds", resultCode: "1", wantStatus: StatusFailed},
		{name: "still processing", resultCode: "", wantStatus: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newAuthedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)
				json.NewEncoder(w).Encode(stkQueryResponse{
					ResponseCode: "0",
					ResultCode:   tt.resultCode,
					ResultDesc:   "desc",
				})
			})

			result, err := client.QueryStatus(context.Background(), "ws_CO_123")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.resultCode, result.ResultCode)
		})
	}
}

func TestAuthenticateCachesToken(t *testing.T) {
	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "cached-token",
			"expires_in":   "3599",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewMpesaClient(MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		BaseURL:        server.URL,
	})

	for i := 0; i < 3; i++ {
		token, err := client.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached-token", token)
	}
	assert.Equal(t, 1, authCalls)
}

func TestAuthenticateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewMpesaClient(MpesaConfig{
		ConsumerKey:    "bad",
		ConsumerSecret: "creds",
		BaseURL:        server.URL,
	})

	_, err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}
