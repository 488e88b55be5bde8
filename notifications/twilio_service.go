package notifications

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/wirelesstrade/rent_portal/configs"
)

type TwilioService struct {
	AccountSID   string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
}

var TwilioClient *TwilioService

func InitTwilioService() {
	accountSID := config.Config("TWILIO_ACCOUNT_SID")
	authToken := config.Config("TWILIO_AUTH_TOKEN")

	if accountSID == "" || authToken == "" {
		log.Println("⚠️ Twilio service not configured. SMS and WhatsApp sends will be skipped.")
		TwilioClient = nil
		return
	}

	TwilioClient = &TwilioService{
		AccountSID:   accountSID,
		AuthToken:    authToken,
		SMSFrom:      config.Config("TWILIO_PHONE_NUMBER"),
		WhatsAppFrom: config.Config("TWILIO_WHATSAPP_NUMBER"),
	}
	log.Println("✅ Twilio service initialized successfully.")
}

// FormatPhoneForTwilio normalizes a Kenyan number to E.164 (+2547XXXXXXXX).
func FormatPhoneForTwilio(phone string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(phone)
	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = "+254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "254"):
		cleaned = "+" + cleaned
	default:
		cleaned = "+254" + cleaned
	}
	return cleaned
}

func (s *TwilioService) postMessage(to, from, body string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Twilio request: %v", err)
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Twilio request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Twilio returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func SendSMS(to, message string) error {
	if TwilioClient == nil || TwilioClient.SMSFrom == "" {
		return fmt.Errorf("SMS service not configured")
	}
	return TwilioClient.postMessage(FormatPhoneForTwilio(to), TwilioClient.SMSFrom, message)
}

func SendWhatsApp(to, message string) error {
	if TwilioClient == nil || TwilioClient.WhatsAppFrom == "" {
		return fmt.Errorf("WhatsApp service not configured")
	}

	whatsappTo := FormatPhoneForTwilio(to)
	if !strings.HasPrefix(whatsappTo, "whatsapp:") {
		whatsappTo = "whatsapp:" + whatsappTo
	}
	whatsappFrom := TwilioClient.WhatsAppFrom
	if !strings.HasPrefix(whatsappFrom, "whatsapp:") {
		whatsappFrom = "whatsapp:" + whatsappFrom
	}

	return TwilioClient.postMessage(whatsappTo, whatsappFrom, message)
}
