package notifications

import (
	"log"

	"github.com/wirelesstrade/rent_portal/database"
	"github.com/wirelesstrade/rent_portal/models"
)

type DispatchRequest struct {
	Type        string // sms | whatsapp | email | all
	To          string // phone for sms/whatsapp, email address for email
	Subject     string
	Message     string
	HTMLContent string
	ToName      string
}

type ChannelResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Senders lets tests substitute the channel transports.
type Senders struct {
	SMS      func(to, message string) error
	WhatsApp func(to, message string) error
	Email    func(toName, toEmail, subject, htmlContent string) error
}

func defaultSenders() Senders {
	return Senders{SMS: SendSMS, WhatsApp: SendWhatsApp, Email: SendEmail}
}

// Dispatch fans a message out to the requested channels, logging each attempt.
// Channels are independent: one failing never blocks the others, and nothing
// is retried or escalated to the caller beyond the per-channel result.
func Dispatch(req DispatchRequest) map[string]ChannelResult {
	results := DispatchWith(defaultSenders(), req)
	for channel, result := range results {
		recordNotification(channel, req, result)
	}
	return results
}

func DispatchWith(s Senders, req DispatchRequest) map[string]ChannelResult {
	results := make(map[string]ChannelResult)

	wants := func(channel string) bool {
		return req.Type == channel || req.Type == "all"
	}

	if wants("sms") {
		results["sms"] = attempt(func() error { return s.SMS(req.To, req.Message) })
	}
	if wants("whatsapp") {
		results["whatsapp"] = attempt(func() error { return s.WhatsApp(req.To, req.Message) })
	}
	if wants("email") {
		html := req.HTMLContent
		if html == "" {
			html = "<p>" + req.Message + "</p>"
		}
		results["email"] = attempt(func() error { return s.Email(req.ToName, req.To, req.Subject, html) })
	}

	return results
}

func attempt(send func() error) ChannelResult {
	if err := send(); err != nil {
		return ChannelResult{Success: false, Error: err.Error()}
	}
	return ChannelResult{Success: true}
}

func recordNotification(channel string, req DispatchRequest, result ChannelResult) {
	if database.DB == nil {
		return
	}

	status := "sent"
	var sendErr *string
	if !result.Success {
		status = "failed"
		e := result.Error
		sendErr = &e
	}

	var subject *string
	if req.Subject != "" {
		s := req.Subject
		subject = &s
	}

	entry := models.Notification{
		Channel:   channel,
		Recipient: req.To,
		Subject:   subject,
		Message:   req.Message,
		Status:    status,
		Error:     sendErr,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("Failed to record %s notification: %v", channel, err)
	}
}
