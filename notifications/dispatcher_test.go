package notifications

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchWith(t *testing.T) {
	t.Run("one failing channel does not block the others", func(t *testing.T) {
		senders := Senders{
			SMS:      func(to, message string) error { return errors.New("twilio down") },
			WhatsApp: func(to, message string) error { return nil },
			Email:    func(toName, toEmail, subject, htmlContent string) error { return nil },
		}

		results := DispatchWith(senders, DispatchRequest{
			Type:    "all",
			To:      "254712345678",
			Message: "Rent due",
		})

		require.Len(t, results, 3)
		assert.False(t, results["sms"].Success)
		assert.Equal(t, "twilio down", results["sms"].Error)
		assert.True(t, results["whatsapp"].Success)
		assert.True(t, results["email"].Success)
	})

	t.Run("single channel only touches that channel", func(t *testing.T) {
		smsCalls := 0
		emailCalls := 0
		senders := Senders{
			SMS:      func(to, message string) error { smsCalls++; return nil },
			WhatsApp: func(to, message string) error { t.Fatal("whatsapp should not be called"); return nil },
			Email:    func(toName, toEmail, subject, htmlContent string) error { emailCalls++; return nil },
		}

		results := DispatchWith(senders, DispatchRequest{Type: "sms", To: "254712345678", Message: "hi"})
		require.Len(t, results, 1)
		assert.Equal(t, 1, smsCalls)
		assert.Equal(t, 0, emailCalls)
	})

	t.Run("email falls back to wrapping the plain message", func(t *testing.T) {
		var gotHTML string
		senders := Senders{
			Email: func(toName, toEmail, subject, htmlContent string) error {
				gotHTML = htmlContent
				return nil
			},
		}

		DispatchWith(senders, DispatchRequest{Type: "email", To: "tenant@example.com", Message: "Rent due"})
		assert.Equal(t, "<p>Rent due</p>", gotHTML)
	})

	t.Run("explicit html content is passed through", func(t *testing.T) {
		var gotHTML string
		senders := Senders{
			Email: func(toName, toEmail, subject, htmlContent string) error {
				gotHTML = htmlContent
				return nil
			},
		}

		DispatchWith(senders, DispatchRequest{
			Type:        "email",
			To:          "tenant@example.com",
			Message:     "plain",
			HTMLContent: "<h1>Receipt</h1>",
		})
		assert.Equal(t, "<h1>Receipt</h1>", gotHTML)
	})
}

func TestFormatPhoneForTwilio(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "254712345678", want: "+254712345678"},
		{input: "+254712345678", want: "+254712345678"},
		{input: "0712345678", want: "+254712345678"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhoneForTwilio(tt.input), "input %q", tt.input)
	}
}
