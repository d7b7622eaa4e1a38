package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email through SendGrid. A zero APIKey disables
// sending, so local setups work without an account.
type Mailer struct {
	APIKey string
	From   string
}

func (m Mailer) Enabled() bool {
	return m.APIKey != "" && m.From != ""
}

func (m Mailer) SendWelcome(toEmail, username string) error {
	if !m.Enabled() {
		return nil
	}
	from := mail.NewEmail("Chirp", m.From)
	to := mail.NewEmail(username, toEmail)
	subject := "Welcome to Chirp"
	body := fmt.Sprintf("Hi %s, your Chirp account is ready.", username)
	msg := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(m.APIKey)
	resp, err := client.Send(msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
