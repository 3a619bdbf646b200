// Package email sends transactional notifications over SMTP.
package email

import (
	"fmt"
	"time"

	"platefuel_backend/internal/config"

	"gopkg.in/gomail.v2"
)

// Provider is the notification surface the services depend on.
type Provider interface {
	SendSubscriptionActivated(to string, tier string, endDate time.Time) error
	SendPaymentFailed(to string) error
}

type GomailSender struct {
	cfg *config.Config
}

func NewGomailSender(cfg *config.Config) *GomailSender {
	return &GomailSender{cfg: cfg}
}

func (e *GomailSender) SendSubscriptionActivated(to string, tier string, endDate time.Time) error {
	body := fmt.Sprintf(
		"<p>Your %s meal-plan subscription is active until %s. Enjoy!</p>",
		tier, endDate.Format("January 2, 2006"),
	)
	return e.send(to, "Your subscription is active", body)
}

func (e *GomailSender) SendPaymentFailed(to string) error {
	body := "<p>We could not collect your subscription payment. " +
		"Please resume the payment from your account page to keep access.</p>"
	return e.send(to, "Payment failed", body)
}

func (e *GomailSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.Email.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(
		e.cfg.Email.SMTPHost,
		e.cfg.Email.SMTPPort,
		e.cfg.Email.SMTPUsername,
		e.cfg.Email.SMTPPassword,
	)

	return d.DialAndSend(m)
}

// NoopProvider is used when email delivery is disabled in config.
type NoopProvider struct{}

func (NoopProvider) SendSubscriptionActivated(string, string, time.Time) error { return nil }
func (NoopProvider) SendPaymentFailed(string) error                            { return nil }
