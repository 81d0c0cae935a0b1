package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type Config struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// SMTPMailer sends the storefront's transactional mail. All sends are
// best-effort from the caller's point of view.
type SMTPMailer struct {
	cfg Config
}

func New(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendRefundProcessing(ctx context.Context, to, name, productTitle string, amount float64, orderNumber string) error {
	subject := "Your refund is being processed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour refund for %q has been submitted to our payment provider.\n\nRefund amount: $%.2f\nOrder number: %s\nStatus: processing\n\nRefunds typically appear on your statement within 5-10 business days.\n",
		name, productTitle, amount, orderNumber,
	)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendPurchaseConfirmation(ctx context.Context, to, name, orderNumber string, itemTitles []string) error {
	subject := "Thanks for your purchase"
	body := fmt.Sprintf("Hi %s,\n\nYour order %s is confirmed. You now have access to:\n", name, orderNumber)
	for _, t := range itemTitles {
		body += fmt.Sprintf("  - %s\n", t)
	}
	body += "\nHappy learning!\n"
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(_ context.Context, to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return fmt.Errorf("smtp not configured")
	}
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	return e.Send(addr, auth)
}
