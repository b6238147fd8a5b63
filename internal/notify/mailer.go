// Package notify delivers booking confirmations. Delivery is best-effort:
// nothing here can fail or slow down a booking.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templateFS, "templates/booking_confirmed.html"))

// MailerConfig holds SMTP settings.
type MailerConfig struct {
	Host     string `env:"EMAIL_HOST"`
	Port     int    `env:"EMAIL_PORT" envDefault:"587"`
	User     string `env:"EMAIL_USER"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM"`
}

// Missing lists the settings that are required but empty.
func (c MailerConfig) Missing() []string {
	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"EMAIL_HOST", c.Host},
		{"EMAIL_USER", c.User},
		{"EMAIL_PASSWORD", c.Password},
		{"EMAIL_FROM", c.From},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	return missing
}

// Configured reports whether SMTP delivery can be attempted.
func (c MailerConfig) Configured() bool {
	return len(c.Missing()) == 0
}

// Subject returns the confirmation subject line for class.
func Subject(class model.ClassSession) string {
	return "Class Booking Confirmed - " + class.Name
}

// RenderConfirmation renders the HTML confirmation body.
func RenderConfirmation(name string, class model.ClassSession) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Name  string
		Class model.ClassSession
	}{Name: name, Class: class}
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}

// Mailer sends confirmations over SMTP. A fresh client is dialed for every
// message; go-mail clients are not safe for concurrent use.
type Mailer struct {
	cfg     MailerConfig
	timeout time.Duration
}

// NewMailer constructs a Mailer.
func NewMailer(cfg MailerConfig, timeout time.Duration) *Mailer {
	return &Mailer{cfg: cfg, timeout: timeout}
}

// Send delivers one confirmation email.
func (m *Mailer) Send(ctx context.Context, email, name string, class model.ClassSession) error {
	msg, err := m.message(email, name, class)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", email, err)
	}
	return nil
}

func (m *Mailer) message(email, name string, class model.ClassSession) (*mail.Msg, error) {
	body, err := RenderConfirmation(name, class)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("set from %q: %w", m.cfg.From, err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("set to %q: %w", email, err)
	}
	msg.Subject(Subject(class))
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
	}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	return opts
}

// LogSender stands in for the Mailer when SMTP is not configured.
type LogSender struct{}

// Send logs the skipped confirmation.
func (LogSender) Send(_ context.Context, email, _ string, class model.ClassSession) error {
	log.Printf("email not configured, skipping confirmation to=%s class=%q", email, class.Name)
	return nil
}
