package infra

import (
	"fmt"
	"net/smtp"

	"parkcore/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending reports with attachments.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host was set.
func (m *Mailer) Configured() bool { return m.host != "" }

// SendReport mails body to every recipient with the given files attached.
func (m *Mailer) SendReport(to []string, subject, body string, attachments ...string) error {
	if len(to) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if path == "" {
			continue
		}
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", path, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
