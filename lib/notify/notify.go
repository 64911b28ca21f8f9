// Package notify sends plain text run summaries over SMTP.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	// Addr is host:port of the SMTP server.
	Addr     string   `json:"smtp_addr"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Addr != "" && len(c.To) > 0
}

type Mailer struct {
	config SmtpConfig
}

func NewMailer(config SmtpConfig) Mailer {
	return Mailer{config: config}
}

// Message builds the email sent for a subject and body.
func (m Mailer) Message(subject, body string) *email.Email {
	mail := email.NewEmail()
	from := m.config.From
	if from == "" {
		from = m.config.Username
	}
	mail.From = fmt.Sprintf("jobharvest <%s>", from)
	mail.To = m.config.To
	mail.Subject = subject
	mail.Text = []byte(body)
	return mail
}

// Notify sends one message, servers that do not support AUTH are retried
// without it.
func (m Mailer) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mail := m.Message(subject, body)

	var auth smtp.Auth
	if m.config.Username != "" {
		host, _, err := net.SplitHostPort(m.config.Addr)
		if err != nil {
			return fmt.Errorf("smtp address: %w", err)
		}
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, host)
	}

	err := mail.Send(m.config.Addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(m.config.Addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
