// Package mail sends plain-text notification email over SMTP.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer holds SMTP connection settings. A Mailer with an empty Host is
// disabled: Send becomes a no-op so environments without an SMTP relay
// (local dev, CI) keep working.
type Mailer struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// New builds a Mailer from config values.
func New(host, port, from, username, password string) *Mailer {
	return &Mailer{Host: host, Port: port, From: from, Username: username, Password: password}
}

// Enabled reports whether outgoing mail is configured.
func (m *Mailer) Enabled() bool { return m.Host != "" }

// Send delivers a plain-text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := m.Host + ":" + m.Port
	var a smtp.Auth
	if m.Username != "" {
		a = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, a, m.From, []string{to}, []byte(msg.String()))
}
