package backends

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"notification-engine/internal/common/errors"
)

// SMTPSettings is everything one SMTP delivery needs. It comes either from
// the static config or from the active EmailConfiguration row.
type SMTPSettings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	UseTLS    bool
	UseSSL    bool
	FromEmail string
	ReplyTo   string
}

// SMTPBackend sends email over plain SMTP, STARTTLS, or implicit TLS.
type SMTPBackend struct {
	settings SMTPSettings
}

func NewSMTPBackend(settings SMTPSettings) *SMTPBackend {
	return &SMTPBackend{settings: settings}
}

func (b *SMTPBackend) SendEmail(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return errors.NewSendError(fmt.Sprintf("context cancelled before sending email: %v", err), true)
	}
	if email.To == "" {
		return errors.NewSendError("empty recipient address", false)
	}

	from := email.From
	if from == "" {
		from = b.settings.FromEmail
	}

	message := buildEmailMessage(email, from, b.settings.ReplyTo)
	addr := fmt.Sprintf("%s:%d", b.settings.Host, b.settings.Port)

	var auth smtp.Auth
	if b.settings.Username != "" && b.settings.Password != "" {
		auth = smtp.PlainAuth("", b.settings.Username, b.settings.Password, b.settings.Host)
	}

	var err error
	switch {
	case b.settings.UseSSL:
		err = b.sendImplicitTLS(addr, auth, from, email.To, []byte(message))
	case b.settings.UseTLS:
		err = b.sendStartTLS(addr, auth, from, email.To, []byte(message))
	default:
		err = smtp.SendMail(addr, auth, from, []string{email.To}, []byte(message))
	}
	if err != nil {
		return errors.NewSendError(fmt.Sprintf("smtp: %v", err), true)
	}
	return nil
}

// sendImplicitTLS speaks TLS from the first byte, the port-465 convention.
func (b *SMTPBackend) sendImplicitTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: b.settings.Host})
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, b.settings.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP handshake: %w", err)
	}
	defer client.Close()

	return b.deliver(client, auth, from, to, msg)
}

// sendStartTLS connects in plaintext and upgrades, the port-587 convention.
func (b *SMTPBackend) sendStartTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: b.settings.Host}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("start TLS: %w", err)
	}

	return b.deliver(client, auth, from, to, msg)
}

func (b *SMTPBackend) deliver(client *smtp.Client, auth smtp.Auth, from, to string, msg []byte) error {
	var err error
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}

	return client.Quit()
}

// buildEmailMessage assembles the RFC 5322 message. HTML bodies go out as a
// multipart/alternative with the text part first.
func buildEmailMessage(email *Email, from, replyTo string) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	if email.ReplyTo != "" {
		builder.WriteString(fmt.Sprintf("Reply-To: %s\r\n", email.ReplyTo))
	} else if replyTo != "" {
		builder.WriteString(fmt.Sprintf("Reply-To: %s\r\n", replyTo))
	}
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	builder.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody == "" {
		builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		builder.WriteString("\r\n")
		builder.WriteString(email.Body)
		return builder.String()
	}

	const boundary = "=_notification_alt"
	builder.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
	builder.WriteString("\r\n")

	builder.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	builder.WriteString(email.Body)
	builder.WriteString("\r\n")

	builder.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	builder.WriteString(email.HTMLBody)
	builder.WriteString("\r\n")

	builder.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return builder.String()
}
