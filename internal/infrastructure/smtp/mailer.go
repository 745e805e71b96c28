// Package smtp delivers notification messages over SMTP.
package smtp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/virtual-id-api/internal/config"
	"github.com/virtual-id-api/internal/domain"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer implements the notification transport on top of net/smtp.
type Mailer struct {
	addr string
	auth smtp.Auth
	send sendFunc
}

func NewMailer(cfg *config.Config) *Mailer {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &Mailer{
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		send: smtp.SendMail,
	}
}

// Deliver sends msg in a single SMTP transaction.
func (m *Mailer) Deliver(ctx context.Context, msg *domain.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := buildMessage(msg, boundary())
	if err := m.send(m.addr, m.auth, msg.From, []string{msg.Recipient}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(msg *domain.NotificationMessage, boundary string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", msg.From)
	fmt.Fprintf(&sb, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")

	body, contentType := bodyPart(msg)
	if msg.Attachment == nil {
		fmt.Fprintf(&sb, "Content-Type: %s\r\n\r\n", contentType)
		sb.WriteString(body)
		return []byte(sb.String())
	}

	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	fmt.Fprintf(&sb, "Content-Type: %s\r\n\r\n", contentType)
	sb.WriteString(body)
	sb.WriteString("\r\n")

	a := msg.Attachment
	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	fmt.Fprintf(&sb, "Content-Type: %s\r\n", a.MediaType)
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&sb, "Content-Disposition: attachment; filename=%q\r\n\r\n", a.Filename)
	writeBase64Lines(&sb, a.Content)
	fmt.Fprintf(&sb, "--%s--\r\n", boundary)
	return []byte(sb.String())
}

func bodyPart(msg *domain.NotificationMessage) (string, string) {
	if msg.HTMLBody != "" {
		return msg.HTMLBody, "text/html; charset=UTF-8"
	}
	return msg.TextBody, "text/plain; charset=UTF-8"
}

// writeBase64Lines wraps encoded content at 76 characters per RFC 2045.
func writeBase64Lines(sb *strings.Builder, content []byte) {
	enc := base64.StdEncoding.EncodeToString(content)
	for len(enc) > 76 {
		sb.WriteString(enc[:76])
		sb.WriteString("\r\n")
		enc = enc[76:]
	}
	sb.WriteString(enc)
	sb.WriteString("\r\n")
}

func boundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "virtual-id-boundary"
	}
	return "virtual-id-" + hex.EncodeToString(b[:])
}
