// Package sendgrid delivers notification messages through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/virtual-id-api/internal/domain"
)

// Sender is the part of the SendGrid client used here.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer implements the notification transport on SendGrid.
type Mailer struct {
	client Sender
}

// NewMailer builds a Mailer with a SendGrid client for apiKey.
func NewMailer(apiKey string) *Mailer {
	return &Mailer{client: sg.NewSendClient(apiKey)}
}

// NewMailerWithSender wraps an existing client.
func NewMailerWithSender(client Sender) *Mailer {
	return &Mailer{client: client}
}

// Deliver submits msg. A non-2xx API response is an error carrying the
// provider's body verbatim.
func (m *Mailer) Deliver(ctx context.Context, msg *domain.NotificationMessage) error {
	resp, err := m.client.SendWithContext(ctx, buildMail(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid send: status %d: %s: %w", resp.StatusCode, resp.Body, domain.ErrDelivery)
	}
	return nil
}

func buildMail(msg *domain.NotificationMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", msg.From))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.Recipient))
	m.AddPersonalizations(p)

	if msg.TextBody != "" {
		m.AddContent(mail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}

	if a := msg.Attachment; a != nil {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.MediaType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}
