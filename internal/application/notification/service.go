// Package notification builds outbound emails and hands them to a mail transport.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/logging"
	"github.com/virtual-id-api/internal/pkg/metrics"
)

// Pass attachments are always declared with this media type and filename.
const (
	PassMediaType = "application/vnd.apple.pkpass"
	PassFilename  = "student-id.pkpass"
)

// Mailer delivers one fully built message.
type Mailer interface {
	Deliver(ctx context.Context, msg *domain.NotificationMessage) error
}

// Dispatcher sends a single email per call.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, htmlBody string, attachment *domain.Attachment) error
}

type dispatcher struct {
	mailer Mailer
	from   string
}

func NewDispatcher(mailer Mailer, from string) Dispatcher {
	return &dispatcher{mailer: mailer, from: from}
}

// Send makes exactly one delivery attempt. Failures wrap domain.ErrDelivery
// and keep the provider message.
func (d *dispatcher) Send(ctx context.Context, recipient, subject, htmlBody string, attachment *domain.Attachment) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("recipient required: %w", domain.ErrBadRequest)
	}

	msg := &domain.NotificationMessage{
		From:      d.from,
		Recipient: recipient,
		Subject:   subject,
		HTMLBody:  htmlBody,
	}
	kind := "plain"
	if attachment != nil && len(attachment.Content) > 0 {
		kind = "attachment"
		msg.Attachment = &domain.Attachment{
			Filename:  PassFilename,
			MediaType: PassMediaType,
			Content:   attachment.Content,
		}
	}

	if err := d.mailer.Deliver(ctx, msg); err != nil {
		metrics.IncEmail(kind, "failure")
		logging.FromContext(ctx).Error("email delivery failed", "recipient", recipient, "subject", subject, "err", err)
		if errors.Is(err, domain.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	metrics.IncEmail(kind, "success")
	return nil
}
