package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/logging"
)

const otpSubject = "Your TSU Virtual ID OTP"

const otpEmailHTML = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
    <h2>Your TSU Virtual ID OTP</h2>
    <p>Your OTP is: <strong>%s</strong></p>
    <p>This will expire in %d minutes.</p>
    <p>If you did not request this OTP, please ignore this email.</p>
</div>
`

// Dispatcher sends a single email.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, htmlBody string, attachment *domain.Attachment) error
}

// TokenSigner issues a token proving that email passed OTP verification.
type TokenSigner interface {
	SignVerification(email string) (token string, expiresAt time.Time, err error)
}

// Verification is returned by a successful VerifyCode. Token is empty when no
// signer is configured.
type Verification struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

type Service interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*Verification, error)
}

type service struct {
	registry   *Registry
	dispatcher Dispatcher
	signer     TokenSigner
}

// NewService wires the registry to the email dispatcher. signer may be nil.
func NewService(registry *Registry, dispatcher Dispatcher, signer TokenSigner) Service {
	return &service{registry: registry, dispatcher: dispatcher, signer: signer}
}

func (s *service) RequestCode(ctx context.Context, email string) error {
	code, err := s.registry.Issue(ctx, email)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(otpEmailHTML, code, int(s.registry.TTL()/time.Minute))
	if err := s.dispatcher.Send(ctx, email, otpSubject, body, nil); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("otp sent", "email", email)
	return nil
}

func (s *service) VerifyCode(ctx context.Context, email, code string) (*Verification, error) {
	if err := s.registry.Verify(ctx, email, code); err != nil {
		return nil, err
	}
	v := &Verification{Email: normalize(email)}
	if s.signer == nil {
		return v, nil
	}
	token, exp, err := s.signer.SignVerification(v.Email)
	if err != nil {
		// The code is already consumed; the caller can still proceed without a token.
		logging.FromContext(ctx).Error("failed to sign verification token", "email", v.Email, "err", err)
		return v, nil
	}
	v.Token, v.ExpiresAt = token, exp
	return v, nil
}
