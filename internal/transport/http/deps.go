package http

import (
	"log/slog"

	"github.com/virtual-id-api/internal/application/idcard"
	"github.com/virtual-id-api/internal/application/notification"
	"github.com/virtual-id-api/internal/application/otp"
	"github.com/virtual-id-api/internal/application/pass"
	"github.com/virtual-id-api/internal/pkg/clock"
	appmiddleware "github.com/virtual-id-api/internal/transport/http/middleware"
)

// TokenProvider signs verification tokens and verifies bearer tokens.
type TokenProvider interface {
	otp.TokenSigner
	appmiddleware.TokenVerifier
}

// Deps holds all infrastructure dependencies for the router.
// PassArchive, Events and JWTProvider are optional; leave them as untyped nil when not configured.
type Deps struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	OTPStore    otp.Store
	Mailer      notification.Mailer
	Fetcher     pass.ImageFetcher
	Vendor      pass.Vendor
	PassArchive idcard.Archive
	Events      idcard.EventPublisher
	JWTProvider TokenProvider
}
