package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/virtual-id-api/internal/application/idcard"
	"github.com/virtual-id-api/internal/application/notification"
	"github.com/virtual-id-api/internal/application/otp"
	"github.com/virtual-id-api/internal/application/pass"
	"github.com/virtual-id-api/internal/config"
	"github.com/virtual-id-api/internal/pkg/clock"
	"github.com/virtual-id-api/internal/pkg/metrics"
	"github.com/virtual-id-api/internal/transport/http/handler"
	appmiddleware "github.com/virtual-id-api/internal/transport/http/middleware"
)

// NewRouter wires services from deps and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var signer otp.TokenSigner
	sessionMw := func(next http.Handler) http.Handler { return next }
	requireSession := false
	if deps.JWTProvider != nil {
		signer = deps.JWTProvider
		if cfg.RequireVerifiedSession {
			sessionMw = appmiddleware.Auth(deps.JWTProvider)
			requireSession = true
		}
	}

	dispatcher := notification.NewDispatcher(deps.Mailer, cfg.MailFrom)
	registry := otp.NewRegistry(deps.OTPStore,
		otp.WithClock(deps.Clock),
		otp.WithTTL(cfg.OTPTTL),
	)
	otpSvc := otp.NewService(registry, dispatcher, signer)

	pipeline := pass.NewPipeline(deps.Fetcher, deps.Vendor, pass.Timeouts{
		Fetch:    cfg.Timeouts.Fetch,
		Upload:   cfg.Timeouts.Upload,
		Create:   cfg.Timeouts.Create,
		Download: cfg.Timeouts.Download,
	}, cfg.PassAttachFile)

	idCardSvc := idcard.NewService(idcard.Deps{
		Pipeline:        pipeline,
		Dispatcher:      dispatcher,
		Vendor:          deps.Vendor,
		Archive:         deps.PassArchive,
		Events:          deps.Events,
		Clock:           deps.Clock,
		FallbackImage:   cfg.PassFallbackImageURL,
		DownloadTimeout: cfg.Timeouts.Download,
	})

	healthH := handler.NewHealthHandler(cfg)
	otpH := handler.NewOTPHandler(otpSvc)
	idCardH := handler.NewIDCardHandler(idCardSvc, requireSession)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)
	r.Get("/test", healthH.Test)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/send-otp", otpH.SendOTP)
	r.Post("/verify-otp", otpH.VerifyOTP)
	r.With(sessionMw).Post("/send-id-card", idCardH.SendIDCard)
	r.Get("/download-pass/{passId}", idCardH.DownloadPass)

	return r
}
