// Package idcard provisions a student's wallet pass and emails the rendered ID card.
package idcard

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/virtual-id-api/internal/application/pass"
	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/clock"
	"github.com/virtual-id-api/internal/pkg/id"
	"github.com/virtual-id-api/internal/pkg/logging"
	"github.com/virtual-id-api/internal/pkg/template"
)

const idCardSubject = "Your TSU Virtual ID Card"

// DefaultFallbackImageURL is used when the student has no photo URL.
const DefaultFallbackImageURL = "https://upload.wikimedia.org/wikipedia/en/thumb/5/53/Tennessee_State_University_seal.svg/300px-Tennessee_State_University_seal.svg.png"

const barcodeURLFormat = "https://barcode.tec-it.com/barcode.ashx?data=%s&code=Code128&multiplebarcodes=false&translate-esc=false&unit=mm&dpi=96&imagetype=Gif&rotation=0&color=%%23000000&bgcolor=%%23ffffff&codepage=&width=200&height=50&fontname=Helvetica&fontsize=10&font=&checksum=false&istextdrawn=false"

//go:embed templates/email.html
var emailTemplate string

// Provisioner runs the pass pipeline.
type Provisioner interface {
	Run(ctx context.Context, student domain.StudentProfile, imageURL string) *pass.Result
}

// Dispatcher sends a single email.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, htmlBody string, attachment *domain.Attachment) error
}

// PassFetcher downloads a pass file from the vendor.
type PassFetcher interface {
	DownloadPass(ctx context.Context, passID string) ([]byte, error)
}

// Archive keeps pass files. Open wraps domain.ErrNotFound for unknown passes.
type Archive interface {
	Put(ctx context.Context, passID string, data []byte) (string, error)
	Open(ctx context.Context, passID string) (io.ReadCloser, error)
}

// EventPublisher emits pass events.
type EventPublisher interface {
	Publish(ctx context.Context, ev *domain.PassEvent) error
}

// PassData carries the wallet links; nil fields serialize as null.
type PassData struct {
	AppleWalletURL  *string `json:"appleWalletUrl"`
	GoogleWalletURL *string `json:"googleWalletUrl"`
}

// IDCardResult is returned once the ID card email has been sent.
type IDCardResult struct {
	PassData    PassData
	Platform    pass.Platform
	WalletLink  string
	Degraded    bool
	FailedStage pass.Stage
}

type Service interface {
	SendIDCard(ctx context.Context, email string, student domain.StudentProfile, userAgent string) (*IDCardResult, error)
	DownloadPass(ctx context.Context, passID string) (io.ReadCloser, error)
}

// Deps groups the collaborators. Archive and Events are optional.
type Deps struct {
	Pipeline        Provisioner
	Dispatcher      Dispatcher
	Vendor          PassFetcher
	Archive         Archive
	Events          EventPublisher
	Clock           clock.Clock
	FallbackImage   string
	DownloadTimeout time.Duration
}

type service struct {
	pipeline        Provisioner
	dispatcher      Dispatcher
	vendor          PassFetcher
	archive         Archive
	events          EventPublisher
	clock           clock.Clock
	fallbackImage   string
	downloadTimeout time.Duration
}

func NewService(d Deps) Service {
	s := &service{
		pipeline:        d.Pipeline,
		dispatcher:      d.Dispatcher,
		vendor:          d.Vendor,
		archive:         d.Archive,
		events:          d.Events,
		clock:           d.Clock,
		fallbackImage:   d.FallbackImage,
		downloadTimeout: d.DownloadTimeout,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.fallbackImage == "" {
		s.fallbackImage = DefaultFallbackImageURL
	}
	if s.downloadTimeout <= 0 {
		s.downloadTimeout = pass.DefaultTimeouts.Download
	}
	return s
}

// SendIDCard provisions a pass, renders the card and emails it. Provisioning
// failures degrade the result; only a failed email is returned as an error.
func (s *service) SendIDCard(ctx context.Context, email string, student domain.StudentProfile, userAgent string) (*IDCardResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(student.Name) == "" || strings.TrimSpace(student.StudentID) == "" {
		return nil, fmt.Errorf("email, name and studentId are required: %w", domain.ErrBadRequest)
	}
	log := logging.FromContext(ctx).With("email", email, "student_id", student.StudentID)

	imageURL := strings.TrimSpace(student.ImageURL)
	if imageURL == "" {
		imageURL = s.fallbackImage
	}

	res := s.pipeline.Run(ctx, student, imageURL)

	var attachment *domain.Attachment
	if res.Record != nil && len(res.Artifact) > 0 {
		attachment = &domain.Attachment{Content: res.Artifact}
		s.archivePass(ctx, log, res.Record.PassID, res.Artifact)
	}
	s.publish(ctx, log, email, student.StudentID, res)

	body := template.Render(emailTemplate, tokensFor(student, imageURL, res.Record))
	if err := s.dispatcher.Send(ctx, email, idCardSubject, body, attachment); err != nil {
		return nil, err
	}

	out := &IDCardResult{Degraded: res.Degraded(), FailedStage: res.Stage}
	if res.Record != nil {
		out.PassData = PassData{
			AppleWalletURL:  nonEmpty(res.Record.AppleWalletURL),
			GoogleWalletURL: nonEmpty(res.Record.GoogleWalletURL),
		}
	}
	out.Platform, out.WalletLink = pass.ChooseWalletLink(userAgent, res.Record)
	log.Info("id card sent", "degraded", out.Degraded, "platform", out.Platform)
	return out, nil
}

// DownloadPass serves the archived pass when present, otherwise proxies the vendor.
func (s *service) DownloadPass(ctx context.Context, passID string) (io.ReadCloser, error) {
	passID = strings.TrimSpace(passID)
	if passID == "" {
		return nil, fmt.Errorf("pass id required: %w", domain.ErrBadRequest)
	}
	log := logging.FromContext(ctx).With("pass_id", passID)

	if s.archive != nil {
		rc, err := s.archive.Open(ctx, passID)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("pass archive read failed, falling back to vendor", "err", err)
		}
	}

	dlCtx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()
	data, err := s.vendor.DownloadPass(dlCtx, passID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	s.archivePass(ctx, log, passID, data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *service) archivePass(ctx context.Context, log *slog.Logger, passID string, data []byte) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Put(ctx, passID, data); err != nil {
		log.Warn("failed to archive pass", "pass_id", passID, "err", err)
	}
}

func (s *service) publish(ctx context.Context, log *slog.Logger, email, studentID string, res *pass.Result) {
	if s.events == nil {
		return
	}
	ev := &domain.PassEvent{
		EventID:    id.New(),
		Type:       domain.PassEventProvisioned,
		Email:      email,
		StudentID:  studentID,
		OccurredAt: s.clock.Now().UTC(),
	}
	if res.Record != nil {
		ev.PassID = res.Record.PassID
	}
	if res.Degraded() {
		ev.Type = domain.PassEventDegraded
		ev.FailedStage = string(res.Stage)
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish pass event", "type", ev.Type, "err", err)
	}
}

// BarcodeURL returns the Code128 image URL for a student id.
func BarcodeURL(studentID string) string {
	return fmt.Sprintf(barcodeURLFormat, url.QueryEscape(studentID))
}

// tokensFor escapes client-supplied values; the barcode and wallet URLs are built
// from escaped ids or returned by the vendor.
func tokensFor(student domain.StudentProfile, imageURL string, rec *domain.PassRecord) template.Tokens {
	t := template.Tokens{
		template.TokenName:       html.EscapeString(student.Name),
		template.TokenStudentID:  html.EscapeString(student.StudentID),
		template.TokenMajor:      html.EscapeString(student.Major),
		template.TokenImageURL:   html.EscapeString(imageURL),
		template.TokenBarcodeURL: BarcodeURL(student.StudentID),
	}
	if rec != nil {
		t[template.TokenAppleWalletURL] = rec.AppleWalletURL
		t[template.TokenGoogleWalletURL] = rec.GoogleWalletURL
	}
	return t
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
