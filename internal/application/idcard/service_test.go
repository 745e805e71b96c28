package idcard

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/virtual-id-api/internal/application/pass"
	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/clock"
)

// --- mocks ---

type mockProvisioner struct{ mock.Mock }

func (m *mockProvisioner) Run(ctx context.Context, student domain.StudentProfile, imageURL string) *pass.Result {
	return m.Called(ctx, student, imageURL).Get(0).(*pass.Result)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Send(ctx context.Context, recipient, subject, htmlBody string, attachment *domain.Attachment) error {
	return m.Called(ctx, recipient, subject, htmlBody, attachment).Error(0)
}

type mockVendor struct{ mock.Mock }

func (m *mockVendor) DownloadPass(ctx context.Context, passID string) ([]byte, error) {
	args := m.Called(ctx, passID)
	if b, _ := args.Get(0).([]byte); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockArchive struct{ mock.Mock }

func (m *mockArchive) Put(ctx context.Context, passID string, data []byte) (string, error) {
	args := m.Called(ctx, passID, data)
	return args.String(0), args.Error(1)
}
func (m *mockArchive) Open(ctx context.Context, passID string) (io.ReadCloser, error) {
	args := m.Called(ctx, passID)
	if rc, _ := args.Get(0).(io.ReadCloser); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Publish(ctx context.Context, ev *domain.PassEvent) error {
	return m.Called(ctx, ev).Error(0)
}

var (
	student = domain.StudentProfile{
		Name:           "Ada Lovelace",
		StudentID:      "T00123456",
		Major:          "Computer Science",
		Classification: "Senior",
		ImageURL:       "  https://img.example/ada.png  ",
	}
	record = &domain.PassRecord{
		PassID:          "p-1",
		AppleWalletURL:  "https://www.pass2u.net/d/p-1",
		GoogleWalletURL: "https://www.pass2u.net/d/p-1",
	}
	iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
)

func TestSendIDCard_FullSuccess(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	p.On("Run", mock.Anything, student, "https://img.example/ada.png").
		Return(&pass.Result{RunID: "r1", Record: record})
	d.On("Send", mock.Anything, "a@b.com", "Your TSU Virtual ID Card", mock.MatchedBy(func(html string) bool {
		return strings.Contains(html, "Ada Lovelace") &&
			strings.Contains(html, `href="https://www.pass2u.net/d/p-1"`) &&
			strings.Contains(html, "barcode.tec-it.com/barcode.ashx?data=T00123456&code=Code128") &&
			!strings.Contains(html, "{{")
	}), (*domain.Attachment)(nil)).Return(nil)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	res, err := svc.SendIDCard(context.Background(), "a@b.com", student, iphoneUA)
	require.NoError(t, err)

	require.NotNil(t, res.PassData.AppleWalletURL)
	assert.Equal(t, record.AppleWalletURL, *res.PassData.AppleWalletURL)
	assert.Equal(t, pass.PlatformApple, res.Platform)
	assert.Equal(t, record.AppleWalletURL, res.WalletLink)
	assert.False(t, res.Degraded)
	p.AssertExpectations(t)
	d.AssertExpectations(t)
}

func TestSendIDCard_UploadFailure_StillSendsEmail(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pass.Result{RunID: "r1", Stage: pass.StageUpload, Err: domain.ErrUpload})
	d.On("Send", mock.Anything, "a@b.com", "Your TSU Virtual ID Card", mock.MatchedBy(func(html string) bool {
		return strings.Contains(html, `href="#"`)
	}), (*domain.Attachment)(nil)).Return(nil)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	res, err := svc.SendIDCard(context.Background(), "a@b.com", student, iphoneUA)
	require.NoError(t, err)

	assert.Nil(t, res.PassData.AppleWalletURL)
	assert.Nil(t, res.PassData.GoogleWalletURL)
	assert.True(t, res.Degraded)
	assert.Equal(t, pass.StageUpload, res.FailedStage)
	assert.Equal(t, pass.PlatformNone, res.Platform)
	assert.Empty(t, res.WalletLink)
	d.AssertExpectations(t)
}

func TestSendIDCard_ArtifactAttachedArchivedAndPublished(t *testing.T) {
	p, d, a, ev := &mockProvisioner{}, &mockDispatcher{}, &mockArchive{}, &mockEvents{}
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pass.Result{RunID: "r1", Record: record, Artifact: []byte("PK")})
	d.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything, mock.MatchedBy(func(att *domain.Attachment) bool {
		return att != nil && string(att.Content) == "PK"
	})).Return(nil)
	a.On("Put", mock.Anything, "p-1", []byte("PK")).Return("s3://b/passes/p-1.pkpass", nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e *domain.PassEvent) bool {
		return e.Type == domain.PassEventProvisioned && e.PassID == "p-1" && e.EventID != "" &&
			e.OccurredAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	})).Return(nil)

	svc := NewService(Deps{
		Pipeline:   p,
		Dispatcher: d,
		Archive:    a,
		Events:     ev,
		Clock:      clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", student, "")
	require.NoError(t, err)
	d.AssertExpectations(t)
	a.AssertExpectations(t)
	ev.AssertExpectations(t)
}

func TestSendIDCard_DegradedEventAndSideFailuresIgnored(t *testing.T) {
	p, d, ev := &mockProvisioner{}, &mockDispatcher{}, &mockEvents{}
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pass.Result{RunID: "r1", Stage: pass.StageFetch, Err: domain.ErrFetch})
	d.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ev.On("Publish", mock.Anything, mock.MatchedBy(func(e *domain.PassEvent) bool {
		return e.Type == domain.PassEventDegraded && e.FailedStage == "fetch" && e.PassID == ""
	})).Return(errors.New("topic gone"))

	svc := NewService(Deps{Pipeline: p, Dispatcher: d, Events: ev})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", student, "")
	require.NoError(t, err)
	ev.AssertExpectations(t)
}

func TestSendIDCard_FallbackImage(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	noPhoto := student
	noPhoto.ImageURL = "   "
	p.On("Run", mock.Anything, noPhoto, DefaultFallbackImageURL).Return(&pass.Result{Record: record})
	d.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(html string) bool {
		return strings.Contains(html, DefaultFallbackImageURL)
	}), mock.Anything).Return(nil)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", noPhoto, "")
	require.NoError(t, err)
	p.AssertExpectations(t)
	d.AssertExpectations(t)
}

func TestSendIDCard_MissingMajorRendersEmpty(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	noMajor := student
	noMajor.Major = ""
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&pass.Result{Record: record})
	d.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(html string) bool {
		return strings.Contains(html, "Major: </p>")
	}), mock.Anything).Return(nil)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", noMajor, "")
	require.NoError(t, err)
	d.AssertExpectations(t)
}

func TestSendIDCard_DeliveryFailureIsFatal(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&pass.Result{Record: record})
	d.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrDelivery)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", student, "")
	assert.True(t, errors.Is(err, domain.ErrDelivery))
}

func TestSendIDCard_MissingFields(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	svc := NewService(Deps{Pipeline: p, Dispatcher: d})

	_, err := svc.SendIDCard(context.Background(), "", student, "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	_, err = svc.SendIDCard(context.Background(), "a@b.com", domain.StudentProfile{Name: "Ada"}, "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	p.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestBarcodeURL_EscapesID(t *testing.T) {
	u := BarcodeURL("T 12/3")
	assert.True(t, strings.HasPrefix(u, "https://barcode.tec-it.com/barcode.ashx?data=T+12%2F3&code=Code128"))
	assert.Contains(t, u, "color=%23000000&bgcolor=%23ffffff")
	assert.True(t, strings.HasSuffix(u, "istextdrawn=false"))
}

// --- DownloadPass ---

func TestDownloadPass_FromArchive(t *testing.T) {
	a, v := &mockArchive{}, &mockVendor{}
	a.On("Open", mock.Anything, "p-1").Return(io.NopCloser(strings.NewReader("archived")), nil)

	svc := NewService(Deps{Vendor: v, Archive: a})
	rc, err := svc.DownloadPass(context.Background(), "p-1")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "archived", string(body))
	v.AssertNotCalled(t, "DownloadPass", mock.Anything, mock.Anything)
}

func TestDownloadPass_ArchiveMissFallsBackAndCaches(t *testing.T) {
	a, v := &mockArchive{}, &mockVendor{}
	a.On("Open", mock.Anything, "p-1").Return(nil, domain.ErrNotFound)
	v.On("DownloadPass", mock.Anything, "p-1").Return([]byte("vendor"), nil)
	a.On("Put", mock.Anything, "p-1", []byte("vendor")).Return("s3://b/passes/p-1.pkpass", nil)

	svc := NewService(Deps{Vendor: v, Archive: a})
	rc, err := svc.DownloadPass(context.Background(), "p-1")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "vendor", string(body))
	a.AssertExpectations(t)
}

func TestDownloadPass_VendorNotFound(t *testing.T) {
	v := &mockVendor{}
	v.On("DownloadPass", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	svc := NewService(Deps{Vendor: v})
	_, err := svc.DownloadPass(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDownloadPass_VendorFailure(t *testing.T) {
	v := &mockVendor{}
	v.On("DownloadPass", mock.Anything, "p-1").Return(nil, errors.New("status 500"))

	svc := NewService(Deps{Vendor: v})
	_, err := svc.DownloadPass(context.Background(), "p-1")
	assert.True(t, errors.Is(err, domain.ErrDownload))
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestDownloadPass_EmptyID(t *testing.T) {
	svc := NewService(Deps{Vendor: &mockVendor{}})
	_, err := svc.DownloadPass(context.Background(), " ")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- provisioning through the real pipeline ---

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) ([]byte, error) { return []byte("PNG"), nil }

// downloadFailingVendor creates passes but cannot serve their files.
type downloadFailingVendor struct{}

func (downloadFailingVendor) UploadImage(context.Context, []byte) (domain.PassImageHandle, error) {
	return "abc123", nil
}

func (downloadFailingVendor) CreatePass(context.Context, *domain.PassRequest) (*domain.PassRecord, error) {
	return record, nil
}

func (downloadFailingVendor) DownloadPass(context.Context, string) ([]byte, error) {
	return nil, errors.New("vendor 500")
}

func TestSendIDCard_DownloadFailure_NullsPassData(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Send", mock.Anything, "a@b.com", "Your TSU Virtual ID Card", mock.MatchedBy(func(html string) bool {
		return strings.Contains(html, `href="#"`) && !strings.Contains(html, record.AppleWalletURL)
	}), (*domain.Attachment)(nil)).Return(nil)

	pipeline := pass.NewPipeline(stubFetcher{}, downloadFailingVendor{}, pass.Timeouts{}, true)
	svc := NewService(Deps{Pipeline: pipeline, Dispatcher: d})

	res, err := svc.SendIDCard(context.Background(), "a@b.com", student, iphoneUA)
	require.NoError(t, err)

	assert.Nil(t, res.PassData.AppleWalletURL)
	assert.Nil(t, res.PassData.GoogleWalletURL)
	assert.True(t, res.Degraded)
	assert.Equal(t, pass.StageDownload, res.FailedStage)
	assert.Equal(t, pass.PlatformNone, res.Platform)
	assert.Empty(t, res.WalletLink)
	d.AssertExpectations(t)
}

func TestSendIDCard_EscapesStudentMarkup(t *testing.T) {
	p, d := &mockProvisioner{}, &mockDispatcher{}
	hostile := student
	hostile.Name = `<script>alert("x")</script>`
	hostile.Major = `<a href="https://evil.example">Click</a>`
	p.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(&pass.Result{Record: record})
	d.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(body string) bool {
		return !strings.Contains(body, "<script>") &&
			strings.Contains(body, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;") &&
			!strings.Contains(body, `href="https://evil.example"`)
	}), mock.Anything).Return(nil)

	svc := NewService(Deps{Pipeline: p, Dispatcher: d})
	_, err := svc.SendIDCard(context.Background(), "a@b.com", hostile, "")
	require.NoError(t, err)
	d.AssertExpectations(t)
}
