// Package pass provisions a wallet pass for a student through the pass vendor.
package pass

import (
	"context"
	"log/slog"
	"time"

	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/id"
	"github.com/virtual-id-api/internal/pkg/logging"
	"github.com/virtual-id-api/internal/pkg/metrics"
)

// ImageFetcher downloads the source photo.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Vendor is the pass vendor API.
type Vendor interface {
	UploadImage(ctx context.Context, image []byte) (domain.PassImageHandle, error)
	CreatePass(ctx context.Context, req *domain.PassRequest) (*domain.PassRecord, error)
	DownloadPass(ctx context.Context, passID string) ([]byte, error)
}

// Timeouts bounds each step individually.
type Timeouts struct {
	Fetch    time.Duration
	Upload   time.Duration
	Create   time.Duration
	Download time.Duration
}

// DefaultTimeouts are used for any zero field passed to NewPipeline.
var DefaultTimeouts = Timeouts{
	Fetch:    5 * time.Second,
	Upload:   10 * time.Second,
	Create:   10 * time.Second,
	Download: 10 * time.Second,
}

// Result is what survived a pipeline run.
type Result struct {
	RunID string
	// Record is nil unless every stage succeeded.
	Record *domain.PassRecord
	// Artifact is nil unless the pass file was downloaded.
	Artifact []byte
	// Stage is the first failed stage, StageNone on full success.
	Stage Stage
	Err   error
}

// Degraded reports whether any stage failed.
func (r *Result) Degraded() bool { return r.Err != nil }

type Pipeline struct {
	fetcher    ImageFetcher
	vendor     Vendor
	timeouts   Timeouts
	attachFile bool
}

// NewPipeline builds a pipeline. When attachFile is false the download step never runs.
func NewPipeline(fetcher ImageFetcher, vendor Vendor, timeouts Timeouts, attachFile bool) *Pipeline {
	if timeouts.Fetch <= 0 {
		timeouts.Fetch = DefaultTimeouts.Fetch
	}
	if timeouts.Upload <= 0 {
		timeouts.Upload = DefaultTimeouts.Upload
	}
	if timeouts.Create <= 0 {
		timeouts.Create = DefaultTimeouts.Create
	}
	if timeouts.Download <= 0 {
		timeouts.Download = DefaultTimeouts.Download
	}
	return &Pipeline{fetcher: fetcher, vendor: vendor, timeouts: timeouts, attachFile: attachFile}
}

// AttachesFile reports whether runs include the download step.
func (p *Pipeline) AttachesFile() bool { return p.attachFile }

// Run executes fetch, upload, create and (optionally) download in order.
// Stage failures are logged and reported in the Result, never returned.
// Any failed stage, download included, leaves the Result without a Record.
func (p *Pipeline) Run(ctx context.Context, student domain.StudentProfile, imageURL string) *Result {
	runID := id.New()
	log := logging.FromContext(ctx).With("run_id", runID, "student_id", student.StudentID)

	image := step(ctx, log, Ok(imageURL), StageFetch, p.timeouts.Fetch, p.fetcher.Fetch)
	handle := step(ctx, log, image, StageUpload, p.timeouts.Upload, p.vendor.UploadImage)
	created := step(ctx, log, handle, StageCreate, p.timeouts.Create,
		func(ctx context.Context, h domain.PassImageHandle) (*domain.PassRecord, error) {
			return p.vendor.CreatePass(ctx, NewPassRequest(student, h))
		})

	res := &Result{RunID: runID, Stage: created.Stage(), Err: created.Err()}
	rec, ok := created.Value()
	if ok {
		res.Record = rec
	}

	if p.attachFile {
		artifact := step(ctx, log, created, StageDownload, p.timeouts.Download,
			func(ctx context.Context, rec *domain.PassRecord) ([]byte, error) {
				return p.vendor.DownloadPass(ctx, rec.PassID)
			})
		if data, ok := artifact.Value(); ok {
			res.Artifact = data
		} else if res.Err == nil {
			log.Warn("dropping created pass after failed download", "pass_id", rec.PassID)
			res.Record = nil
			res.Stage, res.Err = artifact.Stage(), artifact.Err()
		}
	}

	if res.Degraded() {
		log.Warn("pass provisioning degraded", "stage", res.Stage)
	} else {
		log.Info("pass provisioned", "pass_id", res.Record.PassID)
	}
	return res
}

// step chains fn with Then and records the stage outcome.
func step[In, Out any](ctx context.Context, log *slog.Logger, in Outcome[In], stage Stage, timeout time.Duration,
	fn func(context.Context, In) (Out, error)) Outcome[Out] {
	out := Then(ctx, in, stage, timeout, fn)
	switch {
	case in.Err() != nil:
		metrics.IncPipelineStage(string(stage), "skipped")
	case out.Err() != nil:
		metrics.IncPipelineStage(string(stage), "failure")
		log.Error("pass pipeline stage failed", "stage", stage, "err", out.Err())
	default:
		metrics.IncPipelineStage(string(stage), "success")
	}
	return out
}
