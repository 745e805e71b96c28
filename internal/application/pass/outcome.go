package pass

import (
	"context"
	"fmt"
	"time"

	"github.com/virtual-id-api/internal/domain"
)

// Stage names a pipeline step.
type Stage string

const (
	StageNone     Stage = ""
	StageFetch    Stage = "fetch"
	StageUpload   Stage = "upload"
	StageCreate   Stage = "create"
	StageDownload Stage = "download"
)

var stageErrors = map[Stage]error{
	StageFetch:    domain.ErrFetch,
	StageUpload:   domain.ErrUpload,
	StageCreate:   domain.ErrCreation,
	StageDownload: domain.ErrDownload,
}

// Outcome is the result of one step: either a value or the first failure
// observed along the chain, tagged with the stage that produced it.
type Outcome[T any] struct {
	value T
	stage Stage
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] { return Outcome[T]{value: v} }

// Fail records a failure at stage. err is wrapped with the stage sentinel.
func Fail[T any](stage Stage, err error) Outcome[T] {
	if sentinel, ok := stageErrors[stage]; ok {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return Outcome[T]{stage: stage, err: err}
}

// Value returns the value and whether the outcome succeeded.
func (o Outcome[T]) Value() (T, bool) { return o.value, o.err == nil }

func (o Outcome[T]) Err() error { return o.err }

// Stage is the stage that failed, or StageNone.
func (o Outcome[T]) Stage() Stage { return o.stage }

// Then runs step on the value of in under its own timeout. When in already
// failed, step is skipped and the failure is carried forward unchanged.
func Then[In, Out any](ctx context.Context, in Outcome[In], stage Stage, timeout time.Duration,
	step func(context.Context, In) (Out, error)) Outcome[Out] {
	if in.err != nil {
		return Outcome[Out]{stage: in.stage, err: in.err}
	}

	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := step(stepCtx, in.value)
	if err != nil {
		return Fail[Out](stage, err)
	}
	return Ok(out)
}
