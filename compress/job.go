package compress

import (
	"context"
	"fmt"

	"github.com/meigma/arkive"
)

// Step is a unit of work that produces the content of a target.
// arkive.Job and Job both satisfy it.
type Step interface {
	Execute(ctx context.Context, dest arkive.Target) error
}

// Job compresses either a plain resource or the output of an upstream
// step. With an upstream step, the step runs against a compressed view of
// the destination, so "build a tar, then gzip it" needs no intermediate file.
type Job struct {
	Packer *Packer

	// Resource is the source when Upstream is nil.
	Resource arkive.Resource

	// Upstream produces the uncompressed content.
	Upstream Step
}

// interface guard
var (
	_ Step = (*Job)(nil)
	_ Step = (*arkive.Job)(nil)
)

// Execute runs the job against dest.
func (j *Job) Execute(ctx context.Context, dest arkive.Target) error {
	if j.Packer == nil {
		return arkive.ErrNoFormat
	}
	switch {
	case j.Upstream != nil && j.Resource != nil:
		return fmt.Errorf("%w: job has both a resource and an upstream step", arkive.ErrConflictingSource)
	case j.Upstream != nil:
		return j.Upstream.Execute(ctx, j.Packer.Target(dest))
	default:
		_, err := j.Packer.Pack(ctx, dest, j.Resource)
		return err
	}
}
