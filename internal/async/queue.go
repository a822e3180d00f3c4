package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one invoice file waiting to be analyzed.
type Job struct {
	ID          uuid.UUID
	Path        string
	SubmittedAt time.Time
}

// NewJob stamps a job for path.
func NewJob(path string) Job {
	return Job{ID: uuid.New(), Path: path, SubmittedAt: time.Now().UTC()}
}

// Result is handed to the result callback once per processed job.
type Result struct {
	Job      Job
	Analysis entity.Analysis
	Err      error
	Elapsed  time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
