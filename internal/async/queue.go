package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job asks a worker to run the pipeline for one stored invoice.
type Job struct {
	DocumentID  uuid.UUID
	Reprocess   bool // drop existing chunks before running
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
