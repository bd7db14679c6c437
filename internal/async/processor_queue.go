package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Processor is the part of pipeline.Controller the workers drive.
type Processor interface {
	Process(ctx context.Context, docID uuid.UUID) (pipeline.State, error)
	Reprocess(ctx context.Context, docID uuid.UUID) (pipeline.State, error)
}

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch       chan Job
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.handle(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) handle(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	run := q.proc.Process
	if job.Reprocess {
		run = q.proc.Reprocess
	}
	st, err := run(ctx, job.DocumentID)
	if err != nil {
		q.logger.Error("processing failed",
			"worker_id", workerID,
			"document_id", job.DocumentID,
			"stage", st.FailedAt,
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
			"error", err)
		return
	}
	q.logger.Info("processed invoice", "worker_id", workerID, "document_id", job.DocumentID, "chunks", st.Chunks)
}

// Enqueue blocks while the buffer is full until ctx is done or Shutdown begins.
// q.ch is only closed under the write lock, so sending under the read lock is safe.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued invoice for processing", "document_id", job.DocumentID, "reprocess", job.Reprocess)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	// release senders blocked on a full buffer before taking the write lock
	q.stopOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-drained:
		q.logger.Info("queue drained, shutdown complete")
	}
}
