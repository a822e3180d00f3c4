package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// FileAnalyzer is satisfied by *pipeline.Processor.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, path string) (entity.Analysis, error)
}

// ProcessorQueue analyzes invoice files on a fixed pool of workers.
type ProcessorQueue struct {
	proc     FileAnalyzer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

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

// WithResultHandler registers fn to receive every result. fn runs on the worker goroutine
// and must be safe for concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc FileAnalyzer, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
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
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		analysis, err := q.proc.AnalyzeFile(ctx, job.Path)
		cancel()

		res := Result{Job: job, Analysis: analysis, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "job_id", job.ID, "error", err)
		} else {
			q.logger.Info("queue.job.ok", "worker_id", workerID, "path", job.Path, "invoice_id", analysis.InvoiceID,
				"elapsed_ms", res.Elapsed.Milliseconds())
		}
		if q.onResult != nil {
			q.onResult(res)
		}
	}

	q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "path", job.Path, "job_id", job.ID)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
