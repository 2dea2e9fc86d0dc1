package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/metrics"
)

// Recorder defaults.
const (
	DefaultRecorderQueue   = 1024
	DefaultRecorderTimeout = 2 * time.Second
)

// Job is a unit of background recording work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Recorder runs metrics and popularity writes off the response path.
// The queue is bounded: when it is full, new jobs are dropped.
type Recorder struct {
	jobs    chan Job
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorder starts a recorder with a single worker.
func NewRecorder(queue int, timeout time.Duration, logger *zap.Logger) *Recorder {
	if queue <= 0 {
		queue = DefaultRecorderQueue
	}
	if timeout <= 0 {
		timeout = DefaultRecorderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		jobs:    make(chan Job, queue),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit enqueues a job without blocking. It reports whether the job was accepted.
func (r *Recorder) Submit(job Job) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.jobs <- job:
		return true
	default:
		metrics.RecorderDroppedTotal.Inc()
		r.logger.Warn("recorder queue full, dropping job", zap.String("job", job.Name))
		return false
	}
}

// Close stops accepting jobs and waits until queued jobs finish or ctx is done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain recorder: %w", ctx.Err())
	}
}

func (r *Recorder) loop() {
	defer close(r.done)
	for job := range r.jobs {
		r.run(job)
	}
}

func (r *Recorder) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("background recording panicked",
				zap.String("job", job.Name), zap.Any("panic", p), zap.Stack("stack"))
		}
	}()
	if err := job.Run(ctx); err != nil {
		r.logger.Warn("background recording failed", zap.String("job", job.Name), zap.Error(err))
	}
}
