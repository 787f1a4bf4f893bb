package remote

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/brain-jar/internal/logger"
)

// DefaultQueueSize bounds the tasks a Dispatcher holds, running or waiting.
const DefaultQueueSize = 1024

// Dispatcher runs remote writes in the background so the local write path
// never waits on the network. At most limit tasks run at once; the rest wait
// their turn. Each task gets one attempt with its own timeout; failures are
// logged, never retried. A task is dropped only when queueSize tasks are
// already outstanding.
type Dispatcher struct {
	g         errgroup.Group
	pending   sync.WaitGroup
	timeout   time.Duration
	queueSize int64
	log       *logger.Logger

	outstanding atomic.Int64
	dropped     atomic.Int64
	failed      atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize bounds the outstanding tasks. Values below the concurrency
// limit are raised to it.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queueSize = int64(n) }
}

// NewDispatcher allows at most limit concurrent tasks, each bounded by timeout.
func NewDispatcher(limit int, timeout time.Duration, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	if limit <= 0 {
		limit = 8
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{timeout: timeout, log: log, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.queueSize < int64(limit) {
		d.queueSize = int64(limit)
	}
	d.g.SetLimit(limit)
	return d
}

// Go schedules fn without blocking. It reports false when the task was
// dropped because the queue is full.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) bool {
	if d.outstanding.Add(1) > d.queueSize {
		d.outstanding.Add(-1)
		d.dropped.Add(1)
		d.log.Warn("remote task dropped, queue full", "task", name, "queue_size", d.queueSize)
		return false
	}

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		// blocks until a slot frees up
		d.g.Go(func() error {
			defer d.outstanding.Add(-1)
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				d.failed.Add(1)
				d.log.Warn("remote task failed", "task", name, "error", err)
			}
			// errors are reported above; returning nil keeps the group usable
			return nil
		})
	}()
	return true
}

// Wait blocks until every scheduled task has finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
	_ = d.g.Wait()
}

// Outstanding reports the tasks running or waiting for a slot.
func (d *Dispatcher) Outstanding() int64 { return d.outstanding.Load() }

// Dropped reports how many tasks were rejected because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed reports how many tasks returned an error.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }
