package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

var (
	// ErrQueueFull is returned when the job queue has no free slot
	ErrQueueFull = errors.New("reconcile queue full")

	// ErrDispatcherStopped is returned when dispatching before Start or after Stop
	ErrDispatcherStopped = errors.New("reconcile dispatcher not running")
)

// Reconciler runs one reconciliation pass
type Reconciler interface {
	ReconcileChannel(ctx context.Context, channelID string) (*usecase.ReconcileResult, error)
}

// DispatcherConfig contains dispatcher configuration
type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration // 0 means no per-job limit
}

// DefaultDispatcherConfig returns default dispatcher configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:    2,
		QueueSize:  64,
		JobTimeout: 30 * time.Minute,
	}
}

type queuedJob struct {
	id  string
	job domain.ReconcileJob
}

// ReconcileDispatcher runs reconciliation jobs on a worker pool.
// Dispatch is one-way: callers get a job id back and never wait for the
// result, which only shows up in the logs.
type ReconcileDispatcher struct {
	reconciler Reconciler
	config     DispatcherConfig
	queue      chan queuedJob

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *log.Logger
}

// NewReconcileDispatcher creates a new reconcile dispatcher
func NewReconcileDispatcher(reconciler Reconciler, config DispatcherConfig) *ReconcileDispatcher {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	return &ReconcileDispatcher{
		reconciler: reconciler,
		config:     config,
		queue:      make(chan queuedJob, config.QueueSize),
		logger:     log.WithPrefix("Dispatcher"),
	}
}

// Start starts the workers
func (d *ReconcileDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.wg.Add(d.config.Workers)
	for i := 0; i < d.config.Workers; i++ {
		go d.worker()
	}

	d.logger.Info("Started", "workers", d.config.Workers, "queue", d.config.QueueSize)
}

// Stop cancels running jobs, drops queued ones and waits for the workers
func (d *ReconcileDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()

	// No producer can enqueue once running is false
	dropped := len(d.queue)
	for len(d.queue) > 0 {
		<-d.queue
	}
	d.logger.Info("Stopped", "dropped", dropped)
}

// Dispatch enqueues a job and returns its id without waiting
func (d *ReconcileDispatcher) Dispatch(ctx context.Context, job domain.ReconcileJob) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return "", ErrDispatcherStopped
	}

	q := queuedJob{id: uuid.NewString(), job: job}
	select {
	case d.queue <- q:
		d.logger.Info("Job queued", "job", q.id, "channel", job.ChannelID, "pattern", job.Pattern)
		return q.id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", ErrQueueFull
	}
}

func (d *ReconcileDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case q := <-d.queue:
			d.run(q)
		}
	}
}

func (d *ReconcileDispatcher) run(q queuedJob) {
	ctx := d.ctx
	if d.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := d.reconciler.ReconcileChannel(ctx, q.job.ChannelID)
	elapsed := time.Since(start).Round(time.Millisecond)

	switch {
	case result == nil && err != nil:
		d.logger.Error("Job failed", "job", q.id, "channel", q.job.ChannelID, "elapsed", elapsed, "err", err)
	case err != nil:
		d.logger.Warn("Job finished with errors", "job", q.id, "channel", q.job.ChannelID,
			"invited", result.InvitedCount, "failed", result.Failed, "elapsed", elapsed, "err", err)
	default:
		if result.Pattern != q.job.Pattern {
			d.logger.Debug("Convention changed since dispatch", "job", q.id, "queued", q.job.Pattern, "current", result.Pattern)
		}
		d.logger.Info("Job done", "job", q.id, "channel", q.job.ChannelID,
			"invited", result.InvitedCount, "failed", result.Failed, "elapsed", elapsed)
	}
}
