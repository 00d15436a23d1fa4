// Package workerpool provides a bounded worker pool for concurrent message
// composition. Jobs are deterministic, so there is no retry machinery: a job
// that fails once fails identically every time.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work.
type Task struct {
	ID      string
	Payload any
}

// Result is the outcome of one task.
type Result struct {
	TaskID string
	Data   any
	Err    error
}

// WorkerFunc processes one task.
type WorkerFunc func(ctx context.Context, task *Task) *Result

// Config holds pool settings.
type Config struct {
	Workers   int
	QueueSize int
	// ShutdownTimeout bounds how long Stop waits for in-flight tasks.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns settings sized for batch composition: composition is
// CPU-bound, so the worker count stays modest.
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		QueueSize:       1024,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Pool runs tasks across a fixed set of workers.
type Pool struct {
	config     Config
	workerFunc WorkerFunc
	logger     *zap.Logger

	tasks   chan *Task
	results chan *Result
	wg      sync.WaitGroup

	// stop rejects new submissions; ctx is canceled only once the queue has
	// drained (or the shutdown timeout fires), so queued tasks still run
	// under a live context. submitMu keeps Submit from racing the queue
	// close in Stop.
	stop     chan struct{}
	stopOnce sync.Once
	submitMu sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc

	submitted int64
	completed int64
	failed    int64
}

// New creates a pool; Start launches the workers.
func New(cfg Config, fn WorkerFunc, logger *zap.Logger) (*Pool, error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		tasks:      make(chan *Task, cfg.QueueSize),
		results:    make(chan *Result, cfg.QueueSize),
		stop:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit queues a task, blocking while the queue is full. Returns an error
// once the pool is stopping.
func (p *Pool) Submit(ctx context.Context, task *Task) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	// stop and the queue are closed together under the write lock, so once
	// this check passes the send below cannot hit a closed channel.
	select {
	case <-p.stop:
		return fmt.Errorf("pool is shutting down")
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		atomic.AddInt64(&p.submitted, 1)
		return nil
	}
}

// Results returns the result channel. Closed after Stop once all workers
// have drained.
func (p *Pool) Results() <-chan *Result {
	return p.results
}

// Stop closes the queue and waits for it to drain, up to the configured
// timeout. The result channel is closed only after the last worker exits,
// never while sends are still possible.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.submitMu.Lock()
		close(p.stop)
		close(p.tasks)
		p.submitMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("worker pool shutdown timed out, canceling in-flight tasks")
		p.cancel()
		go func() {
			<-done
			close(p.results)
		}()
		return
	}
	p.cancel()
	close(p.results)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		result := p.workerFunc(p.ctx, task)
		if result.Err != nil {
			atomic.AddInt64(&p.failed, 1)
			p.logger.Error("task failed",
				zap.String("task_id", task.ID),
				zap.Int("worker_id", id),
				zap.Error(result.Err))
		} else {
			atomic.AddInt64(&p.completed, 1)
		}
		p.results <- result
	}
}

// Stats holds pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Workers   int
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&p.submitted),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		Workers:   p.config.Workers,
	}
}
