// Package batch drives worker-pool composition of many messages in one run,
// fanning the results out to sinks (the feed, the archive, a stream).
package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/compose"
	"github.com/ConnorBritain/pidgeon/internal/hl7"
	"github.com/ConnorBritain/pidgeon/internal/observability/metrics"
	"github.com/ConnorBritain/pidgeon/pkg/workerpool"
)

// Message is one composed message with its run metadata.
type Message struct {
	Index        int
	TriggerEvent string
	Seed         int64
	ControlID    string
	Text         string
}

// Sink receives composed messages. Sinks are called from the run's collector
// goroutine, one message at a time.
type Sink interface {
	Emit(ctx context.Context, msg Message) error
}

// RunSpec describes one batch run. Message i composes with seed BaseSeed+i,
// so a run is reproducible and any single message can be regenerated alone.
type RunSpec struct {
	TriggerEvent string
	Count        int
	BaseSeed     int64
	Options      []compose.Option
}

// Report summarizes a finished run.
type Report struct {
	Composed int
	Failed   int
	Elapsed  time.Duration
}

// Runner composes batches through a worker pool.
type Runner struct {
	composer *compose.Composer
	config   workerpool.Config
	sinks    []Sink
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewRunner creates a batch runner.
func NewRunner(composer *compose.Composer, cfg workerpool.Config, logger *zap.Logger, sinks ...Sink) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		composer: composer,
		config:   cfg,
		sinks:    sinks,
		logger:   logger,
	}
}

// WithMetrics attaches Prometheus metrics.
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run composes spec.Count messages and emits each to every sink. Individual
// compose or sink failures are counted, logged, and do not abort the run; the
// returned error covers setup failures only.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (Report, error) {
	if spec.Count <= 0 {
		return Report{}, fmt.Errorf("batch count must be positive, got %d", spec.Count)
	}

	start := time.Now()
	if r.metrics != nil {
		r.metrics.BatchActive.Inc()
		defer r.metrics.BatchActive.Dec()
	}

	pool, err := workerpool.New(r.config, r.composeTask, r.logger)
	if err != nil {
		return Report{}, err
	}
	pool.Start()

	go func() {
		for i := 0; i < spec.Count; i++ {
			task := &workerpool.Task{
				ID:      fmt.Sprintf("%s-%d", spec.TriggerEvent, i),
				Payload: taskSpec{spec: spec, index: i},
			}
			if err := pool.Submit(ctx, task); err != nil {
				r.logger.Warn("batch submit aborted", zap.Error(err))
				break
			}
		}
		pool.Stop()
	}()

	var report Report
	for result := range pool.Results() {
		if result.Err != nil {
			report.Failed++
			continue
		}
		msg := result.Data.(Message)
		report.Composed++
		for _, sink := range r.sinks {
			if err := sink.Emit(ctx, msg); err != nil {
				r.logger.Error("sink emit failed",
					zap.String("control_id", msg.ControlID),
					zap.Error(err))
			}
		}
	}

	report.Elapsed = time.Since(start)
	r.logger.Info("batch run finished",
		zap.String("trigger_event", spec.TriggerEvent),
		zap.Int("composed", report.Composed),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

type taskSpec struct {
	spec  RunSpec
	index int
}

func (r *Runner) composeTask(ctx context.Context, task *workerpool.Task) *workerpool.Result {
	ts := task.Payload.(taskSpec)
	seed := ts.spec.BaseSeed + int64(ts.index)

	opts := append([]compose.Option{}, ts.spec.Options...)
	opts = append(opts, compose.WithSeed(seed))

	text, err := r.composer.Compose(ctx, ts.spec.TriggerEvent, nil, opts...)
	if err != nil {
		return &workerpool.Result{TaskID: task.ID, Err: err}
	}

	return &workerpool.Result{
		TaskID: task.ID,
		Data: Message{
			Index:        ts.index,
			TriggerEvent: ts.spec.TriggerEvent,
			Seed:         seed,
			ControlID:    hl7.ControlID(text),
			Text:         text,
		},
	}
}

