package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Task is one unit of periodic work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes its tasks on every tick and whenever the wake channel
// fires. Task failures are logged and retried on the next pass.
type Runner struct {
	interval time.Duration
	tasks    []Task
	wake     <-chan struct{}
	tracing  bool
	logger   *slog.Logger
}

type Option func(*Runner)

// WithWake runs the tasks early when ch fires.
func WithWake(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.wake = ch
	}
}

// WithTracing wraps every pass in an X-Ray segment.
func WithTracing(enabled bool) Option {
	return func(r *Runner) {
		r.tracing = enabled
	}
}

func NewRunner(interval time.Duration, logger *slog.Logger, tasks []Task, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		interval: interval,
		tasks:    tasks,
		logger:   logger.With("component", "worker"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.RunOnce(ctx)
		case <-r.wake:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes every task once, in order.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, task := range r.tasks {
		if ctx.Err() != nil {
			return
		}
		r.runTask(ctx, task)
	}
}

func (r *Runner) runTask(ctx context.Context, task Task) {
	var seg *xray.Segment
	if r.tracing {
		ctx, seg = xray.BeginSegment(ctx, "worker."+task.Name)
	}

	start := time.Now()
	err := task.Run(ctx)
	if seg != nil {
		if merr := seg.AddMetadata("duration_ms", time.Since(start).Milliseconds()); merr != nil {
			r.logger.Debug("failed to add segment metadata", "task", task.Name, "err", merr)
		}
		seg.Close(err)
	}
	if err != nil && ctx.Err() == nil {
		r.logger.Error("task failed", "task", task.Name, "err", err)
	}
}
