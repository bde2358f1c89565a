package refunds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultBatchSize   = 25
	defaultLease       = 2 * time.Minute
	defaultMaxAttempts = 6
	defaultBaseBackoff = 30 * time.Second
	defaultMaxBackoff  = time.Hour
)

// Repository is the refund outbox.
type Repository interface {
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.RefundRequest, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	ScheduleRetry(ctx context.Context, id string, next time.Time, lastErr string, at time.Time) error
	MarkFailed(ctx context.Context, id, lastErr string, item domain.ReviewItem, at time.Time) error
}

// Sink hands a refund to whoever actually moves the money. Dispatch must be
// safe to call more than once for the same request.
type Sink interface {
	Dispatch(ctx context.Context, req domain.RefundRequest) error
}

type Option func(*Dispatcher)

func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batch = n
		}
	}
}

func WithLease(lease time.Duration) Option {
	return func(d *Dispatcher) {
		if lease > 0 {
			d.lease = lease
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithBackoff(base, max time.Duration) Option {
	return func(d *Dispatcher) {
		if base > 0 {
			d.baseBackoff = base
		}
		if max >= d.baseBackoff {
			d.maxBackoff = max
		}
	}
}

// Dispatcher drains committed refund requests into a Sink. Requests that keep
// failing are retried with exponential backoff and eventually parked in the
// review queue.
type Dispatcher struct {
	repo   Repository
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger
	wake   chan struct{}

	batch       int
	lease       time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewDispatcher(repo Repository, sink Sink, clk clock.Clock, logger *slog.Logger, opts ...Option) *Dispatcher {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		repo:        repo,
		sink:        sink,
		clock:       clk,
		logger:      logger.With("component", "refund_dispatcher"),
		wake:        make(chan struct{}, 1),
		batch:       defaultBatchSize,
		lease:       defaultLease,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify asks for an early drain. It never blocks.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wake fires after Notify.
func (d *Dispatcher) Wake() <-chan struct{} {
	return d.wake
}

// DispatchDue claims due requests and sends each to the sink. It returns the
// number handed off successfully.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	now := d.clock.Now()
	due, err := d.repo.ClaimDue(ctx, now, now.Add(d.lease), d.batch)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, req := range due {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		if err := d.sink.Dispatch(ctx, req); err != nil {
			if ferr := d.fail(ctx, req, err); ferr != nil {
				return dispatched, ferr
			}
			continue
		}
		if err := d.repo.MarkDispatched(ctx, req.ID, d.clock.Now()); err != nil {
			return dispatched, err
		}
		d.logger.Info("refund dispatched",
			"refund_id", req.ID,
			"reservation_id", req.ReservationID,
			"method", req.Method,
			"amount", req.Amount,
		)
		dispatched++
	}
	return dispatched, nil
}

func (d *Dispatcher) fail(ctx context.Context, req domain.RefundRequest, cause error) error {
	now := d.clock.Now()
	if req.Attempts >= d.maxAttempts {
		intentID := req.IntentID
		item := domain.ReviewItem{
			ID:        uuid.NewString(),
			Kind:      domain.ReviewRefundFailed,
			Reference: req.ID,
			IntentID:  &intentID,
			Detail:    fmt.Sprintf("refund of %d for reservation %s gave up after %d attempts: %v", req.Amount, req.ReservationID, req.Attempts, cause),
			CreatedAt: now,
		}
		d.logger.Error("refund abandoned", "refund_id", req.ID, "attempts", req.Attempts, "err", cause)
		return d.repo.MarkFailed(ctx, req.ID, cause.Error(), item, now)
	}

	next := now.Add(d.backoff(req.Attempts))
	d.logger.Warn("refund dispatch failed", "refund_id", req.ID, "attempts", req.Attempts, "retry_at", next, "err", cause)
	return d.repo.ScheduleRetry(ctx, req.ID, next, cause.Error(), now)
}

// backoff doubles per attempt, starting at the base delay.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.baseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= d.maxBackoff {
			return d.maxBackoff
		}
	}
	return delay
}
