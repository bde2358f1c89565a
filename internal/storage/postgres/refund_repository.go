package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refundColumns = `id, reservation_id, intent_id, amount, method, status, attempts,
	next_attempt_at, last_error, created_at, updated_at`

// RefundRepository is the outbox the refund dispatcher drains.
type RefundRepository struct {
	conn
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{conn: conn{pool: pool}}
}

// ClaimDue leases up to limit pending requests whose next attempt is due.
// Rows locked by a concurrent dispatcher are skipped, and the lease pushes
// next_attempt_at forward so a crashed dispatcher's rows come back later.
func (r *RefundRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.RefundRequest, error) {
	const stmt = `
UPDATE refund_requests
SET attempts = attempts + 1, next_attempt_at = $2, updated_at = $1
WHERE id IN (
	SELECT id FROM refund_requests
	WHERE status = 'pending' AND next_attempt_at <= $1
	ORDER BY next_attempt_at
	LIMIT $3
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + refundColumns

	rows, err := r.query(ctx, stmt, now, leaseUntil, limit)
	if err != nil {
		return nil, fmt.Errorf("claim refund requests: %w", err)
	}
	defer rows.Close()

	var out []domain.RefundRequest
	for rows.Next() {
		var req domain.RefundRequest
		err := rows.Scan(
			&req.ID,
			&req.ReservationID,
			&req.IntentID,
			&req.Amount,
			&req.Method,
			&req.Status,
			&req.Attempts,
			&req.NextAttemptAt,
			&req.LastError,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan refund request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim refund requests: %w", err)
	}
	return out, nil
}

func (r *RefundRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	const stmt = `
UPDATE refund_requests
SET status = 'dispatched', last_error = '', updated_at = $2
WHERE id = $1 AND status = 'pending'`

	if _, err := r.exec(ctx, stmt, id, at); err != nil {
		return fmt.Errorf("mark refund dispatched: %w", err)
	}
	return nil
}

func (r *RefundRepository) ScheduleRetry(ctx context.Context, id string, next time.Time, lastErr string, at time.Time) error {
	const stmt = `
UPDATE refund_requests
SET next_attempt_at = $2, last_error = $3, updated_at = $4
WHERE id = $1 AND status = 'pending'`

	if _, err := r.exec(ctx, stmt, id, next, lastErr, at); err != nil {
		return fmt.Errorf("schedule refund retry: %w", err)
	}
	return nil
}

// MarkFailed gives up on a request and queues it for an operator in the same
// transaction.
func (r *RefundRepository) MarkFailed(ctx context.Context, id, lastErr string, item domain.ReviewItem, at time.Time) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		const stmt = `
UPDATE refund_requests
SET status = 'failed', last_error = $2, updated_at = $3
WHERE id = $1 AND status = 'pending'`

		if _, err := r.exec(txCtx, stmt, id, lastErr, at); err != nil {
			return fmt.Errorf("mark refund failed: %w", err)
		}
		return insertReviewItem(txCtx, r.conn, item)
	})
}
