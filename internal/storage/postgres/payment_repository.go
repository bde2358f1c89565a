package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const intentColumns = `id, reservation_id, amount, method, status, merchant_ref, provider_ref,
	settled_by, needs_review, created_at, updated_at`

type PaymentRepository struct {
	conn
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{conn: conn{pool: pool}}
}

func scanIntent(row pgx.Row) (domain.PaymentIntent, error) {
	var p domain.PaymentIntent
	err := row.Scan(
		&p.ID,
		&p.ReservationID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.MerchantRef,
		&p.ProviderRef,
		&p.SettledBy,
		&p.NeedsReview,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *PaymentRepository) CreateIntent(ctx context.Context, p domain.PaymentIntent) error {
	const stmt = `
INSERT INTO payment_intents (` + intentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		p.ID,
		p.ReservationID,
		p.Amount,
		p.Method,
		p.Status,
		p.MerchantRef,
		p.ProviderRef,
		p.SettledBy,
		p.NeedsReview,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIntentExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("create payment intent: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetIntentForUpdate(ctx context.Context, id string) (domain.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1 FOR UPDATE`
	p, err := scanIntent(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentIntent{}, domain.ErrIntentNotFound
		}
		return domain.PaymentIntent{}, fmt.Errorf("get payment intent: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetIntentByReservationForUpdate(ctx context.Context, reservationID string) (domain.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE reservation_id = $1 FOR UPDATE`
	p, err := scanIntent(r.queryRow(ctx, query, reservationID))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentIntent{}, domain.ErrIntentNotFound
		}
		return domain.PaymentIntent{}, fmt.Errorf("get payment intent by reservation: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) FindIntentByProviderRefForUpdate(ctx context.Context, method domain.PaymentMethod, ref string) (*domain.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE method = $1 AND provider_ref = $2 FOR UPDATE`
	return r.findIntent(ctx, query, method, ref)
}

func (r *PaymentRepository) FindIntentByMerchantRefForUpdate(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE merchant_ref = $1 FOR UPDATE`
	return r.findIntent(ctx, query, ref)
}

func (r *PaymentRepository) findIntent(ctx context.Context, query string, args ...any) (*domain.PaymentIntent, error) {
	p, err := scanIntent(r.queryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find payment intent: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) AttachProviderRef(ctx context.Context, intentID, ref string, at time.Time) error {
	const stmt = `
UPDATE payment_intents
SET provider_ref = $2, updated_at = $3
WHERE id = $1 AND provider_ref IS NULL`

	if _, err := r.exec(ctx, stmt, intentID, ref, at); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("provider reference %q already attached to another intent: %w", ref, err)
		}
		return fmt.Errorf("attach provider ref: %w", err)
	}
	return nil
}

// TransitionIntent is the guarded edge: the row moves only if it still holds
// the expected status.
func (r *PaymentRepository) TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, settledBy *string, at time.Time) (bool, error) {
	const stmt = `
UPDATE payment_intents
SET status = $3, settled_by = COALESCE($4, settled_by), needs_review = FALSE, updated_at = $5
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, id, from, to, settledBy, at)
	if err != nil {
		return false, fmt.Errorf("transition payment intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) FlagIntentForReview(ctx context.Context, id string, at time.Time) error {
	const stmt = `UPDATE payment_intents SET needs_review = TRUE, updated_at = $2 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, at)
	if err != nil {
		return fmt.Errorf("flag payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntentNotFound
	}
	return nil
}

func (r *PaymentRepository) RecordWebhookEvent(ctx context.Context, ev domain.WebhookEvent) (bool, error) {
	const stmt = `
INSERT INTO webhook_events (provider, event_ref, event_type, intent_id, received_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (provider, event_ref) DO NOTHING`

	tag, err := r.exec(ctx, stmt, ev.Provider, ev.EventRef, ev.Type, ev.IntentID, ev.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) AddReviewItem(ctx context.Context, item domain.ReviewItem) error {
	return insertReviewItem(ctx, r.conn, item)
}

func insertReviewItem(ctx context.Context, c conn, item domain.ReviewItem) error {
	const stmt = `
INSERT INTO review_items (id, kind, reference, intent_id, detail, created_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := c.exec(ctx, stmt, item.ID, item.Kind, item.Reference, item.IntentID, item.Detail, item.CreatedAt, item.ResolvedAt); err != nil {
		return fmt.Errorf("add review item: %w", err)
	}
	return nil
}

// AddReviewItemOnce skips the insert while an equivalent item is still open.
// Only signature failures are coalesced, one open item per provider.
func (r *PaymentRepository) AddReviewItemOnce(ctx context.Context, item domain.ReviewItem) (bool, error) {
	const stmt = `
INSERT INTO review_items (id, kind, reference, intent_id, detail, created_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`

	tag, err := r.exec(ctx, stmt, item.ID, item.Kind, item.Reference, item.IntentID, item.Detail, item.CreatedAt, item.ResolvedAt)
	if err != nil {
		return false, fmt.Errorf("add review item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DismissReviewItem closes an open item that is not tied to a payment.
// Items with an intent are closed by resolving the payment.
func (r *PaymentRepository) DismissReviewItem(ctx context.Context, id string, at time.Time) error {
	const stmt = `
UPDATE review_items SET resolved_at = $2
WHERE id = $1 AND intent_id IS NULL AND resolved_at IS NULL`

	tag, err := r.exec(ctx, stmt, id, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrReviewItemNotFound
		}
		return fmt.Errorf("dismiss review item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReviewItemNotFound
	}
	return nil
}

func (r *PaymentRepository) ListOpenReviewItems(ctx context.Context) ([]domain.ReviewItem, error) {
	const query = `
SELECT id, kind, reference, intent_id, detail, created_at, resolved_at
FROM review_items
WHERE resolved_at IS NULL
ORDER BY created_at, id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()

	var out []domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		if err := rows.Scan(&item.ID, &item.Kind, &item.Reference, &item.IntentID, &item.Detail, &item.CreatedAt, &item.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	return out, nil
}

func (r *PaymentRepository) ResolveReviewItems(ctx context.Context, intentID string, at time.Time) error {
	const stmt = `UPDATE review_items SET resolved_at = $2 WHERE intent_id = $1 AND resolved_at IS NULL`
	if _, err := r.exec(ctx, stmt, intentID, at); err != nil {
		return fmt.Errorf("resolve review items: %w", err)
	}
	return nil
}
