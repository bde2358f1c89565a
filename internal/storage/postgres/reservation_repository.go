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

const reservationColumns = `id, resource_id, requester_id, reservation_date, start_minute, duration_hours,
	status, payment_status, total_price, equipment_rental, created_at, updated_at`

type ReservationRepository struct {
	conn
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{conn: conn{pool: pool}}
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		r     domain.Reservation
		start int
	)
	err := row.Scan(
		&r.ID,
		&r.ResourceID,
		&r.RequesterID,
		&r.Date,
		&start,
		&r.DurationHours,
		&r.Status,
		&r.PaymentStatus,
		&r.TotalPrice,
		&r.EquipmentRental,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	r.StartTime = domain.ClockTime(start)
	return r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// CreateReservation inserts the reservation and one reservation_slots row per
// hour. Either unique index firing means another booking got there first.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		const stmt = `
INSERT INTO reservations (` + reservationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

		_, err := r.exec(txCtx, stmt,
			res.ID,
			res.ResourceID,
			res.RequesterID,
			res.Date,
			int(res.StartTime),
			res.DurationHours,
			res.Status,
			res.PaymentStatus,
			res.TotalPrice,
			res.EquipmentRental,
			res.CreatedAt,
			res.UpdatedAt,
		)
		if err != nil {
			return mapReservationInsertErr(err)
		}

		const claim = `
INSERT INTO reservation_slots (resource_id, slot_date, slot_minute, reservation_id)
VALUES ($1, $2, $3, $4)`
		for _, c := range res.Claims() {
			if _, err := r.exec(txCtx, claim, c.ResourceID, c.Date, int(c.StartTime), c.ReservationID); err != nil {
				return mapReservationInsertErr(err)
			}
		}
		return nil
	})
}

func mapReservationInsertErr(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrSlotTaken
	case isForeignKeyViolation(err):
		return domain.ErrResourceNotFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	}
	return fmt.Errorf("create reservation: %w", err)
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.getReservation(ctx, query, id)
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return r.getReservation(ctx, query, id)
}

func (r *ReservationRepository) getReservation(ctx context.Context, query, id string) (domain.Reservation, error) {
	res, err := scanReservation(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) UpdateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
UPDATE reservations
SET status = $2, payment_status = $3, updated_at = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, res.ID, res.Status, res.PaymentStatus, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) ReleaseSlots(ctx context.Context, reservationID string) error {
	if _, err := r.exec(ctx, `DELETE FROM reservation_slots WHERE reservation_id = $1`, reservationID); err != nil {
		return fmt.Errorf("release slots: %w", err)
	}
	return nil
}

// CompleteElapsed marks confirmed reservations whose last hour ended before
// now on today as completed. Their slot claims stay in place.
func (r *ReservationRepository) CompleteElapsed(ctx context.Context, today time.Time, now domain.ClockTime, at time.Time) (int64, error) {
	const stmt = `
UPDATE reservations
SET status = 'completed', updated_at = $3
WHERE status = 'confirmed'
  AND (reservation_date < $1 OR (reservation_date = $1 AND start_minute + duration_hours * 60 <= $2))`

	tag, err := r.exec(ctx, stmt, today, int(now), at)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ReservationRepository) CreateRefundRequest(ctx context.Context, req domain.RefundRequest) (bool, error) {
	const stmt = `
INSERT INTO refund_requests (` + refundColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (reservation_id) DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		req.ID,
		req.ReservationID,
		req.IntentID,
		req.Amount,
		req.Method,
		req.Status,
		req.Attempts,
		req.NextAttemptAt,
		req.LastError,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create refund request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReservationRepository) CompleteRefundRequest(ctx context.Context, reservationID string, at time.Time) error {
	const stmt = `
UPDATE refund_requests
SET status = 'completed', updated_at = $2
WHERE reservation_id = $1 AND status <> 'completed'`

	if _, err := r.exec(ctx, stmt, reservationID, at); err != nil {
		return fmt.Errorf("complete refund request: %w", err)
	}
	return nil
}
