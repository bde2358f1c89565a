package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const closureColumns = `id, closure_date, resource_id, reason, created_by, created_at`

type ClosureRepository struct {
	conn
}

func NewClosureRepository(pool *pgxpool.Pool) *ClosureRepository {
	return &ClosureRepository{conn: conn{pool: pool}}
}

func collectClosures(rows pgx.Rows) ([]domain.Closure, error) {
	defer rows.Close()

	var out []domain.Closure
	for rows.Next() {
		var c domain.Closure
		if err := rows.Scan(&c.ID, &c.Date, &c.ResourceID, &c.Reason, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan closure: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	return out, nil
}

func (r *ClosureRepository) CreateClosure(ctx context.Context, c domain.Closure) error {
	const stmt = `
INSERT INTO closures (` + closureColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, c.ID, c.Date, c.ResourceID, c.Reason, c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrClosureExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create closure: %w", err)
	}
	return nil
}

func (r *ClosureRepository) DeleteClosure(ctx context.Context, id string) error {
	tag, err := r.exec(ctx, `DELETE FROM closures WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete closure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClosureNotFound
	}
	return nil
}

func (r *ClosureRepository) ListClosures(ctx context.Context, from, to time.Time) ([]domain.Closure, error) {
	const query = `
SELECT ` + closureColumns + `
FROM closures
WHERE closure_date BETWEEN $1 AND $2
ORDER BY closure_date, created_at`

	rows, err := r.query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	return collectClosures(rows)
}

func (r *ClosureRepository) ListLiveReservationsOn(ctx context.Context, date time.Time, resourceID *string) ([]domain.Reservation, error) {
	const query = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE reservation_date = $1
  AND status IN ('pending', 'confirmed', 'completed')
  AND ($2::uuid IS NULL OR resource_id = $2::uuid)
ORDER BY start_minute, resource_id`

	rows, err := r.query(ctx, query, date, resourceID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations on date: %w", err)
	}
	return collectReservations(rows)
}
