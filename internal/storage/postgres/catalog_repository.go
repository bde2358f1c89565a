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

// CatalogRepository is the read side the availability resolver runs on.
type CatalogRepository struct {
	conn
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{conn: conn{pool: pool}}
}

func (r *CatalogRepository) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	const query = `SELECT id, name, hourly_price, equipment_fee, active FROM resources WHERE id = $1`
	var res domain.Resource
	err := r.queryRow(ctx, query, id).Scan(&res.ID, &res.Name, &res.HourlyPrice, &res.EquipmentFee, &res.Active)
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r *CatalogRepository) ListTemplatesInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.AvailabilityTemplate, error) {
	const query = `
SELECT ` + templateColumns + `
FROM availability_templates
WHERE resource_id = $1 AND valid_from <= $3 AND valid_to >= $2`

	rows, err := r.query(ctx, query, resourceID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.AvailabilityTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListClosuresInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.Closure, error) {
	const query = `
SELECT ` + closureColumns + `
FROM closures
WHERE closure_date BETWEEN $2 AND $3 AND (resource_id IS NULL OR resource_id = $1)`

	rows, err := r.query(ctx, query, resourceID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list closures: %w", err)
	}
	return collectClosures(rows)
}

func (r *CatalogRepository) ListClaimsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.SlotClaim, error) {
	const query = `
SELECT resource_id, slot_date, slot_minute, reservation_id
FROM reservation_slots
WHERE resource_id = $1 AND slot_date BETWEEN $2 AND $3`

	rows, err := r.query(ctx, query, resourceID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list slot claims: %w", err)
	}
	defer rows.Close()

	var out []domain.SlotClaim
	for rows.Next() {
		var (
			c      domain.SlotClaim
			minute int
		)
		if err := rows.Scan(&c.ResourceID, &c.Date, &minute, &c.ReservationID); err != nil {
			return nil, fmt.Errorf("scan slot claim: %w", err)
		}
		c.StartTime = domain.ClockTime(minute)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slot claims: %w", err)
	}
	return out, nil
}
