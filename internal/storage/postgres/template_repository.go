package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const templateColumns = `id, resource_id, valid_from, valid_to, start_minute, end_minute, available, created_at, updated_at`

type TemplateRepository struct {
	conn
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{conn: conn{pool: pool}}
}

func scanTemplate(row pgx.Row) (domain.AvailabilityTemplate, error) {
	var (
		t          domain.AvailabilityTemplate
		start, end int
	)
	err := row.Scan(&t.ID, &t.ResourceID, &t.From, &t.To, &start, &end, &t.Available, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	t.StartTime, t.EndTime = domain.ClockTime(start), domain.ClockTime(end)
	return t, nil
}

func (r *TemplateRepository) CreateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error {
	const stmt = `
INSERT INTO availability_templates (` + templateColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		t.ID,
		t.ResourceID,
		t.From,
		t.To,
		int(t.StartTime),
		int(t.EndTime),
		t.Available,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) UpdateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error {
	const stmt = `
UPDATE availability_templates
SET valid_from = $2, valid_to = $3, start_minute = $4, end_minute = $5, available = $6, updated_at = $7
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, t.ID, t.From, t.To, int(t.StartTime), int(t.EndTime), t.Available, t.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := r.exec(ctx, `DELETE FROM availability_templates WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, id string) (domain.AvailabilityTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM availability_templates WHERE id = $1`
	t, err := scanTemplate(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.AvailabilityTemplate{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AvailabilityTemplate{}, domain.ErrTemplateNotFound
		}
		return domain.AvailabilityTemplate{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) ListTemplates(ctx context.Context, resourceID string) ([]domain.AvailabilityTemplate, error) {
	const query = `
SELECT ` + templateColumns + `
FROM availability_templates
WHERE resource_id = $1
ORDER BY valid_from, start_minute, id`

	rows, err := r.query(ctx, query, resourceID)
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
