package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error
	UpdateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (domain.AvailabilityTemplate, error)
	ListTemplates(ctx context.Context, resourceID string) ([]domain.AvailabilityTemplate, error)
}

type TemplateService struct {
	repo    TemplateRepository
	catalog CatalogReader
	clock   clock.Clock
	logger  *slog.Logger
}

func NewTemplateService(repo TemplateRepository, catalog CatalogReader, clk clock.Clock, logger *slog.Logger) *TemplateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateService{
		repo:    repo,
		catalog: catalog,
		clock:   clk,
		logger:  logger.With("component", "templates"),
	}
}

type TemplateInput struct {
	ResourceID string
	From       time.Time
	To         time.Time
	StartTime  domain.ClockTime
	EndTime    domain.ClockTime
	Available  bool
}

func (in TemplateInput) apply(t *domain.AvailabilityTemplate) {
	t.ResourceID = in.ResourceID
	t.From = domain.NormalizeDate(in.From)
	t.To = domain.NormalizeDate(in.To)
	t.StartTime = in.StartTime
	t.EndTime = in.EndTime
	t.Available = in.Available
}

// CreateTemplate stores a new window. Overlapping an existing window is
// allowed; the most recently modified one decides each slot.
func (s *TemplateService) CreateTemplate(ctx context.Context, p auth.Principal, in TemplateInput) (domain.AvailabilityTemplate, error) {
	if err := p.Require(auth.CapManageTemplates); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	if in.ResourceID == "" {
		return domain.AvailabilityTemplate{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	tpl := domain.AvailabilityTemplate{ID: newID(), CreatedAt: now, UpdatedAt: now}
	in.apply(&tpl)
	if err := tpl.Validate(); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	if _, err := s.catalog.GetResource(ctx, tpl.ResourceID); err != nil {
		return domain.AvailabilityTemplate{}, err
	}

	s.logOverlaps(ctx, tpl)
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	s.logger.Info("template created", "template_id", tpl.ID, "resource_id", tpl.ResourceID)
	return tpl, nil
}

// UpdateTemplate replaces the window and bumps UpdatedAt, which makes it win
// over any template it overlaps.
func (s *TemplateService) UpdateTemplate(ctx context.Context, p auth.Principal, id string, in TemplateInput) (domain.AvailabilityTemplate, error) {
	if err := p.Require(auth.CapManageTemplates); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	if id == "" {
		return domain.AvailabilityTemplate{}, domain.ErrInvalidID
	}

	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	resourceID := tpl.ResourceID
	in.ResourceID = resourceID
	in.apply(&tpl)
	if err := tpl.Validate(); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	tpl.UpdatedAt = s.clock.Now()

	s.logOverlaps(ctx, tpl)
	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	s.logger.Info("template updated", "template_id", tpl.ID, "resource_id", resourceID)
	return tpl, nil
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(auth.CapManageTemplates); err != nil {
		return err
	}
	if id == "" {
		return domain.ErrInvalidID
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

func (s *TemplateService) ListTemplates(ctx context.Context, p auth.Principal, resourceID string) ([]domain.AvailabilityTemplate, error) {
	if err := p.Require(auth.CapManageTemplates); err != nil {
		return nil, err
	}
	if resourceID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.catalog.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.repo.ListTemplates(ctx, resourceID)
}

func (s *TemplateService) logOverlaps(ctx context.Context, tpl domain.AvailabilityTemplate) {
	existing, err := s.repo.ListTemplates(ctx, tpl.ResourceID)
	if err != nil {
		s.logger.Warn("overlap check skipped", "resource_id", tpl.ResourceID, "err", err)
		return
	}
	for _, other := range existing {
		if other.ID != tpl.ID && tpl.Overlaps(other) {
			s.logger.Info("template overlaps existing window",
				"template_id", tpl.ID,
				"other_id", other.ID,
				"resource_id", tpl.ResourceID,
			)
		}
	}
}
