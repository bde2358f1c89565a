package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

type ClosureRepository interface {
	TxRunner
	// CreateClosure returns domain.ErrClosureExists when the date and scope
	// are already closed.
	CreateClosure(ctx context.Context, c domain.Closure) error
	DeleteClosure(ctx context.Context, id string) error
	ListClosures(ctx context.Context, from, to time.Time) ([]domain.Closure, error)
	// ListLiveReservationsOn lists reservations still holding slots on date,
	// for one resource or, when resourceID is nil, for every resource.
	ListLiveReservationsOn(ctx context.Context, date time.Time, resourceID *string) ([]domain.Reservation, error)
}

type ClosureService struct {
	repo    ClosureRepository
	catalog CatalogReader
	clock   clock.Clock
	logger  *slog.Logger
}

func NewClosureService(repo ClosureRepository, catalog CatalogReader, clk clock.Clock, logger *slog.Logger) *ClosureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClosureService{
		repo:    repo,
		catalog: catalog,
		clock:   clk,
		logger:  logger.With("component", "closures"),
	}
}

type AddClosureInput struct {
	Date       time.Time
	ResourceID *string
	Reason     string
}

// AddClosureResult carries the reservations already booked on the closed
// date. They are left in place for an operator to handle.
type AddClosureResult struct {
	Closure   domain.Closure
	Conflicts []domain.Reservation
}

func (s *ClosureService) AddClosure(ctx context.Context, p auth.Principal, in AddClosureInput) (AddClosureResult, error) {
	if err := p.Require(auth.CapManageClosures); err != nil {
		return AddClosureResult{}, err
	}
	if in.Date.IsZero() {
		return AddClosureResult{}, domain.ErrInvalidDate
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return AddClosureResult{}, domain.ErrReasonRequired
	}
	if in.ResourceID != nil && *in.ResourceID == "" {
		return AddClosureResult{}, domain.ErrInvalidID
	}

	closure := domain.Closure{
		ID:         newID(),
		Date:       domain.NormalizeDate(in.Date),
		ResourceID: in.ResourceID,
		Reason:     reason,
		CreatedBy:  p.ID,
		CreatedAt:  s.clock.Now(),
	}

	var result AddClosureResult
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if closure.ResourceID != nil {
			if _, err := s.catalog.GetResource(txCtx, *closure.ResourceID); err != nil {
				return err
			}
		}
		if err := s.repo.CreateClosure(txCtx, closure); err != nil {
			return err
		}
		conflicts, err := s.repo.ListLiveReservationsOn(txCtx, closure.Date, closure.ResourceID)
		if err != nil {
			return err
		}
		result = AddClosureResult{Closure: closure, Conflicts: conflicts}
		return nil
	})
	if err != nil {
		return AddClosureResult{}, err
	}

	s.logger.Info("closure added",
		"closure_id", closure.ID,
		"date", domain.FormatDate(closure.Date),
		"all_resources", closure.ResourceID == nil,
		"conflicts", len(result.Conflicts),
	)
	return result, nil
}

func (s *ClosureService) RemoveClosure(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(auth.CapManageClosures); err != nil {
		return err
	}
	if id == "" {
		return domain.ErrInvalidID
	}
	if err := s.repo.DeleteClosure(ctx, id); err != nil {
		return err
	}
	s.logger.Info("closure removed", "closure_id", id, "actor", p.ID)
	return nil
}

func (s *ClosureService) ListClosures(ctx context.Context, p auth.Principal, from, to time.Time) ([]domain.Closure, error) {
	if err := p.Require(auth.CapManageClosures); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidDate
	}
	return s.repo.ListClosures(ctx, from, to)
}
