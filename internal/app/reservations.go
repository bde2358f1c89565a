package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
)

type ReservationRepository interface {
	TxRunner
	// CreateReservation inserts the reservation with one claim per hour.
	// A clash on any claimed hour returns domain.ErrSlotTaken.
	CreateReservation(ctx context.Context, r domain.Reservation) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	UpdateReservation(ctx context.Context, r domain.Reservation) error
	ReleaseSlots(ctx context.Context, reservationID string) error
	CompleteElapsed(ctx context.Context, today time.Time, now domain.ClockTime, at time.Time) (int64, error)
	// CreateRefundRequest reports false when the reservation already has one.
	CreateRefundRequest(ctx context.Context, req domain.RefundRequest) (bool, error)
	CompleteRefundRequest(ctx context.Context, reservationID string, at time.Time) error
}

// Orchestrator creates and cancels reservations and applies payment
// settlement back onto them.
type Orchestrator struct {
	repo     ReservationRepository
	catalog  CatalogReader
	resolver *Resolver
	payments *Reconciler
	refunds  Notifier
	clock    clock.Clock
	logger   *slog.Logger
	location *time.Location
}

type CreateReservationInput struct {
	ResourceID      string
	Date            time.Time
	StartTime       domain.ClockTime
	DurationHours   int
	EquipmentRental bool
	PaymentMethod   domain.PaymentMethod
}

type CreateReservationResult struct {
	Reservation domain.Reservation
	Intent      domain.PaymentIntent
	Checkout    payments.Checkout
}

func (in CreateReservationInput) validate() error {
	if in.ResourceID == "" {
		return domain.ErrInvalidID
	}
	if in.Date.IsZero() {
		return domain.ErrInvalidDate
	}
	if !in.StartTime.Aligned() {
		return domain.ErrInvalidTime
	}
	if in.DurationHours < 1 || in.DurationHours > domain.MaxDurationHours {
		return domain.ErrInvalidDuration
	}
	if int(in.StartTime)+in.DurationHours*domain.SlotLength > 24*60 {
		return domain.ErrInvalidDuration
	}
	if !in.PaymentMethod.Valid() {
		return domain.ErrInvalidPaymentMethod
	}
	return nil
}

// Create books every hour of the requested run and initiates its payment in
// one transaction. Of concurrent requests for the same hour exactly one
// commits; the rest get domain.ErrSlotTaken and write nothing.
func (o *Orchestrator) Create(ctx context.Context, p auth.Principal, in CreateReservationInput) (CreateReservationResult, error) {
	if err := p.Require(auth.CapReserve); err != nil {
		return CreateReservationResult{}, err
	}
	if err := in.validate(); err != nil {
		return CreateReservationResult{}, err
	}
	in.Date = domain.NormalizeDate(in.Date)

	now := o.clock.Now()
	today := domain.DateOf(now, o.location)
	if in.Date.Before(today) || (in.Date.Equal(today) && in.StartTime < domain.ClockTimeOf(now, o.location)) {
		return CreateReservationResult{}, domain.ErrDateInPast
	}

	var result CreateReservationResult
	err := o.repo.WithTx(ctx, func(txCtx context.Context) error {
		resource, err := o.catalog.GetResource(txCtx, in.ResourceID)
		if err != nil {
			return err
		}
		if !resource.Active {
			return domain.ErrResourceInactive
		}

		states, err := o.resolver.states(txCtx, in.ResourceID, in.Date, in.Date)
		if err != nil {
			return err
		}
		if err := checkRun(states, in.StartTime, in.DurationHours); err != nil {
			return err
		}

		reservation := domain.Reservation{
			ID:              newID(),
			ResourceID:      in.ResourceID,
			RequesterID:     p.ID,
			Date:            in.Date,
			StartTime:       in.StartTime,
			DurationHours:   in.DurationHours,
			Status:          domain.ReservationPending,
			PaymentStatus:   domain.PaymentPending,
			TotalPrice:      resource.Price(in.DurationHours, in.EquipmentRental),
			EquipmentRental: in.EquipmentRental,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := o.repo.CreateReservation(txCtx, reservation); err != nil {
			return err
		}

		intent, checkout, err := o.payments.Initiate(txCtx, reservation, in.PaymentMethod)
		if err != nil {
			return err
		}

		result = CreateReservationResult{Reservation: reservation, Intent: intent, Checkout: checkout}
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			o.logger.Debug("reservation rejected",
				"resource_id", in.ResourceID,
				"date", domain.FormatDate(in.Date),
				"start", in.StartTime.String(),
				"reason", domain.CodeOf(err),
			)
		}
		return CreateReservationResult{}, err
	}

	o.logger.Info("reservation created",
		"reservation_id", result.Reservation.ID,
		"resource_id", in.ResourceID,
		"method", in.PaymentMethod,
	)
	return result, nil
}

// checkRun requires every hour of the run to be offered, open and free.
func checkRun(states []slotState, start domain.ClockTime, hours int) error {
	byStart := make(map[domain.ClockTime]slotState, len(states))
	for _, s := range states {
		byStart[s.start] = s
	}
	for i := 0; i < hours; i++ {
		s, ok := byStart[start.Add(i*domain.SlotLength)]
		switch {
		case ok && s.closed:
			return domain.ErrSlotClosed
		case !ok || !s.offered:
			return domain.ErrSlotNotOffered
		case s.taken:
			return domain.ErrSlotTaken
		}
	}
	return nil
}

// Get returns a reservation visible to p.
func (o *Orchestrator) Get(ctx context.Context, p auth.Principal, id string) (domain.Reservation, error) {
	r, err := o.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !p.Owns(r.RequesterID) && !p.Can(auth.CapViewAny) {
		return domain.Reservation{}, domain.ErrForbidden
	}
	return r, nil
}

// Cancel releases the reservation's hours. A paid reservation gets exactly
// one refund obligation; dispatching it happens after commit.
func (o *Orchestrator) Cancel(ctx context.Context, p auth.Principal, id string) (domain.Reservation, error) {
	if !validID(id) {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	var (
		result       domain.Reservation
		refundQueued bool
	)
	now := o.clock.Now()

	err := o.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Intent first, then reservation: the same order settlement uses.
		intent, err := o.payments.lockForReservation(txCtx, id)
		if err != nil && !errors.Is(err, domain.ErrIntentNotFound) {
			return err
		}

		r, err := o.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !p.Owns(r.RequesterID) && !p.Can(auth.CapCancelAny) {
			return domain.ErrForbidden
		}

		switch r.Status {
		case domain.ReservationCancelled:
			result = r
			return nil
		case domain.ReservationCompleted:
			return domain.ErrReservationNotCancellable
		}

		r.Status = domain.ReservationCancelled
		r.UpdatedAt = now
		if err := o.repo.UpdateReservation(txCtx, r); err != nil {
			return err
		}
		if err := o.repo.ReleaseSlots(txCtx, r.ID); err != nil {
			return err
		}

		if r.PaymentStatus == domain.PaymentPaid && intent != nil {
			created, err := o.repo.CreateRefundRequest(txCtx, newRefundRequest(r, *intent, now))
			if err != nil {
				return err
			}
			refundQueued = created
		}

		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	if refundQueued {
		o.refunds.Notify()
	}
	o.logger.Info("reservation cancelled", "reservation_id", id, "actor", p.ID, "refund_queued", refundQueued)
	return result, nil
}

// CompleteElapsed marks confirmed reservations whose last hour has ended as completed.
func (o *Orchestrator) CompleteElapsed(ctx context.Context) (int64, error) {
	now := o.clock.Now()
	n, err := o.repo.CompleteElapsed(ctx, domain.DateOf(now, o.location), domain.ClockTimeOf(now, o.location), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.Info("reservations completed", "count", n)
	}
	return n, nil
}

// applySettlement mirrors intent onto its reservation. It runs inside the
// reconciler's transaction with the intent row already locked.
func (o *Orchestrator) applySettlement(ctx context.Context, intent domain.PaymentIntent) (domain.Reservation, bool, error) {
	r, err := o.repo.GetReservationForUpdate(ctx, intent.ReservationID)
	if err != nil {
		return domain.Reservation{}, false, err
	}
	now := o.clock.Now()
	refundQueued := false

	r.PaymentStatus = domain.PaymentStatusFor(intent.Status)
	switch intent.Status {
	case domain.IntentCompleted:
		switch r.Status {
		case domain.ReservationPending:
			r.Status = domain.ReservationConfirmed
		case domain.ReservationCancelled:
			// Paid after cancellation: the money has to go back.
			created, err := o.repo.CreateRefundRequest(ctx, newRefundRequest(r, intent, now))
			if err != nil {
				return domain.Reservation{}, false, err
			}
			refundQueued = created
		}
	case domain.IntentRefunded:
		if err := o.repo.CompleteRefundRequest(ctx, r.ID, now); err != nil {
			return domain.Reservation{}, false, err
		}
	}

	r.UpdatedAt = now
	if err := o.repo.UpdateReservation(ctx, r); err != nil {
		return domain.Reservation{}, false, err
	}
	return r, refundQueued, nil
}

func newRefundRequest(r domain.Reservation, intent domain.PaymentIntent, now time.Time) domain.RefundRequest {
	return domain.RefundRequest{
		ID:            newID(),
		ReservationID: r.ID,
		IntentID:      intent.ID,
		Amount:        intent.Amount,
		Method:        intent.Method,
		Status:        domain.RefundPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
