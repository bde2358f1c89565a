package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
)

type PaymentRepository interface {
	TxRunner
	CreateIntent(ctx context.Context, intent domain.PaymentIntent) error
	GetIntentForUpdate(ctx context.Context, id string) (domain.PaymentIntent, error)
	GetIntentByReservationForUpdate(ctx context.Context, reservationID string) (domain.PaymentIntent, error)
	FindIntentByProviderRefForUpdate(ctx context.Context, method domain.PaymentMethod, ref string) (*domain.PaymentIntent, error)
	FindIntentByMerchantRefForUpdate(ctx context.Context, ref string) (*domain.PaymentIntent, error)
	AttachProviderRef(ctx context.Context, intentID, ref string, at time.Time) error
	// TransitionIntent moves the intent only if it is still in from. It
	// reports false when another writer got there first.
	TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, settledBy *string, at time.Time) (bool, error)
	FlagIntentForReview(ctx context.Context, id string, at time.Time) error
	// RecordWebhookEvent reports false when the delivery was already recorded.
	RecordWebhookEvent(ctx context.Context, ev domain.WebhookEvent) (bool, error)
	AddReviewItem(ctx context.Context, item domain.ReviewItem) error
	// AddReviewItemOnce reports false when an equivalent item is already open.
	AddReviewItemOnce(ctx context.Context, item domain.ReviewItem) (bool, error)
	DismissReviewItem(ctx context.Context, id string, at time.Time) error
	ListOpenReviewItems(ctx context.Context) ([]domain.ReviewItem, error)
	ResolveReviewItems(ctx context.Context, intentID string, at time.Time) error
}

// settlementApplier pushes a settled intent onto its reservation.
type settlementApplier interface {
	applySettlement(ctx context.Context, intent domain.PaymentIntent) (domain.Reservation, bool, error)
}

// Reconciler owns the payment intent state machine. Cash settlement and
// provider webhooks both go through transition.
type Reconciler struct {
	repo       PaymentRepository
	gateway    WebhookParser
	checkout   CheckoutLinker
	deliveries DeliveryCache
	settlement settlementApplier
	refunds    Notifier
	clock      clock.Clock
	logger     *slog.Logger
}

type AckOutcome string

const (
	AckApplied      AckOutcome = "applied"
	AckDuplicate    AckOutcome = "duplicate"
	AckIgnored      AckOutcome = "ignored"
	AckManualReview AckOutcome = "manual_review"
)

// Ack is returned to the provider. Every outcome except an error is a success
// from the provider's point of view.
type Ack struct {
	Outcome  AckOutcome
	IntentID string
	Status   domain.IntentStatus
}

type WebhookDelivery struct {
	Provider  string
	Signature string
	Body      []byte
}

// settled is the outcome of one guarded transition.
type settled struct {
	intent       domain.PaymentIntent
	reservation  domain.Reservation
	applied      bool
	refundQueued bool
}

// Initiate creates the payment intent of a freshly created reservation. It
// must run inside the orchestrator's transaction.
func (r *Reconciler) Initiate(ctx context.Context, reservation domain.Reservation, method domain.PaymentMethod) (domain.PaymentIntent, payments.Checkout, error) {
	if !method.Valid() {
		return domain.PaymentIntent{}, payments.Checkout{}, domain.ErrInvalidPaymentMethod
	}
	now := r.clock.Now()
	intent := domain.PaymentIntent{
		ID:            newID(),
		ReservationID: reservation.ID,
		Amount:        reservation.TotalPrice,
		Method:        method,
		Status:        domain.IntentPending,
		MerchantRef:   newMerchantRef(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.repo.CreateIntent(ctx, intent); err != nil {
		return domain.PaymentIntent{}, payments.Checkout{}, err
	}
	return intent, r.checkout.Link(intent), nil
}

func (r *Reconciler) lockForReservation(ctx context.Context, reservationID string) (*domain.PaymentIntent, error) {
	intent, err := r.repo.GetIntentByReservationForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// transition is the single guarded edge of the state machine.
func (r *Reconciler) transition(ctx context.Context, intent domain.PaymentIntent, to domain.IntentStatus, settledBy *string) (settled, error) {
	if !domain.CanTransition(intent.Status, to) {
		return settled{intent: intent}, nil
	}
	now := r.clock.Now()
	ok, err := r.repo.TransitionIntent(ctx, intent.ID, intent.Status, to, settledBy, now)
	if err != nil {
		return settled{}, err
	}
	if !ok {
		return settled{intent: intent}, nil
	}

	intent.Status = to
	intent.NeedsReview = false
	intent.UpdatedAt = now
	if settledBy != nil {
		intent.SettledBy = settledBy
	}

	reservation, refundQueued, err := r.settlement.applySettlement(ctx, intent)
	if err != nil {
		return settled{}, err
	}
	return settled{intent: intent, reservation: reservation, applied: true, refundQueued: refundQueued}, nil
}

// ConfirmFromWebhook applies a provider notification. Replays of the same
// delivery and late or conflicting events are acknowledged without change.
func (r *Reconciler) ConfirmFromWebhook(ctx context.Context, d WebhookDelivery) (Ack, error) {
	ev, err := r.gateway.Parse(d.Provider, d.Signature, d.Body)
	if err != nil {
		if errors.Is(err, domain.ErrProviderSignature) {
			r.recordSignatureFailure(ctx, d.Provider)
		}
		return Ack{}, err
	}

	if r.deliveries != nil {
		seen, err := r.deliveries.Seen(ctx, ev.DeliveryKey())
		if err != nil {
			r.logger.Warn("delivery cache lookup failed", "err", err)
		} else if seen {
			return Ack{Outcome: AckDuplicate}, nil
		}
	}

	var (
		ack      Ack
		mismatch *domain.PaymentMismatchError
		notify   bool
	)
	err = r.repo.WithTx(ctx, func(txCtx context.Context) error {
		intent, err := r.locateIntent(txCtx, ev)
		if err != nil {
			return err
		}

		fresh, err := r.repo.RecordWebhookEvent(txCtx, domain.WebhookEvent{
			Provider:   string(ev.Provider),
			EventRef:   ev.EventRef,
			Type:       string(ev.Type),
			IntentID:   &intent.ID,
			ReceivedAt: r.clock.Now(),
		})
		if err != nil {
			return err
		}
		ack = Ack{Outcome: AckIgnored, IntentID: intent.ID, Status: intent.Status}
		if !fresh {
			ack.Outcome = AckDuplicate
			return nil
		}

		switch ev.Type {
		case payments.EventSucceeded:
			if intent.Status != domain.IntentPending {
				return nil
			}
			if intent.NeedsReview {
				ack.Outcome = AckManualReview
				return nil
			}
			if ev.Amount != intent.Amount {
				mismatch = &domain.PaymentMismatchError{IntentID: intent.ID, Expected: intent.Amount, Received: ev.Amount}
				ack.Outcome = AckManualReview
				return r.holdForReview(txCtx, intent, domain.ReviewAmountMismatch, ev, mismatch.Error())
			}
			s, err := r.transition(txCtx, intent, domain.IntentCompleted, nil)
			if err != nil {
				return err
			}
			ack.Status, notify = s.intent.Status, s.refundQueued
			if s.applied {
				ack.Outcome = AckApplied
			}
		case payments.EventFailed:
			s, err := r.transition(txCtx, intent, domain.IntentFailed, nil)
			if err != nil {
				return err
			}
			ack.Status = s.intent.Status
			if s.applied {
				ack.Outcome = AckApplied
			}
		case payments.EventRefunded:
			if intent.Status == domain.IntentPending {
				ack.Outcome = AckManualReview
				return r.repo.AddReviewItem(txCtx, newReviewItem(domain.ReviewOutOfOrder, ev.DeliveryKey(), &intent.ID,
					"refund received before the payment completed", r.clock.Now()))
			}
			s, err := r.transition(txCtx, intent, domain.IntentRefunded, nil)
			if err != nil {
				return err
			}
			ack.Status = s.intent.Status
			if s.applied {
				ack.Outcome = AckApplied
			}
		default:
			return domain.ErrInvalidWebhook
		}
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			r.logger.Error("webhook processing failed", "provider", ev.Provider, "event", ev.EventRef, "err", err)
		}
		return Ack{}, err
	}

	if r.deliveries != nil {
		if err := r.deliveries.Remember(ctx, ev.DeliveryKey()); err != nil {
			r.logger.Warn("delivery cache write failed", "err", err)
		}
	}
	if notify {
		r.refunds.Notify()
	}

	r.logger.Info("webhook processed",
		"provider", ev.Provider,
		"event", ev.EventRef,
		"type", ev.Type,
		"intent_id", ack.IntentID,
		"outcome", ack.Outcome,
	)
	if mismatch != nil {
		r.logger.Warn("payment held for review", "intent_id", mismatch.IntentID, "expected", mismatch.Expected, "received", mismatch.Received)
		return ack, mismatch
	}
	return ack, nil
}

// locateIntent finds and locks the intent an event refers to, by provider
// transaction reference first and merchant reference second.
func (r *Reconciler) locateIntent(ctx context.Context, ev payments.Event) (domain.PaymentIntent, error) {
	method := ev.Provider.Method()
	if ev.TransactionRef != "" {
		intent, err := r.repo.FindIntentByProviderRefForUpdate(ctx, method, ev.TransactionRef)
		if err != nil {
			return domain.PaymentIntent{}, err
		}
		if intent != nil {
			return *intent, nil
		}
	}
	if ev.MerchantRef == "" {
		return domain.PaymentIntent{}, domain.ErrIntentNotFound
	}
	intent, err := r.repo.FindIntentByMerchantRefForUpdate(ctx, ev.MerchantRef)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	if intent == nil || intent.Method != method {
		return domain.PaymentIntent{}, domain.ErrIntentNotFound
	}
	if intent.ProviderRef == nil && ev.TransactionRef != "" {
		if err := r.repo.AttachProviderRef(ctx, intent.ID, ev.TransactionRef, r.clock.Now()); err != nil {
			return domain.PaymentIntent{}, err
		}
		ref := ev.TransactionRef
		intent.ProviderRef = &ref
	}
	return *intent, nil
}

func (r *Reconciler) holdForReview(ctx context.Context, intent domain.PaymentIntent, kind domain.ReviewKind, ev payments.Event, detail string) error {
	now := r.clock.Now()
	if err := r.repo.FlagIntentForReview(ctx, intent.ID, now); err != nil {
		return err
	}
	return r.repo.AddReviewItem(ctx, newReviewItem(kind, ev.DeliveryKey(), &intent.ID, detail, now))
}

// recordSignatureFailure queues an unverifiable delivery for an operator.
// A provider has at most one open signature item until it is dismissed.
// Payment state is never touched.
func (r *Reconciler) recordSignatureFailure(ctx context.Context, provider string) {
	item := newReviewItem(domain.ReviewSignatureFailure, provider, nil, "webhook signature verification failed", r.clock.Now())
	queued, err := r.repo.AddReviewItemOnce(ctx, item)
	if err != nil {
		r.logger.Error("record signature failure", "provider", provider, "err", err)
		return
	}
	r.logger.Warn("webhook signature rejected", "provider", provider, "queued", queued)
}

// SettleCash records an in-person payment taken by an authorized settler.
func (r *Reconciler) SettleCash(ctx context.Context, p auth.Principal, reservationID string) (domain.PaymentIntent, domain.Reservation, error) {
	if err := p.Require(auth.CapSettleCash); err != nil {
		return domain.PaymentIntent{}, domain.Reservation{}, err
	}
	if !validID(reservationID) {
		return domain.PaymentIntent{}, domain.Reservation{}, domain.ErrReservationNotFound
	}

	var s settled
	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		intent, err := r.repo.GetIntentByReservationForUpdate(txCtx, reservationID)
		if err != nil {
			if errors.Is(err, domain.ErrIntentNotFound) {
				return domain.ErrReservationNotFound
			}
			return err
		}
		if intent.Method != domain.MethodCash {
			return domain.ErrNotCashPayment
		}
		switch intent.Status {
		case domain.IntentCompleted, domain.IntentRefunded:
			return domain.ErrIntentAlreadySettled
		case domain.IntentFailed:
			return domain.ErrIntentNotSettleable
		}

		settler := p.ID
		s, err = r.transition(txCtx, intent, domain.IntentCompleted, &settler)
		if err != nil {
			return err
		}
		if !s.applied {
			return domain.ErrIntentAlreadySettled
		}
		if intent.NeedsReview {
			return r.repo.ResolveReviewItems(txCtx, intent.ID, r.clock.Now())
		}
		return nil
	})
	if err != nil {
		return domain.PaymentIntent{}, domain.Reservation{}, err
	}

	if s.refundQueued {
		r.refunds.Notify()
	}
	r.logger.Info("cash settled", "reservation_id", reservationID, "intent_id", s.intent.ID, "settler", p.ID)
	return s.intent, s.reservation, nil
}

// ResolveReview accepts or rejects an intent held for review.
func (r *Reconciler) ResolveReview(ctx context.Context, p auth.Principal, intentID string, accept bool) (domain.PaymentIntent, error) {
	if err := p.Require(auth.CapReviewPayments); err != nil {
		return domain.PaymentIntent{}, err
	}
	if !validID(intentID) {
		return domain.PaymentIntent{}, domain.ErrIntentNotFound
	}

	var s settled
	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		intent, err := r.repo.GetIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		if !intent.NeedsReview || intent.Status != domain.IntentPending {
			return domain.ErrIntentNotInReview
		}

		to := domain.IntentFailed
		var by *string
		if accept {
			to = domain.IntentCompleted
			reviewer := p.ID
			by = &reviewer
		}
		s, err = r.transition(txCtx, intent, to, by)
		if err != nil {
			return err
		}
		return r.repo.ResolveReviewItems(txCtx, intentID, r.clock.Now())
	})
	if err != nil {
		return domain.PaymentIntent{}, err
	}

	if s.refundQueued {
		r.refunds.Notify()
	}
	r.logger.Info("payment review resolved", "intent_id", intentID, "accepted", accept, "reviewer", p.ID)
	return s.intent, nil
}

// MarkRefunded records a refund completed outside any provider webhook,
// such as cash handed back at the desk.
func (r *Reconciler) MarkRefunded(ctx context.Context, p auth.Principal, reservationID string) (domain.PaymentIntent, error) {
	if err := p.Require(auth.CapReviewPayments); err != nil {
		return domain.PaymentIntent{}, err
	}
	if !validID(reservationID) {
		return domain.PaymentIntent{}, domain.ErrReservationNotFound
	}

	var out domain.PaymentIntent
	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		intent, err := r.repo.GetIntentByReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		switch intent.Status {
		case domain.IntentRefunded:
			out = intent
			return nil
		case domain.IntentCompleted:
		default:
			return domain.ErrIntentNotRefundable
		}
		s, err := r.transition(txCtx, intent, domain.IntentRefunded, nil)
		if err != nil {
			return err
		}
		out = s.intent
		return r.repo.ResolveReviewItems(txCtx, intent.ID, r.clock.Now())
	})
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	r.logger.Info("refund recorded", "reservation_id", reservationID, "actor", p.ID)
	return out, nil
}

// DismissReviewItem closes a queue entry that has no payment attached, such
// as a signature failure once the provider's secret has been checked.
func (r *Reconciler) DismissReviewItem(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(auth.CapReviewPayments); err != nil {
		return err
	}
	if !validID(id) {
		return domain.ErrReviewItemNotFound
	}
	if err := r.repo.DismissReviewItem(ctx, id, r.clock.Now()); err != nil {
		return err
	}
	r.logger.Info("review item dismissed", "item_id", id, "reviewer", p.ID)
	return nil
}

// ReviewQueue lists unresolved review items, oldest first.
func (r *Reconciler) ReviewQueue(ctx context.Context, p auth.Principal) ([]domain.ReviewItem, error) {
	if err := p.Require(auth.CapReviewPayments); err != nil {
		return nil, err
	}
	items, err := r.repo.ListOpenReviewItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	return items, nil
}

func newReviewItem(kind domain.ReviewKind, reference string, intentID *string, detail string, now time.Time) domain.ReviewItem {
	return domain.ReviewItem{
		ID:        newID(),
		Kind:      kind,
		Reference: reference,
		IntentID:  intentID,
		Detail:    detail,
		CreatedAt: now,
	}
}
