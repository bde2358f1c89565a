package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
)

// TxRunner runs fn in a single unit of work. Nested calls join the outer one.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogReader is the read side used to resolve availability.
type CatalogReader interface {
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	ListTemplatesInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.AvailabilityTemplate, error)
	ListClosuresInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.Closure, error)
	ListClaimsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.SlotClaim, error)
}

// WebhookParser authenticates and normalizes provider deliveries.
type WebhookParser interface {
	Parse(provider, signature string, body []byte) (payments.Event, error)
}

// CheckoutLinker builds the client redirect for a deferred payment.
type CheckoutLinker interface {
	Link(intent domain.PaymentIntent) payments.Checkout
}

// DeliveryCache remembers processed webhook deliveries. It is an
// optimization only; the database ledger stays authoritative.
type DeliveryCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// Notifier is poked after a refund obligation commits.
type Notifier interface {
	Notify()
}

type Deps struct {
	Catalog      CatalogReader
	Reservations ReservationRepository
	Payments     PaymentRepository
	Closures     ClosureRepository
	Templates    TemplateRepository

	Gateway    WebhookParser
	Checkout   CheckoutLinker
	Deliveries DeliveryCache
	Refunds    Notifier

	Clock    clock.Clock
	Logger   *slog.Logger
	Location *time.Location
}

// Engine groups the booking services. The orchestrator and the reconciler
// call each other, so they are built together.
type Engine struct {
	Resolver     *Resolver
	Reservations *Orchestrator
	Payments     *Reconciler
	Closures     *ClosureService
	Templates    *TemplateService
}

func NewEngine(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Refunds == nil {
		d.Refunds = noopNotifier{}
	}

	resolver := NewResolver(d.Catalog)
	orch := &Orchestrator{
		repo:     d.Reservations,
		catalog:  d.Catalog,
		resolver: resolver,
		refunds:  d.Refunds,
		clock:    d.Clock,
		logger:   d.Logger.With("component", "reservations"),
		location: d.Location,
	}
	rec := &Reconciler{
		repo:       d.Payments,
		gateway:    d.Gateway,
		checkout:   d.Checkout,
		deliveries: d.Deliveries,
		settlement: orch,
		refunds:    d.Refunds,
		clock:      d.Clock,
		logger:     d.Logger.With("component", "payments"),
	}
	orch.payments = rec

	return &Engine{
		Resolver:     resolver,
		Reservations: orch,
		Payments:     rec,
		Closures:     NewClosureService(d.Closures, d.Catalog, d.Clock, d.Logger),
		Templates:    NewTemplateService(d.Templates, d.Catalog, d.Clock, d.Logger),
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify() {}
