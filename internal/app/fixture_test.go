package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/config"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
)

const (
	fieldID      = "field-1"
	hourlyPrice  = 15000
	equipmentFee = 2500
	cardSecret   = "card-secret"
	mmaSecret    = "mma-secret"
	mmbSecret    = "mmb-secret"
)

var (
	operator  = auth.Principal{ID: "op-1", Role: auth.RoleOperator}
	settler   = auth.Principal{ID: "cashier-1", Role: auth.RoleSettler}
	requester = auth.Principal{ID: "player-1", Role: auth.RoleRequester}
	stranger  = auth.Principal{ID: "player-2", Role: auth.RoleRequester}
)

type countingNotifier struct {
	n atomic.Int64
}

func (c *countingNotifier) Notify() { c.n.Add(1) }

type fakeDeliveries struct {
	seen map[string]bool
}

func (f *fakeDeliveries) Seen(_ context.Context, key string) (bool, error) {
	return f.seen[key], nil
}

func (f *fakeDeliveries) Remember(_ context.Context, key string) error {
	f.seen[key] = true
	return nil
}

type harness struct {
	store    *memStore
	engine   *Engine
	clock    *clock.Manual
	notifier *countingNotifier
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func mustClock(t *testing.T, s string) domain.ClockTime {
	t.Helper()
	c, err := domain.ParseClockTime(s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return c
}

// newHarness seeds one active field offered 10:00-12:00 through January 2024
// and sets the clock to the first morning of that month.
func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()

	store := newMemStore()
	store.addResource(domain.Resource{ID: fieldID, Name: "Terrain 1", HourlyPrice: hourlyPrice, EquipmentFee: equipmentFee, Active: true})

	created := time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC)
	store.templates["tpl-1"] = domain.AvailabilityTemplate{
		ID:         "tpl-1",
		ResourceID: fieldID,
		From:       mustDate(t, "2024-01-01"),
		To:         mustDate(t, "2024-01-31"),
		StartTime:  mustClock(t, "10:00"),
		EndTime:    mustClock(t, "12:00"),
		Available:  true,
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	clk := clock.NewManual(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	notifier := &countingNotifier{}
	d := Deps{
		Catalog:      store,
		Reservations: store,
		Payments:     store,
		Closures:     store,
		Templates:    store,
		Gateway: payments.NewGateway(map[string]string{
			"card":           cardSecret,
			"mobile_money_a": mmaSecret,
			"mobile_money_b": mmbSecret,
		}),
		Checkout: payments.NewLinker("https://pay.example.test", config.ModeSandbox),
		Refunds:  notifier,
		Clock:    clk,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location: time.UTC,
	}
	for _, opt := range opts {
		opt(&d)
	}

	return &harness{store: store, engine: NewEngine(d), clock: clk, notifier: notifier}
}

func (h *harness) reserve(t *testing.T, date, start string, hours int, method domain.PaymentMethod) CreateReservationResult {
	t.Helper()
	res, err := h.engine.Reservations.Create(context.Background(), requester, CreateReservationInput{
		ResourceID:    fieldID,
		Date:          mustDate(t, date),
		StartTime:     mustClock(t, start),
		DurationHours: hours,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return res
}

func mobileMoneyA(eventID, status, txRef, merchantRef string, amount int64) WebhookDelivery {
	body := []byte(fmt.Sprintf(`{"event_id":%q,"status":%q,"transaction_ref":%q,"client_reference":%q,"amount":%d}`,
		eventID, status, txRef, merchantRef, amount))
	return WebhookDelivery{
		Provider:  "mobile_money_a",
		Signature: payments.Sign([]byte(mmaSecret), body),
		Body:      body,
	}
}

func cardEvent(eventID, typ, txRef, merchantRef string, amount int64) WebhookDelivery {
	body := []byte(fmt.Sprintf(`{"id":%q,"type":"payment.%s","data":{"transaction_id":%q,"merchant_reference":%q,"amount":%d}}`,
		eventID, typ, txRef, merchantRef, amount))
	return WebhookDelivery{
		Provider:  "card",
		Signature: payments.Sign([]byte(cardSecret), body),
		Body:      body,
	}
}
