package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/testutil"
	"github.com/google/uuid"
)

func TestRefundRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewRefundRepository(pool)
	reservations := NewReservationRepository(pool)
	payments := NewPaymentRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	seed := func(t *testing.T, ctx context.Context, due time.Time) domain.RefundRequest {
		t.Helper()
		testutil.TruncateAll(t, ctx, pool)
		resourceID := testutil.InsertResource(t, ctx, pool, "Terrain 1", 15000, 0)
		res := newTestReservation(resourceID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 600, 1)
		if err := reservations.CreateReservation(ctx, res); err != nil {
			t.Fatalf("create reservation: %v", err)
		}
		intent := newTestIntent(res, domain.MethodCard)
		if err := payments.CreateIntent(ctx, intent); err != nil {
			t.Fatalf("create intent: %v", err)
		}
		req := domain.RefundRequest{
			ID: uuid.NewString(), ReservationID: res.ID, IntentID: intent.ID, Amount: intent.Amount,
			Method: intent.Method, Status: domain.RefundPending, NextAttemptAt: due, CreatedAt: due, UpdatedAt: due,
		}
		if _, err := reservations.CreateRefundRequest(ctx, req); err != nil {
			t.Fatalf("create refund request: %v", err)
		}
		return req
	}

	t.Run("ClaimDue leases due requests once", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now().UTC()
		req := seed(t, ctx, now.Add(-time.Minute))

		if got, err := repo.ClaimDue(ctx, now.Add(-time.Hour), now.Add(time.Minute), 10); err != nil || len(got) != 0 {
			t.Fatalf("expected nothing due yet, got %d %v", len(got), err)
		}

		got, err := repo.ClaimDue(ctx, now, now.Add(time.Minute), 10)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if len(got) != 1 || got[0].ID != req.ID || got[0].Attempts != 1 {
			t.Fatalf("unexpected claim: %+v", got)
		}

		got, err = repo.ClaimDue(ctx, now, now.Add(time.Minute), 10)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected leased request to be skipped, got %d %v", len(got), err)
		}

		if err := repo.MarkDispatched(ctx, req.ID, now); err != nil {
			t.Fatalf("mark dispatched: %v", err)
		}
		got, err = repo.ClaimDue(ctx, now.Add(time.Hour), now.Add(2*time.Hour), 10)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected dispatched request to stay put, got %d %v", len(got), err)
		}
	})

	t.Run("MarkFailed queues a review item", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now().UTC()
		req := seed(t, ctx, now)

		item := domain.ReviewItem{ID: uuid.NewString(), Kind: domain.ReviewRefundFailed, Reference: req.ID, IntentID: &req.IntentID, Detail: "gave up", CreatedAt: now}
		if err := repo.MarkFailed(ctx, req.ID, "sink unavailable", item, now); err != nil {
			t.Fatalf("mark failed: %v", err)
		}

		open, err := payments.ListOpenReviewItems(ctx)
		if err != nil || len(open) != 1 || open[0].Kind != domain.ReviewRefundFailed {
			t.Fatalf("expected refund_failed review item, got %+v %v", open, err)
		}
		if got, err := repo.ClaimDue(ctx, now.Add(time.Hour), now.Add(2*time.Hour), 10); err != nil || len(got) != 0 {
			t.Fatalf("expected failed request to stay put, got %d %v", len(got), err)
		}
	})
}
