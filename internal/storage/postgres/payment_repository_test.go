package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/testutil"
	"github.com/google/uuid"
)

func newTestIntent(res domain.Reservation, method domain.PaymentMethod) domain.PaymentIntent {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.PaymentIntent{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		Amount:        res.TotalPrice,
		Method:        method,
		Status:        domain.IntentPending,
		MerchantRef:   "UF-" + uuid.NewString()[:8],
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPaymentRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewPaymentRepository(pool)
	reservations := NewReservationRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, ctx context.Context, method domain.PaymentMethod) domain.PaymentIntent {
		t.Helper()
		testutil.TruncateAll(t, ctx, pool)
		resourceID := testutil.InsertResource(t, ctx, pool, "Terrain 1", 15000, 0)
		res := newTestReservation(resourceID, date, 600, 1)
		if err := reservations.CreateReservation(ctx, res); err != nil {
			t.Fatalf("create reservation: %v", err)
		}
		intent := newTestIntent(res, method)
		if err := repo.CreateIntent(ctx, intent); err != nil {
			t.Fatalf("create intent: %v", err)
		}
		return intent
	}

	t.Run("CreateIntent is unique per reservation", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodCash)

		dup := intent
		dup.ID = uuid.NewString()
		dup.MerchantRef = "UF-other"
		if err := repo.CreateIntent(ctx, dup); err != domain.ErrIntentExists {
			t.Fatalf("expected ErrIntentExists, got %v", err)
		}
	})

	t.Run("lookups by reference", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodMobileMoneyA)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			found, err := repo.FindIntentByMerchantRefForUpdate(txCtx, intent.MerchantRef)
			if err != nil {
				return err
			}
			if found == nil || found.ID != intent.ID {
				t.Fatalf("unexpected intent: %+v", found)
			}
			return repo.AttachProviderRef(txCtx, intent.ID, "TX-1", time.Now().UTC())
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		found, err := repo.FindIntentByProviderRefForUpdate(ctx, domain.MethodMobileMoneyA, "TX-1")
		if err != nil || found == nil || found.ID != intent.ID {
			t.Fatalf("expected intent by provider ref, got %+v %v", found, err)
		}
		found, err = repo.FindIntentByProviderRefForUpdate(ctx, domain.MethodCard, "TX-1")
		if err != nil || found != nil {
			t.Fatalf("expected no card intent, got %+v %v", found, err)
		}

		byReservation, err := repo.GetIntentByReservationForUpdate(ctx, intent.ReservationID)
		if err != nil || byReservation.ID != intent.ID {
			t.Fatalf("expected intent by reservation, got %+v %v", byReservation, err)
		}
		if _, err := repo.GetIntentForUpdate(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrIntentNotFound {
			t.Fatalf("expected ErrIntentNotFound, got %v", err)
		}
	})

	t.Run("TransitionIntent is guarded by the current status", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodCash)
		now := time.Now().UTC()
		settler := "cashier-1"

		if err := repo.FlagIntentForReview(ctx, intent.ID, now); err != nil {
			t.Fatalf("flag: %v", err)
		}
		ok, err := repo.TransitionIntent(ctx, intent.ID, domain.IntentPending, domain.IntentCompleted, &settler, now)
		if err != nil || !ok {
			t.Fatalf("expected transition, got %v %v", ok, err)
		}
		ok, err = repo.TransitionIntent(ctx, intent.ID, domain.IntentPending, domain.IntentFailed, nil, now)
		if err != nil || ok {
			t.Fatalf("expected stale transition to be refused, got %v %v", ok, err)
		}

		got, err := repo.GetIntentForUpdate(ctx, intent.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != domain.IntentCompleted || got.NeedsReview || got.SettledBy == nil || *got.SettledBy != settler {
			t.Fatalf("unexpected intent: %+v", got)
		}
	})

	t.Run("RecordWebhookEvent deduplicates deliveries", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodCard)
		ev := domain.WebhookEvent{Provider: "card", EventRef: "evt_1", Type: "succeeded", IntentID: &intent.ID, ReceivedAt: time.Now().UTC()}

		fresh, err := repo.RecordWebhookEvent(ctx, ev)
		if err != nil || !fresh {
			t.Fatalf("expected fresh, got %v %v", fresh, err)
		}
		fresh, err = repo.RecordWebhookEvent(ctx, ev)
		if err != nil || fresh {
			t.Fatalf("expected duplicate, got %v %v", fresh, err)
		}
	})

	t.Run("review items open and resolve", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodCard)
		now := time.Now().UTC()

		items := []domain.ReviewItem{
			{ID: uuid.NewString(), Kind: domain.ReviewAmountMismatch, Reference: "card:evt_1", IntentID: &intent.ID, Detail: "mismatch", CreatedAt: now},
			{ID: uuid.NewString(), Kind: domain.ReviewSignatureFailure, Reference: "card", Detail: "bad signature", CreatedAt: now.Add(time.Second)},
		}
		for _, item := range items {
			if err := repo.AddReviewItem(ctx, item); err != nil {
				t.Fatalf("add review item: %v", err)
			}
		}

		open, err := repo.ListOpenReviewItems(ctx)
		if err != nil || len(open) != 2 {
			t.Fatalf("expected 2 open items, got %d %v", len(open), err)
		}
		if err := repo.ResolveReviewItems(ctx, intent.ID, now); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		open, err = repo.ListOpenReviewItems(ctx)
		if err != nil || len(open) != 1 || open[0].Kind != domain.ReviewSignatureFailure {
			t.Fatalf("expected signature item left open, got %+v %v", open, err)
		}
	})

	t.Run("signature failures coalesce per provider", func(t *testing.T) {
		ctx := context.Background()
		seed(t, ctx, domain.MethodCard)
		now := time.Now().UTC()

		signatureItem := func(provider string) domain.ReviewItem {
			return domain.ReviewItem{ID: uuid.NewString(), Kind: domain.ReviewSignatureFailure, Reference: provider, Detail: "bad signature", CreatedAt: now}
		}

		first := signatureItem("card")
		queued, err := repo.AddReviewItemOnce(ctx, first)
		if err != nil || !queued {
			t.Fatalf("expected first item queued, got %v %v", queued, err)
		}
		queued, err = repo.AddReviewItemOnce(ctx, signatureItem("card"))
		if err != nil || queued {
			t.Fatalf("expected repeat to be coalesced, got %v %v", queued, err)
		}
		queued, err = repo.AddReviewItemOnce(ctx, signatureItem("mobile_money_a"))
		if err != nil || !queued {
			t.Fatalf("expected other provider queued, got %v %v", queued, err)
		}

		if err := repo.DismissReviewItem(ctx, first.ID, now); err != nil {
			t.Fatalf("dismiss: %v", err)
		}
		if err := repo.DismissReviewItem(ctx, first.ID, now); err != domain.ErrReviewItemNotFound {
			t.Fatalf("expected ErrReviewItemNotFound on second dismiss, got %v", err)
		}
		if err := repo.DismissReviewItem(ctx, "not-a-uuid", now); err != domain.ErrReviewItemNotFound {
			t.Fatalf("expected ErrReviewItemNotFound for malformed id, got %v", err)
		}

		queued, err = repo.AddReviewItemOnce(ctx, signatureItem("card"))
		if err != nil || !queued {
			t.Fatalf("expected new item after dismissal, got %v %v", queued, err)
		}
		open, err := repo.ListOpenReviewItems(ctx)
		if err != nil || len(open) != 2 {
			t.Fatalf("expected 2 open items, got %d %v", len(open), err)
		}
	})

	t.Run("payment items cannot be dismissed", func(t *testing.T) {
		ctx := context.Background()
		intent := seed(t, ctx, domain.MethodCard)
		item := domain.ReviewItem{ID: uuid.NewString(), Kind: domain.ReviewAmountMismatch, Reference: "card:evt_1", IntentID: &intent.ID, Detail: "mismatch", CreatedAt: time.Now().UTC()}
		if err := repo.AddReviewItem(ctx, item); err != nil {
			t.Fatalf("add review item: %v", err)
		}
		if err := repo.DismissReviewItem(ctx, item.ID, time.Now().UTC()); err != domain.ErrReviewItemNotFound {
			t.Fatalf("expected ErrReviewItemNotFound, got %v", err)
		}
	})
}
