package app

import (
	"context"
	"testing"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availableStarts(slots []domain.SlotDescriptor) []string {
	var out []string
	for _, s := range slots {
		if s.Available {
			out = append(out, domain.FormatDate(s.Date)+" "+s.StartTime.String())
		}
	}
	return out
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	slots, err := h.engine.Resolver.Resolve(ctx, fieldID, mustDate(t, "2024-01-30"), mustDate(t, "2024-02-01"))
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, []string{
		"2024-01-30 10:00", "2024-01-30 11:00",
		"2024-01-31 10:00", "2024-01-31 11:00",
	}, availableStarts(slots))
	assert.Equal(t, mustClock(t, "11:00"), slots[0].EndTime)
}

func TestResolver_ReservedSlotUnavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.reserve(t, "2024-01-15", "11:00", 1, domain.MethodCash)

	slots, err := h.engine.Resolver.ResolveDay(context.Background(), fieldID, mustDate(t, "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15 10:00"}, availableStarts(slots))
}

func TestResolver_LatestTemplateWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	later := time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC)
	h.store.templates["tpl-2"] = domain.AvailabilityTemplate{
		ID:         "tpl-2",
		ResourceID: fieldID,
		From:       mustDate(t, "2024-01-15"),
		To:         mustDate(t, "2024-01-15"),
		StartTime:  mustClock(t, "11:00"),
		EndTime:    mustClock(t, "13:00"),
		Available:  false,
		CreatedAt:  later,
		UpdatedAt:  later,
	}

	slots, err := h.engine.Resolver.ResolveDay(context.Background(), fieldID, mustDate(t, "2024-01-15"))
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"2024-01-15 10:00"}, availableStarts(slots))

	_, err = h.engine.Reservations.Create(context.Background(), requester, CreateReservationInput{
		ResourceID: fieldID, Date: mustDate(t, "2024-01-15"), StartTime: mustClock(t, "11:00"),
		DurationHours: 1, PaymentMethod: domain.MethodCash,
	})
	require.ErrorIs(t, err, domain.ErrSlotNotOffered)
}

func TestResolver_ClosureBlocksWholeDay(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	resourceID := fieldID
	_, err := h.engine.Closures.AddClosure(ctx, operator, AddClosureInput{
		Date:       mustDate(t, "2024-01-15"),
		ResourceID: &resourceID,
		Reason:     "pitch maintenance",
	})
	require.NoError(t, err)

	slots, err := h.engine.Resolver.ResolveDay(ctx, fieldID, mustDate(t, "2024-01-15"))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Empty(t, availableStarts(slots))

	slots, err = h.engine.Resolver.ResolveDay(ctx, fieldID, mustDate(t, "2024-01-16"))
	require.NoError(t, err)
	assert.Len(t, availableStarts(slots), 2)
}

func TestResolver_Errors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.Resolver.Resolve(ctx, "missing", mustDate(t, "2024-01-01"), mustDate(t, "2024-01-02"))
	require.ErrorIs(t, err, domain.ErrResourceNotFound)

	_, err = h.engine.Resolver.Resolve(ctx, fieldID, mustDate(t, "2024-01-02"), mustDate(t, "2024-01-01"))
	require.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = h.engine.Resolver.Resolve(ctx, fieldID, mustDate(t, "2024-01-01"), mustDate(t, "2024-03-01"))
	require.ErrorIs(t, err, domain.ErrRangeTooLarge)

	_, err = h.engine.Resolver.Resolve(ctx, fieldID, time.Time{}, mustDate(t, "2024-01-01"))
	require.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestExpand_OrdersByDateThenStart(t *testing.T) {
	t.Parallel()

	from := mustDate(t, "2024-01-01")
	to := mustDate(t, "2024-01-02")
	stamp := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	templates := []domain.AvailabilityTemplate{
		{ID: "b", ResourceID: fieldID, From: from, To: to, StartTime: mustClock(t, "18:00"), EndTime: mustClock(t, "20:00"), Available: true, CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "a", ResourceID: fieldID, From: from, To: to, StartTime: mustClock(t, "08:00"), EndTime: mustClock(t, "09:00"), Available: true, CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "other", ResourceID: "field-2", From: from, To: to, StartTime: mustClock(t, "12:00"), EndTime: mustClock(t, "13:00"), Available: true, CreatedAt: stamp, UpdatedAt: stamp},
	}

	states := expand(fieldID, from, to, templates, nil, nil)
	require.Len(t, states, 6)
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		ordered := prev.date.Before(cur.date) || (prev.date.Equal(cur.date) && prev.start < cur.start)
		assert.True(t, ordered, "slot %d out of order", i)
	}
}
