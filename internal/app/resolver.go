package app

import (
	"context"
	"sort"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

// MaxRangeDays bounds a single availability query.
const MaxRangeDays = 31

// Resolver expands templates, closures and live reservations into concrete
// per-hour availability. It only reads.
type Resolver struct {
	catalog CatalogReader
}

func NewResolver(catalog CatalogReader) *Resolver {
	return &Resolver{catalog: catalog}
}

// slotState keeps why a slot is unavailable so the orchestrator can report it.
type slotState struct {
	date    time.Time
	start   domain.ClockTime
	offered bool
	closed  bool
	taken   bool
}

func (s slotState) available() bool {
	return s.offered && !s.closed && !s.taken
}

// Resolve returns the slots of resourceID between from and to inclusive,
// ordered by date then start time.
func (r *Resolver) Resolve(ctx context.Context, resourceID string, from, to time.Time) ([]domain.SlotDescriptor, error) {
	states, err := r.states(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SlotDescriptor, 0, len(states))
	for _, s := range states {
		out = append(out, domain.SlotDescriptor{
			Date:      s.date,
			StartTime: s.start,
			EndTime:   s.start.Add(domain.SlotLength),
			Available: s.available(),
		})
	}
	return out, nil
}

// ResolveDay is Resolve for a single date.
func (r *Resolver) ResolveDay(ctx context.Context, resourceID string, date time.Time) ([]domain.SlotDescriptor, error) {
	return r.Resolve(ctx, resourceID, date, date)
}

func (r *Resolver) states(ctx context.Context, resourceID string, from, to time.Time) ([]slotState, error) {
	if from.IsZero() || to.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidDate
	}
	if domain.DaysBetween(from, to) > MaxRangeDays {
		return nil, domain.ErrRangeTooLarge
	}

	if _, err := r.catalog.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	templates, err := r.catalog.ListTemplatesInRange(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	closures, err := r.catalog.ListClosuresInRange(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	claims, err := r.catalog.ListClaimsInRange(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}

	return expand(resourceID, from, to, templates, closures, claims), nil
}

type slotKey struct {
	date  string
	start domain.ClockTime
}

func expand(resourceID string, from, to time.Time, templates []domain.AvailabilityTemplate, closures []domain.Closure, claims []domain.SlotClaim) []slotState {
	closed := make(map[string]bool, len(closures))
	for _, c := range closures {
		if c.Applies(resourceID) {
			closed[domain.FormatDate(c.Date)] = true
		}
	}
	taken := make(map[slotKey]bool, len(claims))
	for _, c := range claims {
		if c.ResourceID == resourceID {
			taken[slotKey{date: domain.FormatDate(c.Date), start: c.StartTime}] = true
		}
	}

	var out []slotState
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		winners := make(map[domain.ClockTime]domain.AvailabilityTemplate)
		for _, t := range templates {
			if t.ResourceID != resourceID || !t.Covers(day) {
				continue
			}
			for _, start := range t.Starts() {
				if cur, ok := winners[start]; !ok || t.Supersedes(cur) {
					winners[start] = t
				}
			}
		}

		starts := make([]domain.ClockTime, 0, len(winners))
		for start := range winners {
			starts = append(starts, start)
		}
		sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

		dateKey := domain.FormatDate(day)
		for _, start := range starts {
			out = append(out, slotState{
				date:    day,
				start:   start,
				offered: winners[start].Available,
				closed:  closed[dateKey],
				taken:   taken[slotKey{date: dateKey, start: start}],
			})
		}
	}
	return out
}
