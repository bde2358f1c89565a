package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AvailabilityResolver is the minimal interface needed to list slots.
type AvailabilityResolver interface {
	Resolve(ctx context.Context, resourceID string, from, to time.Time) ([]domain.SlotDescriptor, error)
	ResolveDay(ctx context.Context, resourceID string, date time.Time) ([]domain.SlotDescriptor, error)
}

// HandleAvailability serves ?date= for one day or ?from=&to= for a range.
func HandleAvailability(svc AvailabilityResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID := chi.URLParam(r, "resourceID")
		q := r.URL.Query()

		var (
			slots []domain.SlotDescriptor
			err   error
		)
		if raw := q.Get("date"); raw != "" {
			date, perr := domain.ParseDate(raw)
			if perr != nil {
				writeDomainError(w, perr)
				return
			}
			slots, err = svc.ResolveDay(r.Context(), resourceID, date)
		} else {
			from, to, perr := parseRange(q.Get("from"), q.Get("to"))
			if perr != nil {
				writeDomainError(w, perr)
				return
			}
			slots, err = svc.Resolve(r.Context(), resourceID, from, to)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	if rawFrom == "" || rawTo == "" {
		return time.Time{}, time.Time{}, domain.ErrInvalidDate
	}
	from, err := domain.ParseDate(rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := domain.ParseDate(rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
