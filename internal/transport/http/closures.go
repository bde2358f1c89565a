package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ClosureManager is the minimal interface needed for closure endpoints.
type ClosureManager interface {
	AddClosure(ctx context.Context, p auth.Principal, in app.AddClosureInput) (app.AddClosureResult, error)
	RemoveClosure(ctx context.Context, p auth.Principal, id string) error
	ListClosures(ctx context.Context, p auth.Principal, from, to time.Time) ([]domain.Closure, error)
}

type addClosureRequest struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	ResourceID *string `json:"resource_id" validate:"omitempty,min=1"`
	Reason     string  `json:"reason" validate:"required"`
}

// HandleAddClosure closes one resource, or all of them, for a date. Live
// reservations on that date are returned for follow-up, not cancelled.
func HandleAddClosure(svc ClosureManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addClosureRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date, err := domain.ParseDate(req.Date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		res, err := svc.AddClosure(r.Context(), principalFrom(r), app.AddClosureInput{
			Date:       date,
			ResourceID: req.ResourceID,
			Reason:     req.Reason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, addClosureResponse{
			Closure:   toClosureResponse(res.Closure),
			Conflicts: toReservationResponses(res.Conflicts),
		})
	}
}

func HandleRemoveClosure(svc ClosureManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.RemoveClosure(r.Context(), principalFrom(r), chi.URLParam(r, "closureID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleListClosures(svc ClosureManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		closures, err := svc.ListClosures(r.Context(), principalFrom(r), from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]closureResponse, 0, len(closures))
		for _, c := range closures {
			resp = append(resp, toClosureResponse(c))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
