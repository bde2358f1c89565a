package http

import (
	"context"
	"net/http"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ReviewService is the minimal interface needed for the operator review queue.
type ReviewService interface {
	ReviewQueue(ctx context.Context, p auth.Principal) ([]domain.ReviewItem, error)
	ResolveReview(ctx context.Context, p auth.Principal, intentID string, accept bool) (domain.PaymentIntent, error)
	DismissReviewItem(ctx context.Context, p auth.Principal, id string) error
}

type resolveReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

func HandleReviewQueue(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ReviewQueue(r.Context(), principalFrom(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]reviewItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, toReviewItemResponse(item))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleResolveReview accepts or rejects a payment held for review.
func HandleResolveReview(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveReviewRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		intent, err := svc.ResolveReview(r.Context(), principalFrom(r), chi.URLParam(r, "intentID"), req.Decision == "accept")
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toIntentResponse(intent))
	}
}

func HandleDismissReviewItem(svc ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DismissReviewItem(r.Context(), principalFrom(r), chi.URLParam(r, "itemID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
