package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Signature"

// WebhookConfirmer is the minimal interface needed to accept provider callbacks.
type WebhookConfirmer interface {
	ConfirmFromWebhook(ctx context.Context, d app.WebhookDelivery) (app.Ack, error)
}

// HandleWebhook passes the raw body to the reconciler untouched so the
// signature can be checked over the exact bytes the provider sent.
// An amount mismatch is acknowledged with a 202: the provider must not retry
// it, and an operator picks it up from the review queue.
func HandleWebhook(svc WebhookConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ack, err := svc.ConfirmFromWebhook(r.Context(), app.WebhookDelivery{
			Provider:  chi.URLParam(r, "provider"),
			Signature: r.Header.Get(SignatureHeader),
			Body:      body,
		})
		if err != nil {
			var mismatch *domain.PaymentMismatchError
			if errors.As(err, &mismatch) {
				writeJSON(w, http.StatusAccepted, toAckResponse(ack))
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAckResponse(ack))
	}
}
