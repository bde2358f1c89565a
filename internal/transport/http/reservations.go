package http

import (
	"context"
	"net/http"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ReservationService is the minimal interface needed for reservation endpoints.
type ReservationService interface {
	Create(ctx context.Context, p auth.Principal, in app.CreateReservationInput) (app.CreateReservationResult, error)
	Get(ctx context.Context, p auth.Principal, id string) (domain.Reservation, error)
	Cancel(ctx context.Context, p auth.Principal, id string) (domain.Reservation, error)
}

// SettlementService is the minimal interface needed for staff payment endpoints.
type SettlementService interface {
	SettleCash(ctx context.Context, p auth.Principal, reservationID string) (domain.PaymentIntent, domain.Reservation, error)
	MarkRefunded(ctx context.Context, p auth.Principal, reservationID string) (domain.PaymentIntent, error)
}

type createReservationRequest struct {
	ResourceID      string `json:"resource_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationHours   int    `json:"duration_hours" validate:"required,min=1"`
	EquipmentRental bool   `json:"equipment_rental"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=cash card mobile_money_a mobile_money_b"`
}

func (req createReservationRequest) input() (app.CreateReservationInput, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return app.CreateReservationInput{}, err
	}
	start, err := domain.ParseClockTime(req.StartTime)
	if err != nil {
		return app.CreateReservationInput{}, err
	}
	return app.CreateReservationInput{
		ResourceID:      req.ResourceID,
		Date:            date,
		StartTime:       start,
		DurationHours:   req.DurationHours,
		EquipmentRental: req.EquipmentRental,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
	}, nil
}

// HandleCreateReservation returns an HTTP handler for booking a run of slots.
func HandleCreateReservation(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReservationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.input()
		if err != nil {
			writeDomainError(w, err)
			return
		}

		res, err := svc.Create(r.Context(), principalFrom(r), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createReservationResponse{
			Reservation: toReservationResponse(res.Reservation),
			Payment:     toIntentResponse(res.Intent),
			Checkout:    toCheckoutResponse(res.Checkout),
		})
	}
}

func HandleGetReservation(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Get(r.Context(), principalFrom(r), chi.URLParam(r, "reservationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

func HandleCancelReservation(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Cancel(r.Context(), principalFrom(r), chi.URLParam(r, "reservationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

// HandleSettleCash records payment collected at the desk.
func HandleSettleCash(svc SettlementService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent, res, err := svc.SettleCash(r.Context(), principalFrom(r), chi.URLParam(r, "reservationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settlementResponse{
			Reservation: toReservationResponse(res),
			Payment:     toIntentResponse(intent),
		})
	}
}

// HandleMarkRefunded records that a refund was paid out.
func HandleMarkRefunded(svc SettlementService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent, err := svc.MarkRefunded(r.Context(), principalFrom(r), chi.URLParam(r, "reservationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toIntentResponse(intent))
	}
}
