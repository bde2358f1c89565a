package http

import (
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/app"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/payments"
)

type slotResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

func toSlotResponses(slots []domain.SlotDescriptor) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			Date:      domain.FormatDate(s.Date),
			StartTime: s.StartTime.String(),
			EndTime:   s.EndTime.String(),
			Available: s.Available,
		})
	}
	return out
}

type reservationResponse struct {
	ID              string    `json:"id"`
	ResourceID      string    `json:"resource_id"`
	RequesterID     string    `json:"requester_id"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationHours   int       `json:"duration_hours"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	TotalPrice      int64     `json:"total_price"`
	EquipmentRental bool      `json:"equipment_rental"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:              r.ID,
		ResourceID:      r.ResourceID,
		RequesterID:     r.RequesterID,
		Date:            domain.FormatDate(r.Date),
		StartTime:       r.StartTime.String(),
		EndTime:         r.EndTime().String(),
		DurationHours:   r.DurationHours,
		Status:          string(r.Status),
		PaymentStatus:   string(r.PaymentStatus),
		TotalPrice:      r.TotalPrice,
		EquipmentRental: r.EquipmentRental,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toReservationResponses(rs []domain.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationResponse(r))
	}
	return out
}

type intentResponse struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	MerchantRef   string    `json:"merchant_ref"`
	ProviderRef   *string   `json:"provider_ref,omitempty"`
	SettledBy     *string   `json:"settled_by,omitempty"`
	NeedsReview   bool      `json:"needs_review"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toIntentResponse(pi domain.PaymentIntent) intentResponse {
	return intentResponse{
		ID:            pi.ID,
		ReservationID: pi.ReservationID,
		Amount:        pi.Amount,
		Method:        string(pi.Method),
		Status:        string(pi.Status),
		MerchantRef:   pi.MerchantRef,
		ProviderRef:   pi.ProviderRef,
		SettledBy:     pi.SettledBy,
		NeedsReview:   pi.NeedsReview,
		UpdatedAt:     pi.UpdatedAt,
	}
}

type checkoutResponse struct {
	MerchantRef string `json:"merchant_ref"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

func toCheckoutResponse(c payments.Checkout) checkoutResponse {
	return checkoutResponse{MerchantRef: c.MerchantRef, RedirectURL: c.RedirectURL}
}

type createReservationResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Payment     intentResponse      `json:"payment"`
	Checkout    checkoutResponse    `json:"checkout"`
}

type settlementResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Payment     intentResponse      `json:"payment"`
}

type ackResponse struct {
	Outcome  string `json:"outcome"`
	IntentID string `json:"intent_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

func toAckResponse(a app.Ack) ackResponse {
	return ackResponse{Outcome: string(a.Outcome), IntentID: a.IntentID, Status: string(a.Status)}
}

type closureResponse struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	ResourceID *string   `json:"resource_id"`
	Reason     string    `json:"reason"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func toClosureResponse(c domain.Closure) closureResponse {
	return closureResponse{
		ID:         c.ID,
		Date:       domain.FormatDate(c.Date),
		ResourceID: c.ResourceID,
		Reason:     c.Reason,
		CreatedBy:  c.CreatedBy,
		CreatedAt:  c.CreatedAt,
	}
}

type addClosureResponse struct {
	Closure   closureResponse       `json:"closure"`
	Conflicts []reservationResponse `json:"conflicts"`
}

type templateResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Available  bool      `json:"available"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toTemplateResponse(t domain.AvailabilityTemplate) templateResponse {
	return templateResponse{
		ID:         t.ID,
		ResourceID: t.ResourceID,
		From:       domain.FormatDate(t.From),
		To:         domain.FormatDate(t.To),
		StartTime:  t.StartTime.String(),
		EndTime:    t.EndTime.String(),
		Available:  t.Available,
		UpdatedAt:  t.UpdatedAt,
	}
}

type reviewItemResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	IntentID  *string   `json:"intent_id,omitempty"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewItemResponse(item domain.ReviewItem) reviewItemResponse {
	return reviewItemResponse{
		ID:        item.ID,
		Kind:      string(item.Kind),
		Reference: item.Reference,
		IntentID:  item.IntentID,
		Detail:    item.Detail,
		CreatedAt: item.CreatedAt,
	}
}
