package domain

import "time"

type ReviewKind string

const (
	ReviewAmountMismatch   ReviewKind = "amount_mismatch"
	ReviewSignatureFailure ReviewKind = "signature_failure"
	ReviewOutOfOrder       ReviewKind = "out_of_order"
	ReviewRefundFailed     ReviewKind = "refund_failed"
)

// ReviewItem is an entry in the operator review queue.
type ReviewItem struct {
	ID         string
	Kind       ReviewKind
	Reference  string
	IntentID   *string
	Detail     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

type RefundStatus string

const (
	RefundPending    RefundStatus = "pending"
	RefundDispatched RefundStatus = "dispatched"
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

// RefundRequest is the recorded obligation to return a payment. At most one
// exists per reservation.
type RefundRequest struct {
	ID            string
	ReservationID string
	IntentID      string
	Amount        int64
	Method        PaymentMethod
	Status        RefundStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WebhookEvent records an accepted provider delivery.
type WebhookEvent struct {
	Provider   string
	EventRef   string
	Type       string
	IntentID   *string
	ReceivedAt time.Time
}
