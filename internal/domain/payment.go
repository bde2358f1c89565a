package domain

import "time"

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodMobileMoneyA PaymentMethod = "mobile_money_a"
	MethodMobileMoneyB PaymentMethod = "mobile_money_b"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobileMoneyA, MethodMobileMoneyB:
		return true
	}
	return false
}

// Deferred reports whether the method settles out of band through a provider webhook.
func (m PaymentMethod) Deferred() bool {
	return m == MethodCard || m == MethodMobileMoneyA || m == MethodMobileMoneyB
}

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
	IntentRefunded  IntentStatus = "refunded"
)

// CanTransition reports whether from -> to is a legal intent edge.
func CanTransition(from, to IntentStatus) bool {
	switch from {
	case IntentPending:
		return to == IntentCompleted || to == IntentFailed
	case IntentCompleted:
		return to == IntentRefunded
	}
	return false
}

// PaymentStatusFor derives a reservation's payment status from its intent.
func PaymentStatusFor(s IntentStatus) PaymentStatus {
	switch s {
	case IntentCompleted:
		return PaymentPaid
	case IntentRefunded:
		return PaymentRefunded
	default:
		return PaymentPending
	}
}

// PaymentIntent tracks the payment lifecycle of one reservation.
// NeedsReview holds the intent for an operator without adding a status edge.
type PaymentIntent struct {
	ID            string
	ReservationID string
	Amount        int64
	Method        PaymentMethod
	Status        IntentStatus
	MerchantRef   string
	ProviderRef   *string
	SettledBy     *string
	NeedsReview   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
