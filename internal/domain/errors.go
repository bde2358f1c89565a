package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch on expected outcomes
// without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthenticated
	KindPaymentMismatch
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPaymentMismatch:
		return "payment_mismatch"
	case KindSignature:
		return "provider_signature"
	default:
		return "internal"
	}
}

// Error is a classified, expected failure. Sentinels below are compared with errors.Is.
type Error struct {
	kind Kind
	code string
	msg  string
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{kind: kind, code: code, msg: msg}
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }
func (e *Error) Code() string  { return e.code }

var (
	ErrInvalidID            = newError(KindValidation, "invalid_id", "invalid id")
	ErrInvalidDate          = newError(KindValidation, "invalid_date", "invalid date")
	ErrInvalidTime          = newError(KindValidation, "invalid_time", "invalid time of day")
	ErrRangeTooLarge        = newError(KindValidation, "range_too_large", "date range too large")
	ErrInvalidDuration      = newError(KindValidation, "invalid_duration", "invalid duration")
	ErrInvalidPaymentMethod = newError(KindValidation, "invalid_payment_method", "invalid payment method")
	ErrDateInPast           = newError(KindValidation, "date_in_past", "slot is in the past")
	ErrInvalidWindow        = newError(KindValidation, "invalid_window", "invalid availability window")
	ErrReasonRequired       = newError(KindValidation, "reason_required", "reason is required")
	ErrResourceInactive     = newError(KindValidation, "resource_inactive", "resource is not bookable")
	ErrSlotNotOffered       = newError(KindValidation, "slot_not_offered", "slot is not offered by any availability template")
	ErrInvalidWebhook       = newError(KindValidation, "invalid_webhook", "malformed webhook payload")
	ErrUnknownProvider      = newError(KindValidation, "unknown_provider", "unknown payment provider")

	ErrResourceNotFound    = newError(KindNotFound, "resource_not_found", "resource not found")
	ErrReservationNotFound = newError(KindNotFound, "reservation_not_found", "reservation not found")
	ErrIntentNotFound      = newError(KindNotFound, "payment_intent_not_found", "payment intent not found")
	ErrClosureNotFound     = newError(KindNotFound, "closure_not_found", "closure not found")
	ErrTemplateNotFound    = newError(KindNotFound, "template_not_found", "availability template not found")
	ErrReviewItemNotFound  = newError(KindNotFound, "review_item_not_found", "open review item not found")

	ErrSlotTaken                 = newError(KindConflict, "slot_taken", "slot already reserved")
	ErrSlotClosed                = newError(KindConflict, "slot_closed", "resource closed on that date")
	ErrReservationNotCancellable = newError(KindConflict, "reservation_not_cancellable", "reservation can no longer be cancelled")
	ErrIntentExists              = newError(KindConflict, "payment_intent_exists", "payment intent already initiated")
	ErrIntentAlreadySettled      = newError(KindConflict, "payment_already_settled", "payment already settled")
	ErrIntentNotSettleable       = newError(KindConflict, "payment_not_settleable", "payment cannot be settled")
	ErrNotCashPayment            = newError(KindConflict, "not_cash_payment", "only cash payments can be settled at the desk")
	ErrIntentNotInReview         = newError(KindConflict, "payment_not_in_review", "payment is not awaiting review")
	ErrIntentNotRefundable       = newError(KindConflict, "payment_not_refundable", "payment cannot be refunded")
	ErrClosureExists             = newError(KindConflict, "closure_exists", "closure already exists for that date and scope")

	ErrForbidden       = newError(KindForbidden, "forbidden", "forbidden")
	ErrUnauthenticated = newError(KindUnauthenticated, "unauthenticated", "authentication required")

	ErrProviderSignature = newError(KindSignature, "invalid_signature", "webhook signature verification failed")
)

// PaymentMismatchError reports a provider amount that disagrees with the
// reservation total. The intent is held for operator review.
type PaymentMismatchError struct {
	IntentID string
	Expected int64
	Received int64
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment %s amount mismatch: expected %d, received %d", e.IntentID, e.Expected, e.Received)
}

func (e *PaymentMismatchError) Kind() Kind   { return KindPaymentMismatch }
func (e *PaymentMismatchError) Code() string { return "payment_mismatch" }

type kinded interface {
	Kind() Kind
}

type coded interface {
	Code() string
}

// KindOf reports the kind of err. Unclassified errors are internal faults.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of a classified error.
func CodeOf(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return "internal_error"
}
