package payments

import (
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

// Provider names a webhook-confirmed payment channel.
type Provider string

const (
	ProviderCard         Provider = "card"
	ProviderMobileMoneyA Provider = "mobile_money_a"
	ProviderMobileMoneyB Provider = "mobile_money_b"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderCard, ProviderMobileMoneyA, ProviderMobileMoneyB:
		return p, nil
	}
	return "", domain.ErrUnknownProvider
}

// Method is the payment method settled through this provider.
func (p Provider) Method() domain.PaymentMethod {
	return domain.PaymentMethod(p)
}

type EventType string

const (
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventRefunded  EventType = "refunded"
)

// Event is a provider notification normalized across providers.
type Event struct {
	Provider       Provider
	EventRef       string
	Type           EventType
	TransactionRef string
	MerchantRef    string
	Amount         int64
}

// DeliveryKey identifies the delivery for deduplication.
func (e Event) DeliveryKey() string {
	return string(e.Provider) + ":" + e.EventRef
}
