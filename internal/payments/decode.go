package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

const cardSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "type", "data"],
  "properties": {
    "id": { "type": "string", "minLength": 1 },
    "type": { "enum": ["payment.succeeded", "payment.failed", "payment.refunded"] },
    "data": {
      "type": "object",
      "required": ["transaction_id", "merchant_reference", "amount"],
      "properties": {
        "transaction_id": { "type": "string", "minLength": 1 },
        "merchant_reference": { "type": "string" },
        "amount": { "type": "integer", "minimum": 0 }
      }
    }
  }
}`

const mobileMoneyASchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event_id", "status", "transaction_ref", "client_reference", "amount"],
  "properties": {
    "event_id": { "type": "string", "minLength": 1 },
    "status": { "enum": ["SUCCESS", "FAILED", "REFUNDED"] },
    "transaction_ref": { "type": "string", "minLength": 1 },
    "client_reference": { "type": "string" },
    "amount": { "type": "integer", "minimum": 0 }
  }
}`

const mobileMoneyBSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["notification_id", "transaction"],
  "properties": {
    "notification_id": { "type": "string", "minLength": 1 },
    "transaction": {
      "type": "object",
      "required": ["id", "order_ref", "amount", "state"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "order_ref": { "type": "string" },
        "amount": { "type": "integer", "minimum": 0 },
        "state": { "enum": ["completed", "failed", "reversed"] }
      }
    }
  }
}`

var schemas = map[Provider]gojsonschema.JSONLoader{
	ProviderCard:         gojsonschema.NewStringLoader(cardSchema),
	ProviderMobileMoneyA: gojsonschema.NewStringLoader(mobileMoneyASchema),
	ProviderMobileMoneyB: gojsonschema.NewStringLoader(mobileMoneyBSchema),
}

type cardPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		TransactionID     string `json:"transaction_id"`
		MerchantReference string `json:"merchant_reference"`
		Amount            int64  `json:"amount"`
	} `json:"data"`
}

type mobileMoneyAPayload struct {
	EventID         string `json:"event_id"`
	Status          string `json:"status"`
	TransactionRef  string `json:"transaction_ref"`
	ClientReference string `json:"client_reference"`
	Amount          int64  `json:"amount"`
}

type mobileMoneyBPayload struct {
	NotificationID string `json:"notification_id"`
	Transaction    struct {
		ID       string `json:"id"`
		OrderRef string `json:"order_ref"`
		Amount   int64  `json:"amount"`
		State    string `json:"state"`
	} `json:"transaction"`
}

// Decode validates a provider payload against its schema and normalizes it.
func Decode(p Provider, body []byte) (Event, error) {
	schema, ok := schemas[p]
	if !ok {
		return Event{}, domain.ErrUnknownProvider
	}
	if err := validateSchema(schema, body); err != nil {
		return Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidWebhook, err)
	}

	switch p {
	case ProviderCard:
		var in cardPayload
		if err := json.Unmarshal(body, &in); err != nil {
			return Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidWebhook, err)
		}
		return Event{
			Provider:       p,
			EventRef:       in.ID,
			Type:           EventType(strings.TrimPrefix(in.Type, "payment.")),
			TransactionRef: in.Data.TransactionID,
			MerchantRef:    in.Data.MerchantReference,
			Amount:         in.Data.Amount,
		}, nil
	case ProviderMobileMoneyA:
		var in mobileMoneyAPayload
		if err := json.Unmarshal(body, &in); err != nil {
			return Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidWebhook, err)
		}
		types := map[string]EventType{"SUCCESS": EventSucceeded, "FAILED": EventFailed, "REFUNDED": EventRefunded}
		return Event{
			Provider:       p,
			EventRef:       in.EventID,
			Type:           types[in.Status],
			TransactionRef: in.TransactionRef,
			MerchantRef:    in.ClientReference,
			Amount:         in.Amount,
		}, nil
	default:
		var in mobileMoneyBPayload
		if err := json.Unmarshal(body, &in); err != nil {
			return Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidWebhook, err)
		}
		types := map[string]EventType{"completed": EventSucceeded, "failed": EventFailed, "reversed": EventRefunded}
		return Event{
			Provider:       p,
			EventRef:       in.NotificationID,
			Type:           types[in.Transaction.State],
			TransactionRef: in.Transaction.ID,
			MerchantRef:    in.Transaction.OrderRef,
			Amount:         in.Transaction.Amount,
		}, nil
	}
}

func validateSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, e := range result.Errors() {
			sb.WriteString(e.String())
			sb.WriteString("; ")
		}
		return fmt.Errorf("payload does not conform to schema: %s", sb.String())
	}
	return nil
}
