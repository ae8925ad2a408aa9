package payments

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Event kinds after classifying the gateway's event type string.
type eventKind int

const (
	eventKindIgnored eventKind = iota
	eventKindSucceeded
	eventKindFailed
)

// GatewayEvent is the tolerated wire shape of an inbound webhook event:
// a top-level event id and type plus a nested charge/checkout object that
// carries the intent reference, amount and owning account metadata.
type GatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			Amount        int64  `json:"amount"`
			Currency      string `json:"currency"`
			PaymentMethod string `json:"payment_method"`
			Customer      string `json:"customer"`
			Metadata      struct {
				UserID string `json:"user_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseGatewayEvent decodes a raw webhook payload.
func ParseGatewayEvent(payload []byte) (*GatewayEvent, error) {
	var ev GatewayEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, errors.New("gateway event payload missing type")
	}
	return &ev, nil
}

// OwnerUserID resolves the owning account id carried in the event metadata.
func (e *GatewayEvent) OwnerUserID() (uint, error) {
	raw := strings.TrimSpace(e.Data.Object.Metadata.UserID)
	if raw == "" {
		return 0, errors.New("gateway event missing user_id metadata")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.New("gateway event user_id metadata is not numeric")
	}
	return uint(id), nil
}

// IntentRef returns the gateway's idempotency-relevant intent reference.
func (e *GatewayEvent) IntentRef() string {
	return strings.TrimSpace(e.Data.Object.ID)
}

func classifyEventType(eventType string) eventKind {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "checkout.completed", "payment.succeeded":
		return eventKindSucceeded
	case "payment.failed":
		return eventKindFailed
	default:
		return eventKindIgnored
	}
}
