package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventCategoryChanged = "CategoryChanged"
	EventProductChanged  = "ProductChanged"
	EventOrderCreated    = "OrderCreated"
	EventOrderPaid       = "OrderPaid"
)

// Envelope is the wire format shared by every topic. Payload carries the
// event-specific body; consumers dedup on EventID.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, traceID, correlationID string, payload []byte) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CatalogChangedPayload announces a category or product mutation so caches
// keyed on catalog reads can be dropped.
type CatalogChangedPayload struct {
	Entity string `json:"entity"` // "category" | "product"
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

type OrderCreatedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TotalAmount string `json:"total_amount"`
}

type OrderPaidPayload struct {
	OrderID         string `json:"order_id"`
	UserID          string `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	TotalAmount     string `json:"total_amount"`
}
