package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted after a claim mutation has committed
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	EntityType    string                 `json:"entity_type"`
	EntityID      int64                  `json:"entity_id"`
	ClaimID       int64                  `json:"claim_id"`
	Actor         string                 `json:"actor"`
	OldValues     map[string]interface{} `json:"old_values,omitempty"`
	NewValues     map[string]interface{} `json:"new_values,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, entityType string, entityID, claimID int64, actor string) *Event {
	return &Event{
		ID:            generateID(),
		Type:          eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		ClaimID:       claimID,
		Actor:         actor,
		Payload:       map[string]interface{}{},
		Timestamp:     time.Now(),
		CorrelationID: generateID(),
	}
}

// WithValues returns a copy of the event carrying before/after snapshots
func (e *Event) WithValues(oldValues, newValues map[string]interface{}) *Event {
	cp := *e
	cp.OldValues = oldValues
	cp.NewValues = newValues
	return &cp
}

// WithCorrelation returns a copy of the event linked to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	cp := *e
	if correlationID != "" {
		cp.CorrelationID = correlationID
	}
	return &cp
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// generateID returns a random (v4) UUID
func generateID() string {
	return uuid.NewString()
}
