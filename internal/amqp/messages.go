package amqp

import (
	"encoding/json"
	"time"

	"fincontrol/internal/core"
)

// ChangeMessage announces a ledger mutation. It carries identifiers only;
// consumers read current state from the API.
type ChangeMessage struct {
	Op        string    `json:"op"`
	Kind      string    `json:"kind,omitempty"`
	ID        string    `json:"id,omitempty"`
	At        time.Time `json:"at"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage wraps a change event, stamping the publish time.
func NewChangeMessage(ev core.ChangeEvent) *ChangeMessage {
	return &ChangeMessage{
		Op:        ev.Op,
		Kind:      string(ev.Kind),
		ID:        ev.ID,
		At:        ev.At,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RoutingKey appends the operation to base, so consumers can bind to
// "base.*" or to a single operation.
func RoutingKey(base, op string) string {
	if op == "" {
		return base
	}
	return base + "." + op
}
