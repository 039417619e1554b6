package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEvent announces that the ledger changed. It carries only ids and the
// revision; consumers read the current state from storage.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	IDs       []string  `json:"ids,omitempty"`
	Type      string    `json:"type,omitempty"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind string, ids []string, revision uint64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		IDs:       ids,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message body. An event without a kind is
// rejected.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, fmt.Errorf("ledger event without kind")
	}
	return &msg, nil
}
