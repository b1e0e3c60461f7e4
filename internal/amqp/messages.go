package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names a ledger change.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
	CategoryDeleted    EventKind = "category.deleted"
	BudgetChanged      EventKind = "budget.changed"
)

// LedgerEventMessage is a lightweight notification of a ledger change.
// It carries ids only; consumers fetch the record from the store.
type LedgerEventMessage struct {
	Kind      EventKind `json:"kind"`
	OwnerID   string    `json:"owner_id"`
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(kind EventKind, ownerID, entityID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.EntityID == "" {
		return nil, fmt.Errorf("incomplete ledger event: kind=%q entity_id=%q", msg.Kind, msg.EntityID)
	}
	return &msg, nil
}
