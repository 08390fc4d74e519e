package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

// Event names carried in LedgerEvent.Event.
const (
	EventTransactionCreated   = "transaction.created"
	EventTransactionDeleted   = "transaction.deleted"
	EventTransactionsImported = "transactions.imported"
)

// LedgerEvent is the message published for every ledger change.
// Fields not relevant to the event are omitted.
type LedgerEvent struct {
	Event      string    `json:"event"`
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Value      string    `json:"value,omitempty"`
	Type       string    `json:"type,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewTransactionCreatedEvent describes a stored transaction.
func NewTransactionCreatedEvent(t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Event:      EventTransactionCreated,
		ID:         t.ID,
		Title:      t.Title,
		Value:      t.Value.String(),
		Type:       t.Type.String(),
		CategoryID: t.CategoryID,
		Timestamp:  time.Now(),
	}
}

// NewTransactionDeletedEvent carries just the removed id.
func NewTransactionDeletedEvent(id string) *LedgerEvent {
	return &LedgerEvent{
		Event:     EventTransactionDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// NewTransactionsImportedEvent carries the number of imported rows.
func NewTransactionsImportedEvent(count int) *LedgerEvent {
	return &LedgerEvent{
		Event:     EventTransactionsImported,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
