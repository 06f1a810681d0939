package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent announces a committed change to one transaction.
// Transaction is omitted for deletions.
type TransactionEvent struct {
	Event       EventType         `json:"event"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionEvent(event EventType, id string, tx *core.Transaction) TransactionEvent {
	return TransactionEvent{
		Event:       event,
		ID:          id,
		Transaction: tx,
		Timestamp:   time.Now().UTC(),
	}
}

// RoutingKey is the topic key the event is published under, e.g. "transaction.created".
func (e TransactionEvent) RoutingKey() string {
	return "transaction." + string(e.Event)
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
