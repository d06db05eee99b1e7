// Package events publishes bill lifecycle notifications to a message broker.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/billtrack/billtrack/internal/model"
)

// Event types, also used as routing keys.
const (
	TypeBillCreated = "bill.created"
	TypeBillUpdated = "bill.updated"
)

// BillEvent is the message body published for a bill change.
type BillEvent struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Bill       *model.Bill `json:"bill"`
	// Changed lists the patched fields for bill.updated.
	Changed []string `json:"changed,omitempty"`
}

// NewBillEvent builds an event stamped with the current time.
func NewBillEvent(eventType string, bill *model.Bill, changed ...string) BillEvent {
	return BillEvent{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Bill:       bill,
		Changed:    changed,
	}
}

// ToJSON encodes the event.
func (e BillEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends bill events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event BillEvent) error
	Close() error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(context.Context, BillEvent) error { return nil }

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []BillEvent
	// Err, when set, is returned from every Publish.
	Err error
}

// Publish stores the event unless Err is set.
func (m *MemoryPublisher) Publish(_ context.Context, event BillEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MemoryPublisher) Events() []BillEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BillEvent(nil), m.events...)
}

// Close is a no-op.
func (m *MemoryPublisher) Close() error { return nil }
