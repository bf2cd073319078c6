// Package events defines the publisher contract for sync lifecycle events and
// the payloads the sync engine emits.
package events

import "time"

const (
	TopicSyncCompleted = "ledger.sync.completed"
)

// Publisher delivers an event to interested consumers. Publishing is
// best-effort: the sync engine logs failures and moves on.
type Publisher interface {
	Publish(topic string, event any) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(topic string, event any) error { return nil }

// SyncCompleted is emitted after every drain pass, whether or not all
// entries succeeded.
type SyncCompleted struct {
	Processed   int       `json:"processed"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}
