// AngelaMos | 2026
// failure.go

package event

import (
	"context"
	"encoding/json"
	"time"
)

// Failure is a ledger entry for one reaction that did not complete. There is
// at most one entry per (EventID, Reaction); recording again bumps Attempts.
type Failure struct {
	ID         string          `json:"id"`
	EventID    string          `json:"eventId"`
	EventType  Type            `json:"eventType"`
	Reaction   string          `json:"reaction"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
	Error      string          `json:"error"`
	Attempts   int             `json:"attempts"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (f Failure) Event() Event {
	return Event{
		ID:         f.EventID,
		Type:       f.EventType,
		Payload:    f.Payload,
		OccurredAt: f.OccurredAt,
	}
}

func (f Failure) Resolved() bool {
	return f.ResolvedAt != nil
}

type FailureFilter struct {
	IncludeResolved bool
	Limit           int
}

type FailureStore interface {
	// Record inserts a failure or, for a known (EventID, Reaction), stores
	// the new error, increments Attempts and clears ResolvedAt.
	Record(ctx context.Context, f *Failure) error
	// Pending returns unresolved failures, fewest attempts first and then
	// least recently tried, so entries that keep failing cannot hold the
	// head of the queue.
	Pending(ctx context.Context, limit int) ([]Failure, error)
	Resolve(ctx context.Context, id string) error
	List(ctx context.Context, filter FailureFilter) ([]Failure, error)
}
