// AngelaMos | 2026
// event.go

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	CompanyCreated Type = "company.created"
	CompanyUpdated Type = "company.updated"
	CompanyDeleted Type = "company.deleted"
	StaffCreated   Type = "company_staff.created"
	StaffUpdated   Type = "company_staff.updated"
	StaffDeleted   Type = "company_staff.deleted"
	UserDeleted    Type = "user.deleted"
)

// Event is an immutable record of one committed aggregate mutation.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func New(t Type, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", t, err)
	}

	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Reaction performs follow-up work for a committed event. It must be safe to
// run again with the same event.
type Reaction func(ctx context.Context, e Event) error
