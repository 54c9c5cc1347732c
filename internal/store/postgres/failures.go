// AngelaMos | 2026
// failures.go

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
)

const failureColumns = `id, event_id, event_type, reaction, payload::text AS payload, occurred_at,
		       error, attempts, resolved_at, created_at, updated_at`

type failureRow struct {
	ID         string     `db:"id"`
	EventID    string     `db:"event_id"`
	EventType  string     `db:"event_type"`
	Reaction   string     `db:"reaction"`
	Payload    string     `db:"payload"`
	OccurredAt time.Time  `db:"occurred_at"`
	Error      string     `db:"error"`
	Attempts   int        `db:"attempts"`
	ResolvedAt *time.Time `db:"resolved_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r failureRow) toFailure() event.Failure {
	return event.Failure{
		ID:         r.ID,
		EventID:    r.EventID,
		EventType:  event.Type(r.EventType),
		Reaction:   r.Reaction,
		Payload:    json.RawMessage(r.Payload),
		OccurredAt: r.OccurredAt,
		Error:      r.Error,
		Attempts:   r.Attempts,
		ResolvedAt: r.ResolvedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// FailureRepository is the reaction failure ledger on reaction_failures.
type FailureRepository struct {
	db core.DBTX
}

func NewFailureRepository(db core.DBTX) *FailureRepository {
	return &FailureRepository{db: db}
}

func (r *FailureRepository) Record(ctx context.Context, f *event.Failure) error {
	query := `
		INSERT INTO reaction_failures (id, event_id, event_type, reaction, payload, occurred_at, error)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (event_id, reaction) DO UPDATE
		   SET error = EXCLUDED.error,
		       attempts = reaction_failures.attempts + 1,
		       resolved_at = NULL,
		       updated_at = NOW()
		RETURNING ` + failureColumns

	var row failureRow
	err := r.db.GetContext(ctx, &row, query,
		uuid.New().String(),
		f.EventID,
		string(f.EventType),
		f.Reaction,
		string(f.Payload),
		f.OccurredAt,
		f.Error,
	)
	if err != nil {
		return fmt.Errorf("record reaction failure: %w", err)
	}

	*f = row.toFailure()
	return nil
}

func (r *FailureRepository) Pending(ctx context.Context, limit int) ([]event.Failure, error) {
	query := `
		SELECT ` + failureColumns + `
		  FROM reaction_failures
		 WHERE resolved_at IS NULL
		 ORDER BY attempts, updated_at, id
		 LIMIT $1`

	var rows []failureRow
	if err := r.db.SelectContext(ctx, &rows, query, limitOrAll(limit)); err != nil {
		return nil, fmt.Errorf("list pending failures: %w", err)
	}
	return toFailures(rows), nil
}

func (r *FailureRepository) Resolve(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reaction_failures
		   SET resolved_at = NOW(), updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("resolve reaction failure: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve reaction failure: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resolve reaction failure: %w", core.ErrNotFound)
	}
	return nil
}

func (r *FailureRepository) List(ctx context.Context, filter event.FailureFilter) ([]event.Failure, error) {
	query := `
		SELECT ` + failureColumns + `
		  FROM reaction_failures
		 WHERE $1 OR resolved_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`

	var rows []failureRow
	if err := r.db.SelectContext(ctx, &rows, query, filter.IncludeResolved, limitOrAll(filter.Limit)); err != nil {
		return nil, fmt.Errorf("list reaction failures: %w", err)
	}
	return toFailures(rows), nil
}

func toFailures(rows []failureRow) []event.Failure {
	out := make([]event.Failure, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toFailure())
	}
	return out
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}

var _ event.FailureStore = (*FailureRepository)(nil)
