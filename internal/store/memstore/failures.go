// AngelaMos | 2026
// failures.go

package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
)

type failureRepo struct {
	s *Store
}

func (r *failureRepo) Record(ctx context.Context, f *event.Failure) error {
	return r.s.do(ctx, func(t *tables) error {
		now := r.s.now()

		for id, existing := range t.failures {
			if existing.EventID == f.EventID && existing.Reaction == f.Reaction {
				existing.Error = f.Error
				existing.Attempts++
				existing.ResolvedAt = nil
				existing.UpdatedAt = now
				t.failures[id] = existing
				*f = existing
				return nil
			}
		}

		stored := *f
		stored.ID = uuid.New().String()
		stored.Payload = slices.Clone(f.Payload)
		stored.Attempts = 1
		stored.ResolvedAt = nil
		stored.CreatedAt, stored.UpdatedAt = now, now
		t.failures[stored.ID] = stored
		*f = stored
		return nil
	})
}

func (r *failureRepo) Pending(ctx context.Context, limit int) ([]event.Failure, error) {
	var out []event.Failure
	err := r.s.do(ctx, func(t *tables) error {
		out = collectFailures(t, false)
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.Attempts != b.Attempts {
				return a.Attempts < b.Attempts
			}
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
			return a.ID < b.ID
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r *failureRepo) Resolve(ctx context.Context, id string) error {
	return r.s.do(ctx, func(t *tables) error {
		f, ok := t.failures[id]
		if !ok {
			return fmt.Errorf("resolve reaction failure: %w", core.ErrNotFound)
		}
		now := r.s.now()
		f.ResolvedAt = &now
		f.UpdatedAt = now
		t.failures[id] = f
		return nil
	})
}

func (r *failureRepo) List(ctx context.Context, filter event.FailureFilter) ([]event.Failure, error) {
	var out []event.Failure
	err := r.s.do(ctx, func(t *tables) error {
		out = collectFailures(t, filter.IncludeResolved)
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
		return nil
	})
	return out, err
}

func collectFailures(t *tables, includeResolved bool) []event.Failure {
	out := make([]event.Failure, 0, len(t.failures))
	for _, f := range t.failures {
		if f.Resolved() && !includeResolved {
			continue
		}
		f.Payload = slices.Clone(f.Payload)
		out = append(out, f)
	}
	return out
}
