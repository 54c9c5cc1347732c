// AngelaMos | 2026
// roles.go

package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type roleRepo struct {
	s *Store
}

func (r *roleRepo) Assign(ctx context.Context, a *store.RoleAssignment) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.users[a.UserID]; !ok {
			return fmt.Errorf("assign role: %w",
				store.ForeignKeyViolation(store.ConstraintRoleUserFK, false))
		}
		if hasRole(t, a.UserID, string(a.Name)) {
			return fmt.Errorf("assign role: %w", store.UniqueViolation(store.ConstraintRoleUserName))
		}
		if _, ok := t.roles[a.ID]; ok {
			return fmt.Errorf("assign role: %w", core.ErrDuplicateKey)
		}

		a.CreatedAt = r.s.now()
		stored := *a
		stored.Permissions = slices.Clone(a.Permissions)
		t.roles[a.ID] = stored
		return nil
	})
}

func (r *roleRepo) ListByUser(ctx context.Context, userID string) ([]store.RoleAssignment, error) {
	var out []store.RoleAssignment
	err := r.s.do(ctx, func(t *tables) error {
		for _, ra := range t.roles {
			if ra.UserID == userID {
				ra.Permissions = slices.Clone(ra.Permissions)
				out = append(out, ra)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

func (r *roleRepo) Exists(ctx context.Context, userID string, role rbac.Role) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(t *tables) error {
		exists = hasRole(t, userID, string(role))
		return nil
	})
	return exists, err
}

func (r *roleRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.s.do(ctx, func(t *tables) error {
		for id, ra := range t.roles {
			if ra.UserID == userID {
				delete(t.roles, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
