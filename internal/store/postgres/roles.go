// AngelaMos | 2026
// roles.go

package postgres

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type RoleRepository struct {
	pool Queryer
}

func NewRoleRepository(pool Queryer) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) Assign(ctx context.Context, a *store.RoleAssignment) error {
	perms := make([]string, 0, len(a.Permissions))
	for _, p := range a.Permissions {
		perms = append(perms, string(p))
	}

	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		INSERT INTO user_roles (id, user_id, name, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		a.ID, a.UserID, string(a.Name), perms,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("assign role: %w", translate(err, false))
	}
	return nil
}

func (r *RoleRepository) ListByUser(ctx context.Context, userID string) ([]store.RoleAssignment, error) {
	exec := QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
		SELECT id, user_id, name, permissions, created_at
		  FROM user_roles
		 WHERE user_id = $1
		 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []store.RoleAssignment
	for rows.Next() {
		var (
			a     store.RoleAssignment
			name  string
			perms []string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &name, &perms, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		a.Name = rbac.Role(name)
		for _, p := range perms {
			a.Permissions = append(a.Permissions, rbac.Permission(p))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return out, nil
}

func (r *RoleRepository) Exists(ctx context.Context, userID string, role rbac.Role) (bool, error) {
	exec := QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND name = $2)`,
		userID, string(role),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role exists: %w", err)
	}
	return exists, nil
}

func (r *RoleRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete roles: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
