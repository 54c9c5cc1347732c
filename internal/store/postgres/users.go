// AngelaMos | 2026
// users.go

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const userColumns = `id, first_name, last_name, email, password_hash, phone_number, photo,
       token_version, created_at, updated_at`

type UserRepository struct {
	pool Queryer
}

func NewUserRepository(pool Queryer) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *store.User) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, phone_number, photo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING token_version, created_at, updated_at`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber, u.Photo,
	).Scan(&u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err, false))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*store.User, error) {
	exec := QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	exec := QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exec := QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, u *store.User) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		UPDATE users
		   SET first_name = $2, last_name = $3, email = $4, phone_number = $5,
		       photo = $6, updated_at = NOW()
		 WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.Photo,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err, false))
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
}

func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "increment token version", `
		UPDATE users SET token_version = token_version + 1, updated_at = NOW() WHERE id = $1`,
		id)
}

// Delete removes the user row. Role assignments and refresh tokens go with
// it through ON DELETE CASCADE; memberships must be removed first.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translate(err, true))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter store.UserFilter) ([]store.User, int, error) {
	filter.Normalize()

	var (
		conditions []string
		args       []any
	)
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		p := "$" + strconv.Itoa(len(args))
		conditions = append(conditions,
			"(email ILIKE "+p+" OR first_name ILIKE "+p+" OR last_name ILIKE "+p+")")
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = users.id AND ur.name = $"+
				strconv.Itoa(len(args))+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	exec := QueryerFromContext(ctx, r.pool)

	var total int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := `SELECT ` + userColumns + ` FROM users` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]store.User, 0, filter.PageSize)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.PhoneNumber,
		&u.Photo, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
