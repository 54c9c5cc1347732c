// AngelaMos | 2026
// users.go

package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, u *store.User) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.users[u.ID]; ok {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		if findUserByEmail(t, u.Email) != nil {
			return fmt.Errorf("create user: %w", store.UniqueViolation(store.ConstraintUserEmail))
		}

		now := r.s.now()
		u.CreatedAt, u.UpdatedAt = now, now
		t.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	var out store.User
	err := r.s.do(ctx, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return fmt.Errorf("get user: %w", core.ErrNotFound)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	var out store.User
	err := r.s.do(ctx, func(t *tables) error {
		u := findUserByEmail(t, email)
		if u == nil {
			return fmt.Errorf("get user by email: %w", core.ErrNotFound)
		}
		out = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(t *tables) error {
		exists = findUserByEmail(t, email) != nil
		return nil
	})
	return exists, err
}

func (r *userRepo) Update(ctx context.Context, u *store.User) error {
	return r.s.do(ctx, func(t *tables) error {
		current, ok := t.users[u.ID]
		if !ok {
			return fmt.Errorf("update user: %w", core.ErrNotFound)
		}
		if other := findUserByEmail(t, u.Email); other != nil && other.ID != u.ID {
			return fmt.Errorf("update user: %w", store.UniqueViolation(store.ConstraintUserEmail))
		}

		current.FirstName = u.FirstName
		current.LastName = u.LastName
		current.Email = u.Email
		current.PhoneNumber = u.PhoneNumber
		current.Photo = u.Photo
		current.UpdatedAt = r.s.now()
		t.users[u.ID] = current
		u.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.s.do(ctx, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return fmt.Errorf("update password: %w", core.ErrNotFound)
		}
		u.PasswordHash = passwordHash
		u.UpdatedAt = r.s.now()
		t.users[id] = u
		return nil
	})
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.s.do(ctx, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return fmt.Errorf("increment token version: %w", core.ErrNotFound)
		}
		u.TokenVersion++
		u.UpdatedAt = r.s.now()
		t.users[id] = u
		return nil
	})
}

// Delete removes the user with its role assignments and refresh tokens.
// It refuses while a membership still references the user.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return fmt.Errorf("delete user: %w", core.ErrNotFound)
		}
		for _, m := range t.memberships {
			if m.UserID == id {
				return fmt.Errorf("delete user: %w",
					store.ForeignKeyViolation(store.ConstraintMembershipUserFK, true))
			}
		}

		for rid, ra := range t.roles {
			if ra.UserID == id {
				delete(t.roles, rid)
			}
		}
		for tid, tok := range t.tokens {
			if tok.UserID == id {
				delete(t.tokens, tid)
			}
		}
		delete(t.users, id)
		return nil
	})
}

func (r *userRepo) List(ctx context.Context, filter store.UserFilter) ([]store.User, int, error) {
	filter.Normalize()

	var (
		users []store.User
		total int
	)
	err := r.s.do(ctx, func(t *tables) error {
		search := strings.ToLower(filter.Search)

		matched := make([]store.User, 0, len(t.users))
		for _, u := range t.users {
			if search != "" &&
				!strings.Contains(strings.ToLower(u.Email), search) &&
				!strings.Contains(strings.ToLower(u.FirstName), search) &&
				!strings.Contains(strings.ToLower(u.LastName), search) {
				continue
			}
			if filter.Role != "" && !hasRole(t, u.ID, string(filter.Role)) {
				continue
			}
			matched = append(matched, u)
		}

		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})

		total = len(matched)
		users = paginate(matched, filter.Page)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func findUserByEmail(t *tables, email string) *store.User {
	for _, u := range t.users {
		if u.Email == email {
			return &u
		}
	}
	return nil
}

func hasRole(t *tables, userID, role string) bool {
	for _, ra := range t.roles {
		if ra.UserID == userID && string(ra.Name) == role {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page store.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
