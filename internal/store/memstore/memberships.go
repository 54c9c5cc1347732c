// AngelaMos | 2026
// memberships.go

package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type membershipRepo struct {
	s *Store
}

func (r *membershipRepo) Create(ctx context.Context, m *store.Membership) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.memberships[m.ID]; ok {
			return fmt.Errorf("create membership: %w", core.ErrDuplicateKey)
		}
		if _, ok := t.companies[m.CompanyID]; !ok {
			return fmt.Errorf("create membership: %w",
				store.ForeignKeyViolation(store.ConstraintMembershipCompany, false))
		}
		if _, ok := t.users[m.UserID]; !ok {
			return fmt.Errorf("create membership: %w",
				store.ForeignKeyViolation(store.ConstraintMembershipUserFK, false))
		}
		if err := checkMembershipUnique(t, m); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}

		now := r.s.now()
		m.CreatedAt, m.UpdatedAt = now, now
		t.memberships[m.ID] = copyMembership(*m)
		return nil
	})
}

func (r *membershipRepo) GetByID(ctx context.Context, id string) (*store.Membership, error) {
	var out store.Membership
	err := r.s.do(ctx, func(t *tables) error {
		m, ok := t.memberships[id]
		if !ok {
			return fmt.Errorf("get membership: %w", core.ErrNotFound)
		}
		out = copyMembership(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *membershipRepo) GetByUser(ctx context.Context, userID string) (*store.Membership, error) {
	var out store.Membership
	err := r.s.do(ctx, func(t *tables) error {
		for _, m := range t.memberships {
			if m.UserID == userID {
				out = copyMembership(m)
				return nil
			}
		}
		return fmt.Errorf("get membership by user: %w", core.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *membershipRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(t *tables) error {
		for _, m := range t.memberships {
			if m.PhoneNumber != nil && *m.PhoneNumber == phone {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *membershipRepo) Update(ctx context.Context, m *store.Membership) error {
	return r.s.do(ctx, func(t *tables) error {
		current, ok := t.memberships[m.ID]
		if !ok {
			return fmt.Errorf("update membership: %w", core.ErrNotFound)
		}
		if _, ok := t.companies[m.CompanyID]; !ok {
			return fmt.Errorf("update membership: %w",
				store.ForeignKeyViolation(store.ConstraintMembershipCompany, false))
		}
		if err := checkMembershipUnique(t, m); err != nil {
			return fmt.Errorf("update membership: %w", err)
		}

		updated := copyMembership(*m)
		updated.UserID = current.UserID
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = r.s.now()
		t.memberships[m.ID] = updated
		m.CreatedAt, m.UpdatedAt = updated.CreatedAt, updated.UpdatedAt
		return nil
	})
}

func (r *membershipRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(ctx, func(m store.Membership) bool { return m.UserID == userID })
}

func (r *membershipRepo) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	return r.deleteWhere(ctx, func(m store.Membership) bool { return m.CompanyID == companyID })
}

func (r *membershipRepo) deleteWhere(ctx context.Context, match func(store.Membership) bool) (int, error) {
	var n int
	err := r.s.do(ctx, func(t *tables) error {
		for id, m := range t.memberships {
			if match(m) {
				delete(t.memberships, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *membershipRepo) ListStaff(
	ctx context.Context,
	filter store.StaffFilter,
) ([]store.StaffMember, int, error) {
	filter.Normalize()

	var (
		out   []store.StaffMember
		total int
	)
	err := r.s.do(ctx, func(t *tables) error {
		all := make([]store.StaffMember, 0)
		for _, m := range t.memberships {
			if filter.CompanyID != "" && m.CompanyID != filter.CompanyID {
				continue
			}
			all = append(all, staffMember(t, m))
		}
		sort.Slice(all, func(i, j int) bool {
			return all[i].Membership.CreatedAt.After(all[j].Membership.CreatedAt)
		})
		total = len(all)
		out = paginate(all, filter.Page)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *membershipRepo) FindContact(ctx context.Context, companyID string) (*store.StaffMember, error) {
	var out *store.StaffMember
	err := r.s.do(ctx, func(t *tables) error {
		for _, m := range t.memberships {
			if m.CompanyID != companyID || !hasRole(t, m.UserID, string(rbac.RoleCompanyAdmin)) {
				continue
			}
			if out == nil || m.CreatedAt.Before(out.Membership.CreatedAt) {
				sm := staffMember(t, m)
				out = &sm
			}
		}
		if out == nil {
			return fmt.Errorf("find company contact: %w", core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *membershipRepo) CountByMonth(
	ctx context.Context,
	companyID string,
	year int,
) (store.MonthlyCounts, error) {
	var counts store.MonthlyCounts
	start, end := store.YearBounds(year)

	err := r.s.do(ctx, func(t *tables) error {
		for _, m := range t.memberships {
			if m.CompanyID != companyID {
				continue
			}
			if !m.CreatedAt.Before(start) && m.CreatedAt.Before(end) {
				counts[m.CreatedAt.Month()-1]++
			}
		}
		return nil
	})
	return counts, err
}

func checkMembershipUnique(t *tables, m *store.Membership) error {
	for id, other := range t.memberships {
		if id == m.ID {
			continue
		}
		if other.UserID == m.UserID {
			if other.CompanyID == m.CompanyID {
				return store.UniqueViolation(store.ConstraintMembershipPair)
			}
			return store.UniqueViolation(store.ConstraintMembershipUser)
		}
		if m.PhoneNumber != nil && other.PhoneNumber != nil && *other.PhoneNumber == *m.PhoneNumber {
			return store.UniqueViolation(store.ConstraintMembershipPhone)
		}
	}
	return nil
}

func staffMember(t *tables, m store.Membership) store.StaffMember {
	sm := store.StaffMember{
		Membership: copyMembership(m),
		User:       t.users[m.UserID],
	}
	var roles []store.RoleAssignment
	for _, ra := range t.roles {
		if ra.UserID == m.UserID {
			roles = append(roles, ra)
		}
	}
	sort.Slice(roles, func(i, j int) bool {
		return roles[i].CreatedAt.Before(roles[j].CreatedAt)
	})
	sm.Roles = store.RoleNames(roles)
	return sm
}

func copyMembership(m store.Membership) store.Membership {
	if m.PhoneNumber != nil {
		phone := *m.PhoneNumber
		m.PhoneNumber = &phone
	}
	return m
}
