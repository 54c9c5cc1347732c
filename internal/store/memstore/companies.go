// AngelaMos | 2026
// companies.go

package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type companyRepo struct {
	s *Store
}

func (r *companyRepo) Create(ctx context.Context, c *store.Company) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.companies[c.ID]; ok {
			return fmt.Errorf("create company: %w", core.ErrDuplicateKey)
		}
		if companyEmailTaken(t, c.Email, "") {
			return fmt.Errorf("create company: %w", store.UniqueViolation(store.ConstraintCompanyEmail))
		}

		now := r.s.now()
		c.CreatedAt, c.UpdatedAt = now, now
		t.companies[c.ID] = *c
		return nil
	})
}

func (r *companyRepo) GetByID(ctx context.Context, id string) (*store.Company, error) {
	var out store.Company
	err := r.s.do(ctx, func(t *tables) error {
		c, ok := t.companies[id]
		if !ok {
			return fmt.Errorf("get company: %w", core.ErrNotFound)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *companyRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(t *tables) error {
		exists = companyEmailTaken(t, email, "")
		return nil
	})
	return exists, err
}

func (r *companyRepo) Update(ctx context.Context, c *store.Company) error {
	return r.s.do(ctx, func(t *tables) error {
		current, ok := t.companies[c.ID]
		if !ok {
			return fmt.Errorf("update company: %w", core.ErrNotFound)
		}
		if companyEmailTaken(t, c.Email, c.ID) {
			return fmt.Errorf("update company: %w", store.UniqueViolation(store.ConstraintCompanyEmail))
		}

		updated := *c
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = r.s.now()
		t.companies[c.ID] = updated
		c.CreatedAt, c.UpdatedAt = updated.CreatedAt, updated.UpdatedAt
		return nil
	})
}

func (r *companyRepo) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(t *tables) error {
		if _, ok := t.companies[id]; !ok {
			return fmt.Errorf("delete company: %w", core.ErrNotFound)
		}
		for _, m := range t.memberships {
			if m.CompanyID == id {
				return fmt.Errorf("delete company: %w",
					store.ForeignKeyViolation(store.ConstraintMembershipCompany, true))
			}
		}
		delete(t.companies, id)
		return nil
	})
}

func (r *companyRepo) List(ctx context.Context, page store.Page) ([]store.Company, int, error) {
	page.Normalize()

	var (
		out   []store.Company
		total int
	)
	err := r.s.do(ctx, func(t *tables) error {
		all := make([]store.Company, 0, len(t.companies))
		for _, c := range t.companies {
			all = append(all, c)
		}
		sort.Slice(all, func(i, j int) bool {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		total = len(all)
		out = paginate(all, page)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *companyRepo) CountByMonth(ctx context.Context, year int) (store.MonthlyCounts, error) {
	var counts store.MonthlyCounts
	start, end := store.YearBounds(year)

	err := r.s.do(ctx, func(t *tables) error {
		for _, c := range t.companies {
			if !c.CreatedAt.Before(start) && c.CreatedAt.Before(end) {
				counts[c.CreatedAt.Month()-1]++
			}
		}
		return nil
	})
	return counts, err
}

func companyEmailTaken(t *tables, email, exceptID string) bool {
	for _, c := range t.companies {
		if c.Email == email && c.ID != exceptID {
			return true
		}
	}
	return false
}
