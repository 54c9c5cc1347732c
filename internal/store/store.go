// AngelaMos | 2026
// store.go

package store

import (
	"context"
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
)

// TxManager runs fn inside one atomic unit. Every repository call made with
// the context handed to fn joins the unit; a non-nil return rolls all of
// them back. Nested calls reuse the outer unit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinReadOnly gives fn one consistent snapshot for several reads.
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

type Users interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
}

type Roles interface {
	Assign(ctx context.Context, a *RoleAssignment) error
	ListByUser(ctx context.Context, userID string) ([]RoleAssignment, error)
	Exists(ctx context.Context, userID string, role rbac.Role) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

type Companies interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id string) (*Company, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Page) ([]Company, int, error)
	CountByMonth(ctx context.Context, year int) (MonthlyCounts, error)
}

type Memberships interface {
	Create(ctx context.Context, m *Membership) error
	GetByID(ctx context.Context, id string) (*Membership, error)
	GetByUser(ctx context.Context, userID string) (*Membership, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Update(ctx context.Context, m *Membership) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
	DeleteByCompany(ctx context.Context, companyID string) (int, error)
	ListStaff(ctx context.Context, filter StaffFilter) ([]StaffMember, int, error)
	// FindContact returns the earliest member of the company holding
	// COMPANY_ADMIN, or ErrNotFound.
	FindContact(ctx context.Context, companyID string) (*StaffMember, error)
	CountByMonth(ctx context.Context, companyID string, year int) (MonthlyCounts, error)
}

type RefreshTokens interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Rotate stores next and marks usedID as replaced by it in one step.
	// Exactly one of several concurrent rotations of the same token
	// succeeds; the others get ErrRefreshTokenSpent.
	Rotate(ctx context.Context, usedID string, next *RefreshToken) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Store groups the repositories behind one transaction manager.
type Store struct {
	Tx            TxManager
	Users         Users
	Roles         Roles
	Companies     Companies
	Memberships   Memberships
	RefreshTokens RefreshTokens
}

// MonthlyCounts holds one bucket per calendar month, January first.
type MonthlyCounts [12]int

type Page struct {
	Page     int
	PageSize int
}

func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type UserFilter struct {
	Page
	Search string
	Role   rbac.Role
}

type StaffFilter struct {
	Page
	CompanyID string
}

// YearBounds returns [Jan 1 year, Jan 1 year+1) in UTC.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
