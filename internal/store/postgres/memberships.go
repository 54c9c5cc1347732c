// AngelaMos | 2026
// memberships.go

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const membershipColumns = `id, company_id, user_id, phone_number, title, role, id_number,
       id_attachment, is_active, created_at, updated_at`

const staffSelect = `
		SELECT cu.id, cu.company_id, cu.user_id, cu.phone_number, cu.title, cu.role, cu.id_number,
		       cu.id_attachment, cu.is_active, cu.created_at, cu.updated_at,
		       u.id, u.first_name, u.last_name, u.email, u.password_hash, u.phone_number, u.photo,
		       u.token_version, u.created_at, u.updated_at,
		       ARRAY(SELECT ur.name FROM user_roles ur WHERE ur.user_id = u.id ORDER BY ur.created_at)
		  FROM company_users cu
		  JOIN users u ON u.id = cu.user_id`

type MembershipRepository struct {
	pool Queryer
}

func NewMembershipRepository(pool Queryer) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Create(ctx context.Context, m *store.Membership) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		INSERT INTO company_users (id, company_id, user_id, phone_number, title, role,
		                           id_number, id_attachment, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		m.ID, m.CompanyID, m.UserID, m.PhoneNumber, m.Title, m.Role,
		m.IDNumber, m.IDAttachment, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create membership: %w", translate(err, false))
	}
	return nil
}

func (r *MembershipRepository) GetByID(ctx context.Context, id string) (*store.Membership, error) {
	exec := QueryerFromContext(ctx, r.pool)
	m, err := scanMembership(exec.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM company_users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepository) GetByUser(ctx context.Context, userID string) (*store.Membership, error) {
	exec := QueryerFromContext(ctx, r.pool)
	m, err := scanMembership(exec.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM company_users WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("get membership by user: %w", err)
	}
	return m, nil
}

func (r *MembershipRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	exec := QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM company_users WHERE phone_number = $1)`, phone,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check phone exists: %w", err)
	}
	return exists, nil
}

func (r *MembershipRepository) Update(ctx context.Context, m *store.Membership) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		UPDATE company_users
		   SET company_id = $2, phone_number = $3, title = $4, role = $5, id_number = $6,
		       id_attachment = $7, is_active = $8, updated_at = NOW()
		 WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.CompanyID, m.PhoneNumber, m.Title, m.Role, m.IDNumber, m.IDAttachment, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update membership: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update membership: %w", translate(err, false))
	}
	return nil
}

func (r *MembershipRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM company_users WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete memberships by user: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *MembershipRepository) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM company_users WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, fmt.Errorf("delete memberships by company: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *MembershipRepository) ListStaff(
	ctx context.Context,
	filter store.StaffFilter,
) ([]store.StaffMember, int, error) {
	filter.Normalize()
	exec := QueryerFromContext(ctx, r.pool)

	var total int
	err := exec.QueryRow(ctx, `
		SELECT COUNT(*) FROM company_users WHERE ($1 = '' OR company_id::text = $1)`,
		filter.CompanyID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}

	rows, err := exec.Query(ctx, staffSelect+`
		 WHERE ($1 = '' OR cu.company_id::text = $1)
		 ORDER BY cu.created_at DESC, cu.id DESC
		 LIMIT $2 OFFSET $3`,
		filter.CompanyID, filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	staff := make([]store.StaffMember, 0, filter.PageSize)
	for rows.Next() {
		sm, err := scanStaff(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list staff: %w", err)
		}
		staff = append(staff, *sm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}
	return staff, total, nil
}

func (r *MembershipRepository) FindContact(ctx context.Context, companyID string) (*store.StaffMember, error) {
	exec := QueryerFromContext(ctx, r.pool)
	sm, err := scanStaff(exec.QueryRow(ctx, staffSelect+`
		 WHERE cu.company_id = $1
		   AND EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = cu.user_id AND ur.name = $2)
		 ORDER BY cu.created_at, cu.id
		 LIMIT 1`,
		companyID, string(rbac.RoleCompanyAdmin)))
	if err != nil {
		return nil, fmt.Errorf("find company contact: %w", err)
	}
	return sm, nil
}

func (r *MembershipRepository) CountByMonth(
	ctx context.Context,
	companyID string,
	year int,
) (store.MonthlyCounts, error) {
	start, end := store.YearBounds(year)
	exec := QueryerFromContext(ctx, r.pool)

	counts, err := countByMonth(ctx, exec, `
		SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month, COUNT(*)::int
		  FROM company_users
		 WHERE company_id = $1 AND created_at >= $2 AND created_at < $3
		 GROUP BY month`, companyID, start, end)
	if err != nil {
		return counts, fmt.Errorf("count staff by month: %w", err)
	}
	return counts, nil
}

func scanMembership(row pgx.Row) (*store.Membership, error) {
	var m store.Membership
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.UserID, &m.PhoneNumber, &m.Title, &m.Role, &m.IDNumber,
		&m.IDAttachment, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanStaff(row pgx.Row) (*store.StaffMember, error) {
	var (
		sm    store.StaffMember
		roles []string
	)
	m, u := &sm.Membership, &sm.User
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.UserID, &m.PhoneNumber, &m.Title, &m.Role, &m.IDNumber,
		&m.IDAttachment, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Photo,
		&u.TokenVersion, &u.CreatedAt, &u.UpdatedAt,
		&roles,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		sm.Roles = append(sm.Roles, rbac.Role(r))
	}
	return &sm, nil
}
