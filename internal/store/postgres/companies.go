// AngelaMos | 2026
// companies.go

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const companyColumns = `id, name, email, address, phone_number, tin, type, occupation, industry,
       website, registration_date, certificate, logo, is_active, created_at, updated_at`

type CompanyRepository struct {
	pool Queryer
}

func NewCompanyRepository(pool Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

func (r *CompanyRepository) Create(ctx context.Context, c *store.Company) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		INSERT INTO companies (id, name, email, address, phone_number, tin, type, occupation,
		                       industry, website, registration_date, certificate, logo, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Address, c.PhoneNumber, c.TIN, c.Type, c.Occupation,
		c.Industry, c.Website, c.RegistrationDate, c.Certificate, c.Logo, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create company: %w", translate(err, false))
	}
	return nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*store.Company, error) {
	exec := QueryerFromContext(ctx, r.pool)
	c, err := scanCompany(exec.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	exec := QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check company email exists: %w", err)
	}
	return exists, nil
}

func (r *CompanyRepository) Update(ctx context.Context, c *store.Company) error {
	exec := QueryerFromContext(ctx, r.pool)
	err := exec.QueryRow(ctx, `
		UPDATE companies
		   SET name = $2, email = $3, address = $4, phone_number = $5, tin = $6, type = $7,
		       occupation = $8, industry = $9, website = $10, registration_date = $11,
		       certificate = $12, logo = $13, is_active = $14, updated_at = NOW()
		 WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Address, c.PhoneNumber, c.TIN, c.Type, c.Occupation,
		c.Industry, c.Website, c.RegistrationDate, c.Certificate, c.Logo, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update company: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update company: %w", translate(err, false))
	}
	return nil
}

func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	exec := QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", translate(err, true))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete company: %w", core.ErrNotFound)
	}
	return nil
}

func (r *CompanyRepository) List(ctx context.Context, page store.Page) ([]store.Company, int, error) {
	page.Normalize()
	exec := QueryerFromContext(ctx, r.pool)

	var total int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}

	rows, err := exec.Query(ctx, `
		SELECT `+companyColumns+`
		  FROM companies
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]store.Company, 0, page.PageSize)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list companies: %w", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	return companies, total, nil
}

func (r *CompanyRepository) CountByMonth(ctx context.Context, year int) (store.MonthlyCounts, error) {
	start, end := store.YearBounds(year)
	exec := QueryerFromContext(ctx, r.pool)

	counts, err := countByMonth(ctx, exec, `
		SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month, COUNT(*)::int
		  FROM companies
		 WHERE created_at >= $1 AND created_at < $2
		 GROUP BY month`, start, end)
	if err != nil {
		return counts, fmt.Errorf("count companies by month: %w", err)
	}
	return counts, nil
}

func countByMonth(ctx context.Context, exec Queryer, query string, args ...any) (store.MonthlyCounts, error) {
	var counts store.MonthlyCounts

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var month, n int
		if err := rows.Scan(&month, &n); err != nil {
			return counts, err
		}
		if month >= 1 && month <= 12 {
			counts[month-1] = n
		}
	}
	return counts, rows.Err()
}

func scanCompany(row pgx.Row) (*store.Company, error) {
	var c store.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Address, &c.PhoneNumber, &c.TIN, &c.Type, &c.Occupation,
		&c.Industry, &c.Website, &c.RegistrationDate, &c.Certificate, &c.Logo, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
