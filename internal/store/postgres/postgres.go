// AngelaMos | 2026
// postgres.go

// Package postgres implements the store contracts on PostgreSQL. Aggregate
// tables go through pgx so they can share one transaction; the refresh token
// and reaction failure tables use sqlx on the same pool.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

func New(pool *pgxpool.Pool, db *sqlx.DB) *store.Store {
	return &store.Store{
		Tx:            NewTransactionManager(pool),
		Users:         NewUserRepository(pool),
		Roles:         NewRoleRepository(pool),
		Companies:     NewCompanyRepository(pool),
		Memberships:   NewMembershipRepository(pool),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

var (
	_ store.TxManager     = (*TransactionManager)(nil)
	_ store.Users         = (*UserRepository)(nil)
	_ store.Roles         = (*RoleRepository)(nil)
	_ store.Companies     = (*CompanyRepository)(nil)
	_ store.Memberships   = (*MembershipRepository)(nil)
	_ store.RefreshTokens = (*RefreshTokenRepository)(nil)
)
