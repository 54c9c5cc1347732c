// AngelaMos | 2026
// repository_test.go

package postgres

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

func TestTranslate(t *testing.T) {
	err := translate(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: store.ConstraintUserEmail}, false)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	assert.Equal(t, "email", appErr.Fields[0].Field)

	err = translate(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: store.ConstraintMembershipCompany}, false)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = translate(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: store.ConstraintMembershipCompany}, true)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	other := errors.New("random")
	assert.Equal(t, other, translate(other, false))
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := &store.User{ID: "u1", FirstName: "J", LastName: "Doe", Email: "j@acme.com"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber, u.Photo).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: store.ConstraintUserEmail})

	err = repo.Create(context.Background(), u)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := &store.User{ID: "u1", Email: "j@acme.com"}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber, u.Photo).
		WillReturnRows(pgxmock.NewRows([]string{"token_version", "created_at", "updated_at"}).
			AddRow(0, now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListWithSearch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (email ILIKE $1")).
		WithArgs("%doe%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $2 OFFSET $3")).
		WithArgs("%doe%", 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "first_name", "last_name", "email", "password_hash", "phone_number", "photo",
			"token_version", "created_at", "updated_at",
		}).AddRow("u1", "J", "Doe", "j@acme.com", "hash", "", "", 0, now, now))

	users, total, err := repo.List(context.Background(), store.UserFilter{Search: "doe"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "j@acme.com", users[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepository_DeleteWithMembers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCompanyRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM companies WHERE id = $1")).
		WithArgs("c1").
		WillReturnError(&pgconn.PgError{
			Code:           foreignKeyViolationCode,
			ConstraintName: store.ConstraintMembershipCompany,
		})

	err = repo.Delete(context.Background(), "c1")
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepository_DeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCompanyRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM companies WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "c1"), core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepository_CountByMonth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCompanyRepository(mock)
	start, end := store.YearBounds(2025)

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies")).
		WithArgs(start, end).
		WillReturnRows(pgxmock.NewRows([]string{"month", "count"}).
			AddRow(1, 3).
			AddRow(12, 2))

	counts, err := repo.CountByMonth(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[0])
	assert.Equal(t, 2, counts[11])
	assert.Equal(t, 0, counts[5])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_DeleteByCompany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMembershipRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM company_users WHERE company_id = $1")).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteByCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
