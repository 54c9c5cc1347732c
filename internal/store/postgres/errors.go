// AngelaMos | 2026
// errors.go

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// translate maps constraint violations onto the store's typed errors and
// passes everything else through.
func translate(err error, deleting bool) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return store.UniqueViolation(pgErr.ConstraintName)
	case foreignKeyViolationCode:
		return store.ForeignKeyViolation(pgErr.ConstraintName, deleting)
	}
	return err
}
