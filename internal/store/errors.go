// AngelaMos | 2026
// errors.go

package store

import (
	"errors"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
)

// ErrRefreshTokenSpent is returned by Rotate when the presented token was
// already rotated or revoked.
var ErrRefreshTokenSpent = errors.New("refresh token already used")

// Unique constraints, named as in the migrations. Both store
// implementations report violations against these names.
const (
	ConstraintUserEmail          = "users_email_key"
	ConstraintCompanyEmail       = "companies_email_key"
	ConstraintRoleUserName       = "user_roles_user_id_name_key"
	ConstraintMembershipUser     = "company_users_user_id_key"
	ConstraintMembershipPair     = "company_users_company_id_user_id_key"
	ConstraintMembershipPhone    = "company_users_phone_number_key"
	ConstraintMembershipCompany  = "company_users_company_id_fkey"
	ConstraintMembershipUserFK   = "company_users_user_id_fkey"
	ConstraintRoleUserFK         = "user_roles_user_id_fkey"
	ConstraintRefreshTokenUserFK = "refresh_tokens_user_id_fkey"
)

var conflictFields = map[string]struct{ field, message string }{
	ConstraintUserEmail:       {"email", "email is already taken"},
	ConstraintCompanyEmail:    {"email", "company email is already taken"},
	ConstraintRoleUserName:    {"role", "role is already assigned"},
	ConstraintMembershipUser:  {"userId", "user already belongs to a company"},
	ConstraintMembershipPair:  {"userId", "user is already a member of this company"},
	ConstraintMembershipPhone: {"phoneNumber", "phone number is already taken"},
}

var referencedResources = map[string]string{
	ConstraintMembershipCompany:  "company",
	ConstraintMembershipUserFK:   "user",
	ConstraintRoleUserFK:         "user",
	ConstraintRefreshTokenUserFK: "user",
}

// UniqueViolation maps a violated unique constraint to a ConflictError.
func UniqueViolation(constraint string) *core.AppError {
	if c, ok := conflictFields[constraint]; ok {
		return core.ConflictError(c.field, c.message)
	}
	return core.ConflictError("", "resource already exists")
}

// ForeignKeyViolation maps a violated foreign key. On insert the referenced
// row is missing; on delete dependent rows still exist.
func ForeignKeyViolation(constraint string, deleting bool) *core.AppError {
	if deleting {
		return core.ConflictError("", "resource still has dependent records")
	}
	if resource, ok := referencedResources[constraint]; ok {
		return core.NotFoundError(resource)
	}
	return core.NotFoundError("referenced resource")
}
