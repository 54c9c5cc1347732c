// AngelaMos | 2026
// guard.go

package rbac

import (
	"slices"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
)

// Actor is the authenticated caller as the guard sees it. Roles are
// loaded once per request.
type Actor struct {
	UserID    string
	Email     string
	Roles     []Role
	CompanyID *string
}

func (a *Actor) HasRole(r Role) bool {
	return a != nil && slices.Contains(a.Roles, r)
}

func (a *Actor) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

func (a *Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// InCompany reports whether the actor holds a membership in companyID.
func (a *Actor) InCompany(companyID string) bool {
	return a != nil && a.CompanyID != nil && *a.CompanyID == companyID
}

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnauthenticated  Reason = "Unauthenticated"
	ReasonInsufficientRole Reason = "InsufficientRole"
	ReasonNotOwner         Reason = "NotOwner"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err maps a deny decision onto the error taxonomy. It returns nil on allow.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}

	switch d.Reason {
	case ReasonUnauthenticated:
		return core.UnauthorizedError("")
	case ReasonNotOwner:
		appErr := core.ForbiddenError("resource belongs to another owner")
		appErr.Code = "NOT_OWNER"
		return appErr
	default:
		appErr := core.ForbiddenError("")
		appErr.Code = "INSUFFICIENT_ROLE"
		return appErr
	}
}

// OwnerCheck reports whether the actor controls the resource being accessed.
type OwnerCheck func(actor *Actor) bool

// Authorize decides whether actor may perform an operation requiring any
// of required. ADMIN is allowed unconditionally. When owner is given, an
// actor lacking the required roles is allowed only if owner accepts it.
func Authorize(actor *Actor, required []Role, owner OwnerCheck) Decision {
	if actor == nil || actor.UserID == "" {
		return Deny(ReasonUnauthenticated)
	}

	if actor.IsAdmin() {
		return Allow()
	}

	if actor.HasAnyRole(required...) {
		return Allow()
	}

	if owner != nil {
		if owner(actor) {
			return Allow()
		}
		return Deny(ReasonNotOwner)
	}

	return Deny(ReasonInsufficientRole)
}

// CompanyOwner allows COMPANY_ADMIN members acting inside their own company.
func CompanyOwner(companyID string) OwnerCheck {
	return func(actor *Actor) bool {
		return actor.HasRole(RoleCompanyAdmin) && actor.InCompany(companyID)
	}
}

// SelfOwner allows the actor acting on its own user record.
func SelfOwner(userID string) OwnerCheck {
	return func(actor *Actor) bool {
		return actor.UserID == userID
	}
}
