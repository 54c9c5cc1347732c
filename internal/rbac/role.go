// AngelaMos | 2026
// role.go

package rbac

import (
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDeveloper    Role = "DEVELOPER"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleCompanyUser  Role = "COMPANY_USER"
	RoleClient       Role = "CLIENT"
	RoleAgent        Role = "AGENT"
	RoleManager      Role = "MANAGER"
	RoleStaff        Role = "STAFF"
)

type Permission string

const (
	PermissionAll             Permission = "ALL"
	PermissionManageCompanies Permission = "MANAGE_COMPANIES"
	PermissionManageStaff     Permission = "MANAGE_STAFF"
	PermissionManageUsers     Permission = "MANAGE_USERS"
	PermissionRead            Permission = "READ"
	PermissionDefault         Permission = "DEFAULT"
)

var allRoles = []Role{
	RoleAdmin,
	RoleDeveloper,
	RoleCompanyAdmin,
	RoleCompanyUser,
	RoleClient,
	RoleAgent,
	RoleManager,
	RoleStaff,
}

// Roles returns the closed set of role names in declaration order.
func Roles() []Role {
	return slices.Clone(allRoles)
}

func (r Role) Valid() bool {
	return slices.Contains(allRoles, r)
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// DefaultPermissions is the permission set granted with a freshly assigned role.
func DefaultPermissions(r Role) []Permission {
	switch r {
	case RoleAdmin, RoleDeveloper:
		return []Permission{PermissionAll}
	case RoleCompanyAdmin:
		return []Permission{PermissionManageStaff, PermissionRead}
	case RoleAgent, RoleManager:
		return []Permission{PermissionRead}
	case RoleCompanyUser, RoleClient, RoleStaff:
		return []Permission{PermissionDefault}
	}
	return nil
}
