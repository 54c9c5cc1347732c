// AngelaMos | 2026
// entity.go

package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
)

// NotApplicable fills membership text fields the caller left empty.
const NotApplicable = "N/A"

type User struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	PhoneNumber  string    `db:"phone_number"`
	Photo        string    `db:"photo"`
	TokenVersion int       `db:"token_version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type RoleAssignment struct {
	ID          string
	UserID      string
	Name        rbac.Role
	Permissions []rbac.Permission
	CreatedAt   time.Time
}

// NewRoleAssignment grants role to userID with the role's default permissions.
func NewRoleAssignment(userID string, role rbac.Role) *RoleAssignment {
	return &RoleAssignment{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        role,
		Permissions: rbac.DefaultPermissions(role),
	}
}

// RoleNames flattens assignments into the role list the guard evaluates.
func RoleNames(assignments []RoleAssignment) []rbac.Role {
	roles := make([]rbac.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Name)
	}
	return roles
}

type Company struct {
	ID               string
	Name             string
	Email            string
	Address          string
	PhoneNumber      string
	TIN              string
	Type             string
	Occupation       string
	Industry         string
	Website          string
	RegistrationDate *time.Time
	Certificate      string
	Logo             string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Membership binds a user to a company. PhoneNumber is nil when unknown;
// non-nil numbers are unique across all memberships.
type Membership struct {
	ID           string
	CompanyID    string
	UserID       string
	PhoneNumber  *string
	Title        string
	Role         string
	IDNumber     string
	IDAttachment string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StaffMember is a membership joined with its user.
type StaffMember struct {
	Membership Membership
	User       User
	Roles      []rbac.Role
}

type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsValid() bool {
	return !t.IsExpired() && !t.IsRevoked() && !t.IsUsed
}

// NonEmpty returns v, or NotApplicable when v is blank.
func NonEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotApplicable
	}
	return v
}
