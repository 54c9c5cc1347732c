// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type CreateUserRequest struct {
	FirstName   string `json:"firstName"   validate:"required,min=1,max=100"`
	LastName    string `json:"lastName"    validate:"required,min=1,max=100"`
	Email       string `json:"email"       validate:"required,email,max=255"`
	Password    string `json:"password"    validate:"required,min=8,max=128"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Photo       string `json:"photo"       validate:"omitempty,max=512"`
	Role        string `json:"role"        validate:"required"`
}

type UpdateUserRequest struct {
	FirstName   *string `json:"firstName,omitempty"   validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"lastName,omitempty"    validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email,omitempty"       validate:"omitempty,email,max=255"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Photo       *string `json:"photo,omitempty"       validate:"omitempty,max=512"`
	Role        *string `json:"role,omitempty"`
}

type RoleResponse struct {
	Name        rbac.Role         `json:"name"`
	Permissions []rbac.Permission `json:"permissions"`
}

type MembershipResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Title     string `json:"title"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
}

type UserResponse struct {
	ID          string              `json:"id"`
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	Email       string              `json:"email"`
	PhoneNumber string              `json:"phoneNumber"`
	Photo       string              `json:"photo,omitempty"`
	Roles       []RoleResponse      `json:"roles"`
	Company     *MembershipResponse `json:"company,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Profile is a user with its role assignments and optional membership.
type Profile struct {
	User       store.User
	Roles      []store.RoleAssignment
	Membership *store.Membership
}

func (p *Profile) RoleNames() []rbac.Role {
	return store.RoleNames(p.Roles)
}

func ToUserResponse(p *Profile) UserResponse {
	roles := make([]RoleResponse, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, RoleResponse{Name: r.Name, Permissions: r.Permissions})
	}

	resp := UserResponse{
		ID:          p.User.ID,
		FirstName:   p.User.FirstName,
		LastName:    p.User.LastName,
		Email:       p.User.Email,
		PhoneNumber: p.User.PhoneNumber,
		Photo:       p.User.Photo,
		Roles:       roles,
		CreatedAt:   p.User.CreatedAt,
		UpdatedAt:   p.User.UpdatedAt,
	}
	if m := p.Membership; m != nil {
		resp.Company = &MembershipResponse{
			ID:        m.ID,
			CompanyID: m.CompanyID,
			Title:     m.Title,
			Role:      m.Role,
			IsActive:  m.IsActive,
		}
	}
	return resp
}

func ToUserResponseList(profiles []Profile) []UserResponse {
	responses := make([]UserResponse, 0, len(profiles))
	for i := range profiles {
		responses = append(responses, ToUserResponse(&profiles[i]))
	}
	return responses
}
