// AngelaMos | 2026
// dto.go

package staff

import (
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

// CreateStaffRequest onboards one member. CompanyID is read only for ADMIN
// callers; company admins always add staff to their own company.
type CreateStaffRequest struct {
	FirstName    string `json:"firstName"    validate:"required,min=1,max=100"`
	LastName     string `json:"lastName"     validate:"required,min=1,max=100"`
	Email        string `json:"email"        validate:"required,email,max=255"`
	PhoneNumber  string `json:"phoneNumber"  validate:"omitempty,max=32"`
	Title        string `json:"title"        validate:"omitempty,max=100"`
	Role         string `json:"role"         validate:"omitempty,max=100"`
	IDNumber     string `json:"idNumber"     validate:"omitempty,max=64"`
	IDAttachment string `json:"idAttachment" validate:"omitempty,max=512"`
	CompanyID    string `json:"companyId"    validate:"omitempty,uuid"`
}

type UpdateStaffRequest struct {
	FirstName    *string `json:"firstName,omitempty"    validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName,omitempty"     validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email,omitempty"        validate:"omitempty,email,max=255"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"  validate:"omitempty,max=32"`
	Title        *string `json:"title,omitempty"        validate:"omitempty,max=100"`
	Role         *string `json:"role,omitempty"         validate:"omitempty,max=100"`
	IDNumber     *string `json:"idNumber,omitempty"     validate:"omitempty,max=64"`
	IDAttachment *string `json:"idAttachment,omitempty" validate:"omitempty,max=512"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

// MembershipPatch is the membership part of an update, applied by the
// sync reaction.
type MembershipPatch struct {
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	Title        *string `json:"title,omitempty"`
	Role         *string `json:"role,omitempty"`
	IDNumber     *string `json:"idNumber,omitempty"`
	IDAttachment *string `json:"idAttachment,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

func (p MembershipPatch) empty() bool {
	return p.PhoneNumber == nil && p.Title == nil && p.Role == nil &&
		p.IDNumber == nil && p.IDAttachment == nil && p.IsActive == nil
}

type StaffResponse struct {
	ID           string      `json:"id"`
	MembershipID string      `json:"membershipId"`
	CompanyID    string      `json:"companyId"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Email        string      `json:"email"`
	PhoneNumber  *string     `json:"phoneNumber"`
	Title        string      `json:"title"`
	Role         string      `json:"role"`
	IDNumber     string      `json:"idNumber"`
	IDAttachment string      `json:"idAttachment"`
	IsActive     bool        `json:"isActive"`
	Roles        []rbac.Role `json:"roles"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func ToStaffResponse(sm *store.StaffMember) StaffResponse {
	return StaffResponse{
		ID:           sm.User.ID,
		MembershipID: sm.Membership.ID,
		CompanyID:    sm.Membership.CompanyID,
		FirstName:    sm.User.FirstName,
		LastName:     sm.User.LastName,
		Email:        sm.User.Email,
		PhoneNumber:  sm.Membership.PhoneNumber,
		Title:        sm.Membership.Title,
		Role:         sm.Membership.Role,
		IDNumber:     sm.Membership.IDNumber,
		IDAttachment: sm.Membership.IDAttachment,
		IsActive:     sm.Membership.IsActive,
		Roles:        sm.Roles,
		CreatedAt:    sm.Membership.CreatedAt,
	}
}

func ToStaffResponseList(members []store.StaffMember) []StaffResponse {
	out := make([]StaffResponse, 0, len(members))
	for i := range members {
		out = append(out, ToStaffResponse(&members[i]))
	}
	return out
}

func optionalPhone(phone string) *string {
	if phone == "" {
		return nil
	}
	return &phone
}
