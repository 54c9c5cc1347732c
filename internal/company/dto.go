// AngelaMos | 2026
// dto.go

package company

import (
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

const dateLayout = "2006-01-02"

type CompanyInput struct {
	Name             string `json:"name"             validate:"required,min=1,max=200"`
	Email            string `json:"email"            validate:"required,email,max=255"`
	Address          string `json:"address"          validate:"omitempty,max=255"`
	PhoneNumber      string `json:"phoneNumber"      validate:"omitempty,max=32"`
	TIN              string `json:"TIN"              validate:"omitempty,max=64"`
	Type             string `json:"type"             validate:"omitempty,max=100"`
	Occupation       string `json:"occupation"       validate:"omitempty,max=100"`
	Industry         string `json:"industry"         validate:"omitempty,max=100"`
	Website          string `json:"website"          validate:"omitempty,max=255"`
	RegistrationDate string `json:"registrationDate" validate:"omitempty,datetime=2006-01-02"`
	Certificate      string `json:"certificate"      validate:"omitempty,max=512"`
	Logo             string `json:"logo"             validate:"omitempty,max=512"`
}

// ContactInput describes the person provisioned as the company's first
// COMPANY_ADMIN.
type ContactInput struct {
	FirstName    string `json:"firstName"    validate:"required,min=1,max=100"`
	LastName     string `json:"lastName"     validate:"required,min=1,max=100"`
	Email        string `json:"email"        validate:"required,email,max=255"`
	PhoneNumber  string `json:"phoneNumber"  validate:"omitempty,max=32"`
	Title        string `json:"title"        validate:"omitempty,max=100"`
	Role         string `json:"role"         validate:"omitempty,max=100"`
	IDNumber     string `json:"idNumber"     validate:"omitempty,max=64"`
	IDAttachment string `json:"idAttachment" validate:"omitempty,max=512"`
}

type CreateCompanyRequest struct {
	Company       CompanyInput `json:"company"       validate:"required"`
	ContactPerson ContactInput `json:"contactPerson" validate:"required"`
}

type CompanyPatch struct {
	Name             *string `json:"name,omitempty"             validate:"omitempty,min=1,max=200"`
	Email            *string `json:"email,omitempty"            validate:"omitempty,email,max=255"`
	Address          *string `json:"address,omitempty"          validate:"omitempty,max=255"`
	PhoneNumber      *string `json:"phoneNumber,omitempty"      validate:"omitempty,max=32"`
	TIN              *string `json:"TIN,omitempty"              validate:"omitempty,max=64"`
	Type             *string `json:"type,omitempty"             validate:"omitempty,max=100"`
	Occupation       *string `json:"occupation,omitempty"       validate:"omitempty,max=100"`
	Industry         *string `json:"industry,omitempty"         validate:"omitempty,max=100"`
	Website          *string `json:"website,omitempty"          validate:"omitempty,max=255"`
	RegistrationDate *string `json:"registrationDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Certificate      *string `json:"certificate,omitempty"      validate:"omitempty,max=512"`
	Logo             *string `json:"logo,omitempty"             validate:"omitempty,max=512"`
	IsActive         *bool   `json:"isActive,omitempty"`
}

type ContactPatch struct {
	FirstName    *string `json:"firstName,omitempty"    validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName,omitempty"     validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email,omitempty"        validate:"omitempty,email,max=255"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"  validate:"omitempty,max=32"`
	Title        *string `json:"title,omitempty"        validate:"omitempty,max=100"`
	Role         *string `json:"role,omitempty"         validate:"omitempty,max=100"`
	IDNumber     *string `json:"idNumber,omitempty"     validate:"omitempty,max=64"`
	IDAttachment *string `json:"idAttachment,omitempty" validate:"omitempty,max=512"`
}

type UpdateCompanyRequest struct {
	Company       *CompanyPatch `json:"company,omitempty"`
	ContactPerson *ContactPatch `json:"contactPerson,omitempty"`
}

type CompanyResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Address          string     `json:"address"`
	PhoneNumber      string     `json:"phoneNumber"`
	TIN              string     `json:"TIN"`
	Type             string     `json:"type"`
	Occupation       string     `json:"occupation"`
	Industry         string     `json:"industry"`
	Website          string     `json:"website"`
	RegistrationDate *time.Time `json:"registrationDate"`
	Certificate      string     `json:"certificate"`
	Logo             string     `json:"logo"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type ContactResponse struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	PhoneNumber  *string `json:"phoneNumber"`
	Title        string  `json:"title"`
	Role         string  `json:"role"`
	IDNumber     string  `json:"idNumber"`
	IDAttachment string  `json:"idAttachment"`
	IsActive     bool    `json:"isActive"`
}

// DetailResponse pairs a company with its contact person, which is nil
// until provisioning has run.
type DetailResponse struct {
	Company       CompanyResponse  `json:"company"`
	ContactPerson *ContactResponse `json:"contactPerson"`
}

// View is a company with its optional contact.
type View struct {
	Company store.Company
	Contact *store.StaffMember
}

func ToCompanyResponse(c *store.Company) CompanyResponse {
	return CompanyResponse{
		ID:               c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Address:          c.Address,
		PhoneNumber:      c.PhoneNumber,
		TIN:              c.TIN,
		Type:             c.Type,
		Occupation:       c.Occupation,
		Industry:         c.Industry,
		Website:          c.Website,
		RegistrationDate: c.RegistrationDate,
		Certificate:      c.Certificate,
		Logo:             c.Logo,
		IsActive:         c.IsActive,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func ToDetailResponse(v *View) DetailResponse {
	resp := DetailResponse{Company: ToCompanyResponse(&v.Company)}
	if c := v.Contact; c != nil {
		resp.ContactPerson = &ContactResponse{
			ID:           c.User.ID,
			FirstName:    c.User.FirstName,
			LastName:     c.User.LastName,
			Email:        c.User.Email,
			PhoneNumber:  c.Membership.PhoneNumber,
			Title:        c.Membership.Title,
			Role:         c.Membership.Role,
			IDNumber:     c.Membership.IDNumber,
			IDAttachment: c.Membership.IDAttachment,
			IsActive:     c.Membership.IsActive,
		}
	}
	return resp
}

func ToDetailResponseList(views []View) []DetailResponse {
	out := make([]DetailResponse, 0, len(views))
	for i := range views {
		out = append(out, ToDetailResponse(&views[i]))
	}
	return out
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalPhone(phone string) *string {
	if phone == "" {
		return nil
	}
	return &phone
}
