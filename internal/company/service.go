// AngelaMos | 2026
// service.go

package company

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

// CreatedPayload is the body of event.CompanyCreated.
type CreatedPayload struct {
	CompanyID     string       `json:"companyId"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	ContactPerson ContactInput `json:"contactPerson"`
}

// UpdatedPayload is the body of event.CompanyUpdated. ContactPerson is nil
// when the update left the contact untouched.
type UpdatedPayload struct {
	CompanyID     string        `json:"companyId"`
	Name          string        `json:"name"`
	ContactPerson *ContactPatch `json:"contactPerson,omitempty"`
}

// DeletedPayload is the body of event.CompanyDeleted.
type DeletedPayload struct {
	CompanyID   string `json:"companyId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Memberships int    `json:"memberships"`
}

type Service struct {
	store  *store.Store
	events *event.Dispatcher
	logger *slog.Logger
}

func NewService(st *store.Store, events *event.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, events: events, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create writes the company and emits event.CompanyCreated. The contact
// person is provisioned by a reaction after commit.
func (s *Service) Create(ctx context.Context, req CreateCompanyRequest) (*store.Company, error) {
	req.Company.Email = normalizeEmail(req.Company.Email)
	req.ContactPerson.Email = normalizeEmail(req.ContactPerson.Email)

	fields, err := s.validateCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, core.ValidationError(fields...)
	}

	regDate, err := parseDate(req.Company.RegistrationDate)
	if err != nil {
		return nil, core.ValidationError(core.FieldError{
			Field: "company.registrationDate",
			Error: "registrationDate must be YYYY-MM-DD",
		})
	}

	in := req.Company
	c := &store.Company{
		ID:               uuid.New().String(),
		Name:             in.Name,
		Email:            in.Email,
		Address:          in.Address,
		PhoneNumber:      in.PhoneNumber,
		TIN:              in.TIN,
		Type:             in.Type,
		Occupation:       in.Occupation,
		Industry:         in.Industry,
		Website:          in.Website,
		RegistrationDate: regDate,
		Certificate:      in.Certificate,
		Logo:             in.Logo,
		IsActive:         true,
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store.Companies.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, event.CompanyCreated, CreatedPayload{
		CompanyID:     c.ID,
		Name:          c.Name,
		Email:         c.Email,
		ContactPerson: req.ContactPerson,
	})
	return c, nil
}

// validateCreate collects every advisory uniqueness failure. The unique
// indexes remain the authority under concurrency.
func (s *Service) validateCreate(ctx context.Context, req CreateCompanyRequest) ([]core.FieldError, error) {
	var fields []core.FieldError

	taken, err := s.store.Companies.ExistsByEmail(ctx, req.Company.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		fields = append(fields, core.FieldError{
			Field: "company.email",
			Error: "company email is already taken",
		})
	}

	taken, err = s.store.Users.ExistsByEmail(ctx, req.ContactPerson.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		fields = append(fields, core.FieldError{
			Field: "contactPerson.email",
			Error: "contact email is already taken",
		})
	}

	return fields, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	var v *View
	err := s.store.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		c, err := s.store.Companies.GetByID(ctx, id)
		if err != nil {
			return core.NameNotFound(err, "company")
		}
		v, err = s.view(ctx, c)
		return err
	})
	return v, err
}

func (s *Service) view(ctx context.Context, c *store.Company) (*View, error) {
	v := &View{Company: *c}

	contact, err := s.store.Memberships.FindContact(ctx, c.ID)
	switch {
	case err == nil:
		v.Contact = contact
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, page store.Page) ([]View, int, error) {
	page.Normalize()

	var (
		views []View
		total int
	)
	err := s.store.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		companies, n, err := s.store.Companies.List(ctx, page)
		if err != nil {
			return err
		}

		views = make([]View, 0, len(companies))
		for i := range companies {
			v, err := s.view(ctx, &companies[i])
			if err != nil {
				return err
			}
			views = append(views, *v)
		}
		total = n
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Update applies the company patch and emits event.CompanyUpdated. Contact
// changes are applied by a reaction.
func (s *Service) Update(ctx context.Context, id string, req UpdateCompanyRequest) (*store.Company, error) {
	c, err := s.store.Companies.GetByID(ctx, id)
	if err != nil {
		return nil, core.NameNotFound(err, "company")
	}

	if req.Company != nil && req.Company.Email != nil {
		email := normalizeEmail(*req.Company.Email)
		req.Company.Email = &email
	}
	if req.ContactPerson != nil && req.ContactPerson.Email != nil {
		email := normalizeEmail(*req.ContactPerson.Email)
		req.ContactPerson.Email = &email
	}

	fields, err := s.validateUpdate(ctx, c, req)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, core.ValidationError(fields...)
	}

	if p := req.Company; p != nil {
		if err := applyPatch(c, p); err != nil {
			return nil, err
		}
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store.Companies.Update(ctx, c)
	})
	if err != nil {
		return nil, core.NameNotFound(err, "company")
	}

	s.events.Publish(ctx, event.CompanyUpdated, UpdatedPayload{
		CompanyID:     c.ID,
		Name:          c.Name,
		ContactPerson: req.ContactPerson,
	})
	return c, nil
}

func (s *Service) validateUpdate(
	ctx context.Context,
	c *store.Company,
	req UpdateCompanyRequest,
) ([]core.FieldError, error) {
	var fields []core.FieldError

	if p := req.Company; p != nil && p.Email != nil && *p.Email != c.Email {
		taken, err := s.store.Companies.ExistsByEmail(ctx, *p.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			fields = append(fields, core.FieldError{
				Field: "company.email",
				Error: "company email is already taken",
			})
		}
	}

	if p := req.ContactPerson; p != nil && p.Email != nil {
		current := ""
		if contact, err := s.store.Memberships.FindContact(ctx, c.ID); err == nil {
			current = contact.User.Email
		}
		if *p.Email != current {
			taken, err := s.store.Users.ExistsByEmail(ctx, *p.Email)
			if err != nil {
				return nil, err
			}
			if taken {
				fields = append(fields, core.FieldError{
					Field: "contactPerson.email",
					Error: "contact email is already taken",
				})
			}
		}
	}

	return fields, nil
}

func applyPatch(c *store.Company, p *CompanyPatch) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Email, p.Email)
	set(&c.Address, p.Address)
	set(&c.PhoneNumber, p.PhoneNumber)
	set(&c.TIN, p.TIN)
	set(&c.Type, p.Type)
	set(&c.Occupation, p.Occupation)
	set(&c.Industry, p.Industry)
	set(&c.Website, p.Website)
	set(&c.Certificate, p.Certificate)
	set(&c.Logo, p.Logo)
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.RegistrationDate != nil {
		d, err := parseDate(*p.RegistrationDate)
		if err != nil {
			return core.ValidationError(core.FieldError{
				Field: "company.registrationDate",
				Error: "registrationDate must be YYYY-MM-DD",
			})
		}
		c.RegistrationDate = d
	}
	return nil
}

// Delete removes every membership of the company and then the company, in
// one transaction, and emits event.CompanyDeleted.
func (s *Service) Delete(ctx context.Context, id string) (*store.Company, error) {
	var (
		deleted *store.Company
		removed int
	)

	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.store.Companies.GetByID(ctx, id)
		if err != nil {
			return core.NameNotFound(err, "company")
		}
		deleted = c

		if removed, err = s.store.Memberships.DeleteByCompany(ctx, id); err != nil {
			return err
		}
		return core.NameNotFound(s.store.Companies.Delete(ctx, id), "company")
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, event.CompanyDeleted, DeletedPayload{
		CompanyID:   deleted.ID,
		Name:        deleted.Name,
		Email:       deleted.Email,
		Memberships: removed,
	})
	return deleted, nil
}

func (s *Service) CountByMonth(ctx context.Context, year int) (store.MonthlyCounts, error) {
	return s.store.Companies.CountByMonth(ctx, year)
}
