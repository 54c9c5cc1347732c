// AngelaMos | 2026
// service.go

package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

// MemberRole is the system role every onboarded staff member receives.
const MemberRole = rbac.RoleCompanyUser

var ErrNoCompany = errors.New("actor does not belong to a company")

type CreatedPayload struct {
	UserID       string `json:"userId"`
	MembershipID string `json:"membershipId"`
	CompanyID    string `json:"companyId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Title        string `json:"title"`
}

type UpdatedPayload struct {
	UserID     string          `json:"userId"`
	CompanyID  string          `json:"companyId"`
	Membership MembershipPatch `json:"membership"`
}

type DeletedPayload struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Email     string `json:"email"`
}

type Service struct {
	store  *store.Store
	hasher core.PasswordHasher
	events *event.Dispatcher
	logger *slog.Logger
}

func NewService(
	st *store.Store,
	hasher core.PasswordHasher,
	events *event.Dispatcher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, hasher: hasher, events: events, logger: logger}
}

func noCompanyError() error {
	return core.NewAppError(ErrNoCompany, ErrNoCompany.Error(), http.StatusBadRequest, "NO_COMPANY")
}

// TargetCompany resolves which company a create by actor applies to.
func TargetCompany(actor *rbac.Actor, requested string) (string, error) {
	if actor.IsAdmin() && requested != "" {
		return requested, nil
	}
	if actor != nil && actor.CompanyID != nil {
		return *actor.CompanyID, nil
	}
	if actor.IsAdmin() {
		return "", core.ValidationError(core.FieldError{
			Field: "companyId",
			Error: "companyId is required",
		})
	}
	return "", noCompanyError()
}

// Create writes the user, its role and its membership in one transaction,
// then emits event.StaffCreated.
func (s *Service) Create(
	ctx context.Context,
	actor *rbac.Actor,
	req CreateStaffRequest,
) (*store.StaffMember, error) {
	companyID, err := TargetCompany(actor, req.CompanyID)
	if err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fields, err := s.validateCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, core.ValidationError(fields...)
	}

	hash, err := core.UnusablePasswordHash(s.hasher)
	if err != nil {
		return nil, fmt.Errorf("staff password: %w", err)
	}

	u := &store.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
	}
	role := store.NewRoleAssignment(u.ID, MemberRole)
	m := &store.Membership{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		UserID:       u.ID,
		PhoneNumber:  optionalPhone(req.PhoneNumber),
		Title:        store.NonEmpty(req.Title),
		Role:         store.NonEmpty(req.Role),
		IDNumber:     store.NonEmpty(req.IDNumber),
		IDAttachment: store.NonEmpty(req.IDAttachment),
		IsActive:     true,
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := s.store.Roles.Assign(ctx, role); err != nil {
			return err
		}
		return s.store.Memberships.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, event.StaffCreated, CreatedPayload{
		UserID:       u.ID,
		MembershipID: m.ID,
		CompanyID:    companyID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Title:        m.Title,
	})

	return &store.StaffMember{
		Membership: *m,
		User:       *u,
		Roles:      []rbac.Role{MemberRole},
	}, nil
}

func (s *Service) validateCreate(ctx context.Context, req CreateStaffRequest) ([]core.FieldError, error) {
	var fields []core.FieldError

	taken, err := s.store.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		fields = append(fields, core.FieldError{Field: "email", Error: "email is already taken"})
	}

	if req.PhoneNumber != "" {
		taken, err = s.store.Memberships.ExistsByPhone(ctx, req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		if taken {
			fields = append(fields, core.FieldError{Field: "phoneNumber", Error: "phone number is already taken"})
		}
	}

	return fields, nil
}

// Get loads the member identified by its user id.
func (s *Service) Get(ctx context.Context, userID string) (*store.StaffMember, error) {
	var member *store.StaffMember
	err := s.store.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		m, err := s.store.Memberships.GetByUser(ctx, userID)
		if err != nil {
			return core.NameNotFound(err, "staff member")
		}
		u, err := s.store.Users.GetByID(ctx, userID)
		if err != nil {
			return core.NameNotFound(err, "staff member")
		}
		roles, err := s.store.Roles.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		member = &store.StaffMember{Membership: *m, User: *u, Roles: store.RoleNames(roles)}
		return nil
	})
	return member, err
}

// List returns every membership for ADMIN and the actor's own company
// otherwise.
func (s *Service) List(
	ctx context.Context,
	actor *rbac.Actor,
	page store.Page,
) ([]store.StaffMember, int, error) {
	filter := store.StaffFilter{Page: page}
	if !actor.IsAdmin() {
		if actor == nil || actor.CompanyID == nil {
			return nil, 0, noCompanyError()
		}
		filter.CompanyID = *actor.CompanyID
	}
	return s.store.Memberships.ListStaff(ctx, filter)
}

// MyStaff lists the members of the actor's company.
func (s *Service) MyStaff(
	ctx context.Context,
	actor *rbac.Actor,
	page store.Page,
) ([]store.StaffMember, int, error) {
	if actor == nil || actor.CompanyID == nil {
		return nil, 0, noCompanyError()
	}
	return s.store.Memberships.ListStaff(ctx, store.StaffFilter{
		Page:      page,
		CompanyID: *actor.CompanyID,
	})
}

func (s *Service) CountByMonth(ctx context.Context, actor *rbac.Actor, year int) (store.MonthlyCounts, error) {
	if actor == nil || actor.CompanyID == nil {
		return store.MonthlyCounts{}, noCompanyError()
	}
	return s.store.Memberships.CountByMonth(ctx, *actor.CompanyID, year)
}

// Update writes the user fields and emits event.StaffUpdated; the
// membership fields are applied by the sync reaction.
func (s *Service) Update(
	ctx context.Context,
	member *store.StaffMember,
	req UpdateStaffRequest,
) (*store.StaffMember, error) {
	u := member.User

	var fields []core.FieldError
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != u.Email {
			taken, err := s.store.Users.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken {
				fields = append(fields, core.FieldError{Field: "email", Error: "email is already taken"})
			}
		}
		u.Email = email
	}
	if req.PhoneNumber != nil && *req.PhoneNumber != "" {
		current := member.Membership.PhoneNumber
		if current == nil || *current != *req.PhoneNumber {
			taken, err := s.store.Memberships.ExistsByPhone(ctx, *req.PhoneNumber)
			if err != nil {
				return nil, err
			}
			if taken {
				fields = append(fields, core.FieldError{Field: "phoneNumber", Error: "phone number is already taken"})
			}
		}
	}
	if len(fields) > 0 {
		return nil, core.ValidationError(fields...)
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}

	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return core.NameNotFound(s.store.Users.Update(ctx, &u), "staff member")
	})
	if err != nil {
		return nil, err
	}

	patch := MembershipPatch{
		PhoneNumber:  req.PhoneNumber,
		Title:        req.Title,
		Role:         req.Role,
		IDNumber:     req.IDNumber,
		IDAttachment: req.IDAttachment,
		IsActive:     req.IsActive,
	}
	s.events.Publish(ctx, event.StaffUpdated, UpdatedPayload{
		UserID:     u.ID,
		CompanyID:  member.Membership.CompanyID,
		Membership: patch,
	})

	updated := *member
	updated.User = u
	return &updated, nil
}

// Delete removes the member's account with its membership and roles.
func (s *Service) Delete(ctx context.Context, member *store.StaffMember) error {
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return user.RemoveAccount(ctx, s.store, member.User.ID)
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, event.StaffDeleted, DeletedPayload{
		UserID:    member.User.ID,
		CompanyID: member.Membership.CompanyID,
		Email:     member.User.Email,
	})
	return nil
}
