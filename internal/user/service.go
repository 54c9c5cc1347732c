// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/auth"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

// DeletedPayload is the body of event.UserDeleted.
type DeletedPayload struct {
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	CompanyID *string `json:"companyId,omitempty"`
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
	return &Service{
		store:  st,
		hasher: hasher,
		events: events,
		logger: logger,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create validates req, then writes the user and its role in one transaction.
// The email pre-check is advisory; the unique index decides concurrent races.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*Profile, error) {
	email := NormalizeEmail(req.Email)

	var fields []core.FieldError
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		fields = append(fields, core.FieldError{Field: "role", Error: "role is not recognised"})
	}
	taken, err := s.store.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		fields = append(fields, core.FieldError{Field: "email", Error: "email is already taken"})
	}
	if len(fields) > 0 {
		return nil, core.ValidationError(fields...)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &store.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Photo:        req.Photo,
	}
	return s.createWithRole(ctx, u, role)
}

func (s *Service) createWithRole(
	ctx context.Context,
	u *store.User,
	role rbac.Role,
) (*Profile, error) {
	assignment := store.NewRoleAssignment(u.ID, role)

	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Users.Create(ctx, u); err != nil {
			return err
		}
		return s.store.Roles.Assign(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}

	return &Profile{User: *u, Roles: []store.RoleAssignment{*assignment}}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	var p *Profile
	err := s.store.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		u, err := s.store.Users.GetByID(ctx, id)
		if err != nil {
			return core.NameNotFound(err, "user")
		}
		p, err = s.profile(ctx, u)
		return err
	})
	return p, err
}

func (s *Service) profile(ctx context.Context, u *store.User) (*Profile, error) {
	roles, err := s.store.Roles.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	p := &Profile{User: *u, Roles: roles}

	m, err := s.store.Memberships.GetByUser(ctx, u.ID)
	switch {
	case err == nil:
		p.Membership = m
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filter store.UserFilter) ([]Profile, int, error) {
	filter.Normalize()

	var (
		profiles []Profile
		total    int
	)
	err := s.store.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		users, n, err := s.store.Users.List(ctx, filter)
		if err != nil {
			return err
		}

		profiles = make([]Profile, 0, len(users))
		for i := range users {
			p, err := s.profile(ctx, &users[i])
			if err != nil {
				return err
			}
			profiles = append(profiles, *p)
		}
		total = n
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// Update applies the non-nil fields of req. Replacing the role set is
// reserved to ADMIN actors.
func (s *Service) Update(
	ctx context.Context,
	actor *rbac.Actor,
	id string,
	req UpdateUserRequest,
) (*Profile, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, core.NameNotFound(err, "user")
	}

	var fields []core.FieldError
	var role rbac.Role
	if req.Role != nil {
		if !actor.IsAdmin() {
			return nil, rbac.Deny(rbac.ReasonInsufficientRole).Err()
		}
		if role, err = rbac.ParseRole(*req.Role); err != nil {
			fields = append(fields, core.FieldError{Field: "role", Error: "role is not recognised"})
		}
	}
	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
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
	if req.Photo != nil {
		u.Photo = *req.Photo
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Users.Update(ctx, u); err != nil {
			return core.NameNotFound(err, "user")
		}
		if role == "" {
			return nil
		}
		if _, err := s.store.Roles.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		return s.store.Roles.Assign(ctx, store.NewRoleAssignment(u.ID, role))
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the user with its membership and roles, then emits
// event.UserDeleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	var payload DeletedPayload

	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.store.Users.GetByID(ctx, id)
		if err != nil {
			return core.NameNotFound(err, "user")
		}
		payload = DeletedPayload{UserID: u.ID, Email: u.Email}

		if m, err := s.store.Memberships.GetByUser(ctx, id); err == nil {
			payload.CompanyID = &m.CompanyID
		}
		return RemoveAccount(ctx, s.store, id)
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, event.UserDeleted, payload)
	return nil
}

// RemoveAccount deletes a user row after its dependent rows. Call it inside
// a transaction so the cascade commits as one unit.
func RemoveAccount(ctx context.Context, st *store.Store, userID string) error {
	if _, err := st.Memberships.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove memberships: %w", err)
	}
	if _, err := st.Roles.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("remove roles: %w", err)
	}
	if err := st.Users.Delete(ctx, userID); err != nil {
		return core.NameNotFound(err, "user")
	}
	return nil
}

// LoadActor resolves the token subject into the actor the guard evaluates.
func (s *Service) LoadActor(
	ctx context.Context,
	userID string,
	tokenVersion int,
) (*rbac.Actor, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.TokenInvalidError()
		}
		return nil, err
	}
	if tokenVersion < u.TokenVersion {
		return nil, core.TokenRevokedError()
	}

	p, err := s.profile(ctx, u)
	if err != nil {
		return nil, err
	}

	actor := &rbac.Actor{
		UserID: u.ID,
		Email:  u.Email,
		Roles:  p.RoleNames(),
	}
	if p.Membership != nil {
		companyID := p.Membership.CompanyID
		actor.CompanyID = &companyID
	}
	return actor, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.userInfo(ctx, u)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	u, err := s.store.Users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return s.userInfo(ctx, u)
}

// Register creates a self-service account holding role.
func (s *Service) Register(
	ctx context.Context,
	reg auth.Registration,
	role rbac.Role,
) (*auth.UserInfo, error) {
	u := &store.User{
		ID:           uuid.New().String(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        NormalizeEmail(reg.Email),
		PasswordHash: reg.PasswordHash,
		PhoneNumber:  reg.PhoneNumber,
	}

	p, err := s.createWithRole(ctx, u, role)
	if err != nil {
		if appErr, ok := core.AsAppError(err); ok && errors.Is(appErr, core.ErrDuplicateKey) {
			return nil, auth.ErrEmailExists
		}
		return nil, err
	}
	return toUserInfo(&p.User, p.RoleNames()), nil
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.store.Users.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.store.Users.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) userInfo(ctx context.Context, u *store.User) (*auth.UserInfo, error) {
	roles, err := s.store.Roles.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u, store.RoleNames(roles)), nil
}

func toUserInfo(u *store.User, roles []rbac.Role) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Roles:        roles,
		TokenVersion: u.TokenVersion,
	}
}

var _ auth.UserProvider = (*Service)(nil)
