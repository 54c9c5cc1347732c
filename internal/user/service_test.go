// AngelaMos | 2026
// service_test.go

package user_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/auth"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/memstore"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	st   *store.Store
	disp *event.Dispatcher
	svc  *user.Service
	logs *lockedBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := memstore.New()
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	f := &fixture{st: mem.Repositories(), logs: logs}
	f.disp = event.NewDispatcher(mem.Failures(), logger)
	user.RegisterReactions(f.disp, logger)
	f.svc = user.NewService(f.st, plainHasher{}, f.disp, logger)

	t.Cleanup(func() {
		_ = f.disp.Shutdown(context.Background())
	})
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.disp.Flush(ctx))
}

func (f *fixture) create(t *testing.T, email string, role rbac.Role) *user.Profile {
	t.Helper()
	p, err := f.svc.Create(context.Background(), user.CreateUserRequest{
		FirstName: "Jo",
		LastName:  "Doe",
		Email:     email,
		Password:  "correct-horse",
		Role:      string(role),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) join(t *testing.T, userID string) *store.Company {
	t.Helper()
	ctx := context.Background()
	c := &store.Company{ID: uuid.New().String(), Name: "Acme", Email: uuid.NewString() + "@acme.test"}
	require.NoError(t, f.st.Companies.Create(ctx, c))
	require.NoError(t, f.st.Memberships.Create(ctx, &store.Membership{
		ID:        uuid.New().String(),
		CompanyID: c.ID,
		UserID:    userID,
		Title:     store.NotApplicable,
		IsActive:  true,
	}))
	return c
}

var admin = &rbac.Actor{UserID: "admin-1", Roles: []rbac.Role{rbac.RoleAdmin}}

func TestCreate_AssignsRoleWithDefaultPermissions(t *testing.T) {
	f := newFixture(t)

	p := f.create(t, "Jo@Example.com", rbac.RoleDeveloper)
	assert.Equal(t, "jo@example.com", p.User.Email)
	assert.Equal(t, "plain:correct-horse", p.User.PasswordHash)
	require.Len(t, p.Roles, 1)
	assert.Equal(t, rbac.RoleDeveloper, p.Roles[0].Name)
	assert.Equal(t, rbac.DefaultPermissions(rbac.RoleDeveloper), p.Roles[0].Permissions)
}

func TestCreate_ValidationListsRoleAndEmail(t *testing.T) {
	f := newFixture(t)
	f.create(t, "jo@example.com", rbac.RoleClient)

	_, err := f.svc.Create(context.Background(), user.CreateUserRequest{
		FirstName: "Jo",
		LastName:  "Doe",
		Email:     "JO@example.com",
		Password:  "correct-horse",
		Role:      "WIZARD",
	})
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "role", appErr.Fields[0].Field)
	assert.Equal(t, "email", appErr.Fields[1].Field)
}

func TestCreate_ConcurrentSameEmailCommitsOnce(t *testing.T) {
	f := newFixture(t)

	const attempts = 16
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Create(context.Background(), user.CreateUserRequest{
				FirstName: "Jo",
				LastName:  "Doe",
				Email:     "race@example.com",
				Password:  "correct-horse",
				Role:      string(rbac.RoleClient),
			})
		}()
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		appErr, ok := core.AsAppError(err)
		require.True(t, ok, err)
		require.NotEmpty(t, appErr.Fields)
		assert.Equal(t, "email", appErr.Fields[0].Field)
	}
	assert.Equal(t, 1, succeeded)

	_, total, err := f.st.Users.List(context.Background(), store.UserFilter{Search: "race@"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUpdate_RoleChangeIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "jo@example.com", rbac.RoleClient)

	self := &rbac.Actor{UserID: p.User.ID, Roles: []rbac.Role{rbac.RoleClient}}
	promote := string(rbac.RoleAdmin)

	_, err := f.svc.Update(ctx, self, p.User.ID, user.UpdateUserRequest{Role: &promote})
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_ROLE", appErr.Code)

	manager := string(rbac.RoleManager)
	updated, err := f.svc.Update(ctx, admin, p.User.ID, user.UpdateUserRequest{Role: &manager})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleManager}, updated.RoleNames())
}

func TestUpdate_SelfChangesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "jo@example.com", rbac.RoleClient)
	f.create(t, "taken@example.com", rbac.RoleClient)

	self := &rbac.Actor{UserID: p.User.ID, Roles: []rbac.Role{rbac.RoleClient}}

	taken := "Taken@example.com"
	_, err := f.svc.Update(ctx, self, p.User.ID, user.UpdateUserRequest{Email: &taken})
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "email", appErr.Fields[0].Field)

	first, phone := "Joanna", "+1555"
	updated, err := f.svc.Update(ctx, self, p.User.ID, user.UpdateUserRequest{
		FirstName:   &first,
		PhoneNumber: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Joanna", updated.User.FirstName)
	assert.Equal(t, "+1555", updated.User.PhoneNumber)
	assert.Equal(t, "jo@example.com", updated.User.Email)
}

func TestDelete_CascadesMembershipAndRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "jo@example.com", rbac.RoleCompanyUser)
	company := f.join(t, p.User.ID)

	require.NoError(t, f.svc.Delete(ctx, p.User.ID))

	_, err := f.st.Users.GetByID(ctx, p.User.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.st.Memberships.GetByUser(ctx, p.User.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	roles, err := f.st.Roles.ListByUser(ctx, p.User.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = f.st.Companies.GetByID(ctx, company.ID)
	require.NoError(t, err, "the company outlives its members")

	f.flush(t)
	assert.Contains(t, f.logs.String(), "user deleted")
	assert.Contains(t, f.logs.String(), company.ID)

	err = f.svc.Delete(ctx, p.User.ID)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "user not found", appErr.Message)
}

func TestLoadActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "jo@example.com", rbac.RoleCompanyAdmin)
	company := f.join(t, p.User.ID)

	actor, err := f.svc.LoadActor(ctx, p.User.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleCompanyAdmin}, actor.Roles)
	require.NotNil(t, actor.CompanyID)
	assert.Equal(t, company.ID, *actor.CompanyID)

	require.NoError(t, f.svc.IncrementTokenVersion(ctx, p.User.ID))
	_, err = f.svc.LoadActor(ctx, p.User.ID, 0)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.svc.LoadActor(ctx, p.User.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.LoadActor(ctx, uuid.New().String(), 0)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.svc.Register(ctx, auth.Registration{
		FirstName:    "Jo",
		LastName:     "Doe",
		Email:        "Jo@Example.com",
		PasswordHash: "hash",
	}, auth.SignupRole)
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleClient}, info.Roles)

	_, err = f.svc.Register(ctx, auth.Registration{Email: "jo@example.com", PasswordHash: "hash"}, auth.SignupRole)
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	found, err := f.svc.GetByEmail(ctx, "JO@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, info.ID, found.ID)
}
