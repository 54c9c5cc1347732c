// AngelaMos | 2026
// service_test.go

package staff_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/staff"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/memstore"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type fixture struct {
	st       *store.Store
	failures event.FailureStore
	disp     *event.Dispatcher
	svc      *staff.Service
	notes    *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := memstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		st:       mem.Repositories(),
		failures: mem.Failures(),
		notes:    &recordingNotifier{},
	}
	f.disp = event.NewDispatcher(f.failures, logger)
	staff.NewReactions(f.st, f.notes, logger).Register(f.disp)
	f.svc = staff.NewService(f.st, plainHasher{}, f.disp, logger)

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

func (f *fixture) seedCompany(t *testing.T, name string) *store.Company {
	t.Helper()
	c := &store.Company{ID: uuid.New().String(), Name: name, Email: name + "@corp.test", IsActive: true}
	require.NoError(t, f.st.Companies.Create(context.Background(), c))
	return c
}

func companyAdmin(companyID string) *rbac.Actor {
	return &rbac.Actor{
		UserID:    uuid.New().String(),
		Roles:     []rbac.Role{rbac.RoleCompanyAdmin},
		CompanyID: &companyID,
	}
}

var admin = &rbac.Actor{UserID: "admin-1", Roles: []rbac.Role{rbac.RoleAdmin}}

func newStaff(email, phone string) staff.CreateStaffRequest {
	return staff.CreateStaffRequest{
		FirstName:   "Ann",
		LastName:    "Lee",
		Email:       email,
		PhoneNumber: phone,
	}
}

func TestCreate_WritesUserRoleAndMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")

	member, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("Ann@Acme.test", "+100"))
	require.NoError(t, err)
	assert.Equal(t, acme.ID, member.Membership.CompanyID)
	assert.Equal(t, "ann@acme.test", member.User.Email)
	assert.Equal(t, store.NotApplicable, member.Membership.Title)
	assert.Equal(t, store.NotApplicable, member.Membership.IDNumber)

	loaded, err := f.svc.Get(ctx, member.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{staff.MemberRole}, loaded.Roles)
	require.NotNil(t, loaded.Membership.PhoneNumber)
	assert.Equal(t, "+100", *loaded.Membership.PhoneNumber)

	f.flush(t)
	msgs := f.notes.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindStaffWelcome, msgs[0].Kind)
	assert.Equal(t, "acme", msgs[0].Data["company"])
}

func TestCreate_MembershipFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := newStaff("ghost@acme.test", "")
	req.CompanyID = uuid.New().String()

	_, err := f.svc.Create(ctx, admin, req)
	require.Error(t, err)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "company not found", appErr.Message)

	exists, err := f.st.Users.ExistsByEmail(ctx, "ghost@acme.test")
	require.NoError(t, err)
	assert.False(t, exists)

	_, total, err := f.st.Users.List(ctx, store.UserFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	f.flush(t)
	assert.Empty(t, f.notes.messages())
}

func TestCreate_ValidationReportsEmailAndPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")
	actor := companyAdmin(acme.ID)

	_, err := f.svc.Create(ctx, actor, newStaff("ann@acme.test", "+100"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, actor, newStaff("ann@acme.test", "+100"))
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "email", appErr.Fields[0].Field)
	assert.Equal(t, "phoneNumber", appErr.Fields[1].Field)
}

func TestCreate_ConcurrentSameEmailCommitsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")
	actor := companyAdmin(acme.ID)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, actor, newStaff("race@acme.test", ""))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		appErr, ok := core.AsAppError(err)
		require.True(t, ok, err)
		assert.Contains(t, []int{400, 409}, appErr.StatusCode)
	}
	assert.Equal(t, 1, succeeded)

	_, total, err := f.st.Memberships.ListStaff(ctx, store.StaffFilter{CompanyID: acme.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreate_CompanyResolution(t *testing.T) {
	acmeID := uuid.New().String()

	id, err := staff.TargetCompany(companyAdmin(acmeID), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, acmeID, id, "company admins cannot pick another company")

	requested := uuid.New().String()
	id, err = staff.TargetCompany(admin, requested)
	require.NoError(t, err)
	assert.Equal(t, requested, id)

	_, err = staff.TargetCompany(admin, "")
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = staff.TargetCompany(&rbac.Actor{UserID: "x", Roles: []rbac.Role{rbac.RoleCompanyAdmin}}, "")
	assert.ErrorIs(t, err, staff.ErrNoCompany)
}

func TestList_ScopesToCompanyUnlessAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")
	other := f.seedCompany(t, "other")

	_, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("a1@acme.test", ""))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("a2@acme.test", ""))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, companyAdmin(other.ID), newStaff("o1@other.test", ""))
	require.NoError(t, err)

	_, total, err := f.svc.List(ctx, admin, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	members, total, err := f.svc.List(ctx, companyAdmin(acme.ID), store.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, m := range members {
		assert.Equal(t, acme.ID, m.Membership.CompanyID)
	}

	_, total, err = f.svc.MyStaff(ctx, companyAdmin(other.ID), store.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	counts, err := f.svc.CountByMonth(ctx, companyAdmin(acme.ID), time.Now().UTC().Year())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[time.Now().UTC().Month()-1])
}

func TestUpdate_SyncsMembershipThroughReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")

	member, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("ann@acme.test", ""))
	require.NoError(t, err)

	first, title, phone, inactive := "Anne", "Accountant", "+200", false
	updated, err := f.svc.Update(ctx, member, staff.UpdateStaffRequest{
		FirstName:   &first,
		Title:       &title,
		PhoneNumber: &phone,
		IsActive:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Anne", updated.User.FirstName)
	f.flush(t)

	loaded, err := f.svc.Get(ctx, member.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anne", loaded.User.FirstName)
	assert.Equal(t, "Accountant", loaded.Membership.Title)
	require.NotNil(t, loaded.Membership.PhoneNumber)
	assert.Equal(t, "+200", *loaded.Membership.PhoneNumber)
	assert.False(t, loaded.Membership.IsActive)

	pending, err := f.failures.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDelete_RemovesAccountAndMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedCompany(t, "acme")

	member, err := f.svc.Create(ctx, companyAdmin(acme.ID), newStaff("ann@acme.test", ""))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, member))

	_, err = f.st.Memberships.GetByID(ctx, member.Membership.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.st.Users.GetByID(ctx, member.User.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	roles, err := f.st.Roles.ListByUser(ctx, member.User.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = f.svc.Get(ctx, member.User.ID)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "staff member not found", appErr.Message)
}
