// AngelaMos | 2026
// memstore_test.go

package memstore

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

func newUser(email string) *store.User {
	return &store.User{ID: uuid.New().String(), FirstName: "Test", LastName: "User", Email: email}
}

func newCompany(email string) *store.Company {
	return &store.Company{ID: uuid.New().String(), Name: "Acme", Email: email, IsActive: true}
}

func conflictField(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := core.AsAppError(err)
	require.True(t, ok, "expected app error, got %v", err)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)
	if len(appErr.Fields) == 0 {
		return ""
	}
	return appErr.Fields[0].Field
}

func TestWithinTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("a@example.com")

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return repos.Users.Create(ctx, u)
	})
	require.NoError(t, err)

	got, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestWithinReadOnly_SeesCommittedStateAndDropsWrites(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("a@example.com")
	require.NoError(t, repos.Users.Create(ctx, u))

	stray := newUser("b@example.com")
	err := repos.Tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		got, err := repos.Users.GetByID(ctx, u.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "a@example.com", got.Email)
		return repos.Users.Create(ctx, stray)
	})
	require.NoError(t, err)

	_, err = repos.Users.GetByID(ctx, stray.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRefreshTokens_RotateOnce(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("a@example.com")
	require.NoError(t, repos.Users.Create(ctx, u))

	token := func() *store.RefreshToken {
		return &store.RefreshToken{
			ID: uuid.New().String(), UserID: u.ID, TokenHash: uuid.New().String(), FamilyID: "f1",
		}
	}
	first := token()
	require.NoError(t, repos.RefreshTokens.Create(ctx, first))

	second := token()
	require.NoError(t, repos.RefreshTokens.Rotate(ctx, first.ID, second))

	third := token()
	assert.ErrorIs(t, repos.RefreshTokens.Rotate(ctx, first.ID, third), store.ErrRefreshTokenSpent)
	_, err := repos.RefreshTokens.FindByHash(ctx, third.TokenHash)
	assert.ErrorIs(t, err, core.ErrNotFound)

	used, err := repos.RefreshTokens.FindByHash(ctx, first.TokenHash)
	require.NoError(t, err)
	assert.True(t, used.IsUsed)
	require.NotNil(t, used.ReplacedByID)
	assert.Equal(t, second.ID, *used.ReplacedByID)
}

func TestWithinTx_RollbackDiscardsEveryWrite(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("a@example.com")
	boom := errors.New("boom")

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := repos.Roles.Assign(ctx, &store.RoleAssignment{
			ID: uuid.New().String(), UserID: u.ID, Name: rbac.RoleStaff,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repos.Users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	roles, err := repos.Roles.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("a@example.com")

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return repos.Users.Create(ctx, u)
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	exists, err := repos.Users.ExistsByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsers_EmailUniqueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
				return repos.Users.Create(ctx, newUser("same@example.com"))
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if appErr, isApp := core.AsAppError(err); isApp && appErr.StatusCode == http.StatusConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
}

func TestMemberships_UniqueRules(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	c1, c2 := newCompany("one@acme.com"), newCompany("two@acme.com")
	u1, u2 := newUser("u1@example.com"), newUser("u2@example.com")
	require.NoError(t, repos.Companies.Create(ctx, c1))
	require.NoError(t, repos.Companies.Create(ctx, c2))
	require.NoError(t, repos.Users.Create(ctx, u1))
	require.NoError(t, repos.Users.Create(ctx, u2))

	phone := "+100"
	require.NoError(t, repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c1.ID, UserID: u1.ID, PhoneNumber: &phone,
	}))

	err := repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c1.ID, UserID: u1.ID,
	})
	assert.Equal(t, "userId", conflictField(t, err))

	err = repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c2.ID, UserID: u1.ID,
	})
	assert.Equal(t, "userId", conflictField(t, err))

	samePhone := "+100"
	err = repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c1.ID, UserID: u2.ID, PhoneNumber: &samePhone,
	})
	assert.Equal(t, "phoneNumber", conflictField(t, err))

	require.NoError(t, repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c1.ID, UserID: u2.ID,
	}))
}

func TestMemberships_MissingCompanyIsNotFound(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("u@example.com")
	require.NoError(t, repos.Users.Create(ctx, u))

	err := repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: uuid.New().String(), UserID: u.ID,
	})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete_RefusesWhileMembershipsExist(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	c := newCompany("c@acme.com")
	u := newUser("u@example.com")
	require.NoError(t, repos.Companies.Create(ctx, c))
	require.NoError(t, repos.Users.Create(ctx, u))
	require.NoError(t, repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c.ID, UserID: u.ID,
	}))

	assert.Equal(t, "", conflictField(t, repos.Companies.Delete(ctx, c.ID)))
	assert.Equal(t, "", conflictField(t, repos.Users.Delete(ctx, u.ID)))

	n, err := repos.Memberships.DeleteByCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, repos.Companies.Delete(ctx, c.ID))
	require.NoError(t, repos.Users.Delete(ctx, u.ID))
}

func TestUsers_DeleteCascadesRoles(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	u := newUser("u@example.com")
	require.NoError(t, repos.Users.Create(ctx, u))
	require.NoError(t, repos.Roles.Assign(ctx, &store.RoleAssignment{
		ID: uuid.New().String(), UserID: u.ID, Name: rbac.RoleClient,
	}))

	require.NoError(t, repos.Users.Delete(ctx, u.ID))

	roles, err := repos.Roles.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestFindContact_PicksCompanyAdmin(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	c := newCompany("c@acme.com")
	staff, admin := newUser("staff@acme.com"), newUser("admin@acme.com")
	require.NoError(t, repos.Companies.Create(ctx, c))
	require.NoError(t, repos.Users.Create(ctx, staff))
	require.NoError(t, repos.Users.Create(ctx, admin))
	require.NoError(t, repos.Roles.Assign(ctx, &store.RoleAssignment{
		ID: uuid.New().String(), UserID: staff.ID, Name: rbac.RoleStaff,
	}))
	require.NoError(t, repos.Roles.Assign(ctx, &store.RoleAssignment{
		ID: uuid.New().String(), UserID: admin.ID, Name: rbac.RoleCompanyAdmin,
	}))

	_, err := repos.Memberships.FindContact(ctx, c.ID)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c.ID, UserID: staff.ID,
	}))
	require.NoError(t, repos.Memberships.Create(ctx, &store.Membership{
		ID: uuid.New().String(), CompanyID: c.ID, UserID: admin.ID,
	}))

	contact, err := repos.Memberships.FindContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, contact.User.ID)
	assert.Equal(t, []rbac.Role{rbac.RoleCompanyAdmin}, contact.Roles)
}

func TestFailures_RecordUpsertsAndResolves(t *testing.T) {
	ctx := context.Background()
	failures := New().Failures()

	f := &event.Failure{EventID: "e1", EventType: event.CompanyCreated, Reaction: "r", Error: "first"}
	require.NoError(t, failures.Record(ctx, f))
	assert.Equal(t, 1, f.Attempts)

	require.NoError(t, failures.Record(ctx, &event.Failure{
		EventID: "e1", EventType: event.CompanyCreated, Reaction: "r", Error: "second",
	}))

	pending, err := failures.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "second", pending[0].Error)

	require.NoError(t, failures.Resolve(ctx, pending[0].ID))

	pending, err = failures.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := failures.List(ctx, event.FailureFilter{IncludeResolved: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved())

	assert.ErrorIs(t, failures.Resolve(ctx, "missing"), core.ErrNotFound)
}
