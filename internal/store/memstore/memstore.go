// AngelaMos | 2026
// memstore.go

// Package memstore keeps every table in process memory. A transaction holds
// the store lock, works on a private copy of the tables and publishes the
// copy only on success, so transactions are serializable and a failed one
// leaves nothing behind. Unique and foreign key rules match the migrations.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
)

type tables struct {
	users       map[string]store.User
	roles       map[string]store.RoleAssignment
	companies   map[string]store.Company
	memberships map[string]store.Membership
	tokens      map[string]store.RefreshToken
	failures    map[string]event.Failure
}

func newTables() *tables {
	return &tables{
		users:       make(map[string]store.User),
		roles:       make(map[string]store.RoleAssignment),
		companies:   make(map[string]store.Company),
		memberships: make(map[string]store.Membership),
		tokens:      make(map[string]store.RefreshToken),
		failures:    make(map[string]event.Failure),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		users:       cloneMap(t.users),
		roles:       cloneMap(t.roles),
		companies:   cloneMap(t.companies),
		memberships: cloneMap(t.memberships),
		tokens:      cloneMap(t.tokens),
		failures:    cloneMap(t.failures),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type txKey struct{}

type txState struct {
	owner *Store
	data  *tables
}

type Store struct {
	mu   sync.Mutex
	data *tables

	clockMu sync.Mutex
	last    time.Time
}

func New() *Store {
	return &Store{data: newTables()}
}

// Repositories wires every repository of s behind s as transaction manager.
func (s *Store) Repositories() *store.Store {
	return &store.Store{
		Tx:            s,
		Users:         &userRepo{s: s},
		Roles:         &roleRepo{s: s},
		Companies:     &companyRepo{s: s},
		Memberships:   &membershipRepo{s: s},
		RefreshTokens: &tokenRepo{s: s},
	}
}

func (s *Store) Failures() event.FailureStore {
	return &failureRepo{s: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok && st.owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, &txState{owner: s, data: work})); err != nil {
		return err
	}

	s.data = work
	return nil
}

// WithinReadOnly runs fn on a private copy of the tables that is dropped
// afterwards, so writes made inside it never become visible.
func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok && st.owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(context.WithValue(ctx, txKey{}, &txState{owner: s, data: s.data.clone()}))
}

// do runs fn against the transaction's tables when ctx carries one of s's
// transactions, otherwise against the live tables under the lock. Writers
// must check every rule before mutating.
func (s *Store) do(ctx context.Context, fn func(t *tables) error) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok && st.owner == s {
		return fn(st.data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// now is strictly increasing so creation order is total.
func (s *Store) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

var (
	_ store.TxManager     = (*Store)(nil)
	_ store.Users         = (*userRepo)(nil)
	_ store.Roles         = (*roleRepo)(nil)
	_ store.Companies     = (*companyRepo)(nil)
	_ store.Memberships   = (*membershipRepo)(nil)
	_ store.RefreshTokens = (*tokenRepo)(nil)
	_ event.FailureStore  = (*failureRepo)(nil)
)
