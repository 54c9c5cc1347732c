// AngelaMos | 2026
// dispatcher_test.go

package event_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/memstore"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newDispatcher(t *testing.T) (*event.Dispatcher, event.FailureStore, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	failures := memstore.New().Failures()
	return event.NewDispatcher(failures, logger), failures, logs
}

func drain(t *testing.T, d *event.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func TestEmit_RunsReactionsInRegistrationOrder(t *testing.T) {
	d, _, _ := newDispatcher(t)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"first", "second", "third"} {
		d.Register(event.CompanyCreated, name, func(context.Context, event.Event) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	d.Publish(context.Background(), event.CompanyCreated, map[string]string{"id": "c1"})
	drain(t, d)

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, []string{"first", "second", "third"}, d.Reactions(event.CompanyCreated))
}

func TestEmit_FailureIsIsolatedLoggedAndRecorded(t *testing.T) {
	d, failures, logs := newDispatcher(t)

	var ranAfter bool
	d.Register(event.CompanyCreated, "explodes", func(context.Context, event.Event) error {
		return errors.New("provisioning failed")
	})
	d.Register(event.CompanyCreated, "panics", func(context.Context, event.Event) error {
		panic("unexpected")
	})
	d.Register(event.CompanyCreated, "after", func(context.Context, event.Event) error {
		ranAfter = true
		return nil
	})

	d.Publish(context.Background(), event.CompanyCreated, map[string]string{"id": "c1"})
	drain(t, d)

	assert.True(t, ranAfter)
	assert.Contains(t, logs.String(), "reaction failed")
	assert.Contains(t, logs.String(), "provisioning failed")

	pending, err := failures.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "explodes", pending[0].Reaction)
	assert.Equal(t, "panics", pending[1].Reaction)
	assert.JSONEq(t, `{"id":"c1"}`, string(pending[0].Payload))
}

func TestEmit_DetachedFromCallerCancellation(t *testing.T) {
	d, failures, _ := newDispatcher(t)

	release := make(chan struct{})
	done := make(chan error, 1)
	d.Register(event.StaffCreated, "slow", func(ctx context.Context, _ event.Event) error {
		<-release
		done <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Publish(ctx, event.StaffCreated, "payload")
	cancel()
	close(release)

	require.NoError(t, <-done)
	drain(t, d)

	pending, err := failures.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEmit_AfterShutdownIsRecorded(t *testing.T) {
	d, failures, _ := newDispatcher(t)
	d.Register(event.CompanyDeleted, "audit", func(context.Context, event.Event) error { return nil })
	drain(t, d)

	d.Publish(context.Background(), event.CompanyDeleted, "c1")

	pending, err := failures.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Error, event.ErrDispatcherClosed.Error())
}

func TestRegister_DuplicateNamePanics(t *testing.T) {
	d, _, _ := newDispatcher(t)
	noop := func(context.Context, event.Event) error { return nil }
	d.Register(event.CompanyCreated, "r", noop)

	assert.Panics(t, func() { d.Register(event.CompanyCreated, "r", noop) })
	assert.NotPanics(t, func() { d.Register(event.CompanyUpdated, "r", noop) })
}

func TestReconcile_ResolvesOnceReactionSucceeds(t *testing.T) {
	d, failures, _ := newDispatcher(t)

	var (
		mu    sync.Mutex
		fail  = true
		calls int
	)
	d.Register(event.CompanyCreated, "flaky", func(context.Context, event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if fail {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	d.Publish(context.Background(), event.CompanyCreated, "c1")
	require.Eventually(t, func() bool {
		pending, err := failures.Pending(context.Background(), 10)
		return err == nil && len(pending) == 1
	}, 5*time.Second, 10*time.Millisecond)

	report, err := d.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Attempted: 1, Failed: 1}, report)

	pending, err := failures.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)

	mu.Lock()
	fail = false
	mu.Unlock()

	report, err = d.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Attempted: 1, Resolved: 1}, report)

	report, err = d.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, event.Report{}, report)
	assert.Equal(t, 3, calls)
}

func TestReconcile_SkipsUnregisteredReaction(t *testing.T) {
	d, failures, _ := newDispatcher(t)

	require.NoError(t, failures.Record(context.Background(), &event.Failure{
		EventID: "e1", EventType: event.StaffUpdated, Reaction: "gone", Payload: []byte(`{}`),
	}))

	report, err := d.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Skipped: 1}, report)
}

func TestReconcile_RepeatedFailuresDoNotStarveNewerOnes(t *testing.T) {
	ctx := context.Background()
	failures := memstore.New().Failures()
	d := event.NewDispatcher(failures, slog.New(slog.DiscardHandler), event.WithMaxAttempts(3))

	d.Register(event.CompanyCreated, "poison", func(context.Context, event.Event) error {
		return errors.New("always broken")
	})
	var fixed int
	d.Register(event.StaffCreated, "fixable", func(context.Context, event.Event) error {
		fixed++
		return nil
	})

	for _, f := range []event.Failure{
		{EventID: "e1", EventType: event.CompanyCreated, Reaction: "poison"},
		{EventID: "e2", EventType: event.CompanyCreated, Reaction: "poison"},
		{EventID: "e3", EventType: event.StaffCreated, Reaction: "fixable"},
	} {
		f.Payload = []byte(`{}`)
		require.NoError(t, failures.Record(ctx, &f))
	}

	report, err := d.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Attempted: 2, Failed: 2}, report)

	report, err = d.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Attempted: 2, Resolved: 1, Failed: 1}, report)
	assert.Equal(t, 1, fixed)

	report, err = d.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Attempted: 1, Failed: 1, Exhausted: 1}, report)

	report, err = d.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Report{Exhausted: 2}, report)

	pending, err := failures.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, f := range pending {
		assert.Equal(t, "poison", f.Reaction)
		assert.Equal(t, 3, f.Attempts)
	}
}

func TestReplay_UnknownReaction(t *testing.T) {
	d, _, _ := newDispatcher(t)
	err := d.Replay(context.Background(), event.Event{Type: event.CompanyCreated}, "missing")
	assert.ErrorIs(t, err, event.ErrUnknownReaction)
}

type stubLocker struct {
	acquired bool
	released bool
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if !l.acquired {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, true, nil
}

func TestReconciler_RunOnceHonoursLock(t *testing.T) {
	d, _, _ := newDispatcher(t)

	held := &stubLocker{}
	_, err := event.NewReconciler(d, held, 0, 10, nil).RunOnce(context.Background())
	assert.ErrorIs(t, err, event.ErrLockHeld)

	free := &stubLocker{acquired: true}
	report, err := event.NewReconciler(d, free, 0, 10, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, event.Report{}, report)
	assert.True(t, free.released)
}
