// AngelaMos | 2026
// dispatcher.go

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

type registration struct {
	name string
	fn   Reaction
}

// Dispatcher runs registered reactions after their originating transaction
// has committed. Reactions for one event run in registration order on a
// goroutine detached from the caller; distinct events run concurrently.
// A failing reaction is logged and written to the failure ledger, and never
// reaches the caller of Emit.
type Dispatcher struct {
	mu        sync.RWMutex
	reactions map[Type][]registration
	closed    bool
	wg        sync.WaitGroup

	reconcileMu sync.Mutex

	failures    FailureStore
	logger      *slog.Logger
	tracer      trace.Tracer
	timeout     time.Duration
	maxAttempts int
}

type Option func(*Dispatcher)

// WithReactionTimeout bounds a single reaction run.
func WithReactionTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithMaxAttempts stops reconciliation from replaying a failure once it has
// failed n times. Such entries stay in the ledger for an operator.
func WithMaxAttempts(n int) Option {
	return func(disp *Dispatcher) {
		disp.maxAttempts = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(disp *Dispatcher) {
		disp.tracer = t
	}
}

func NewDispatcher(
	failures FailureStore,
	logger *slog.Logger,
	opts ...Option,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		reactions: make(map[Type][]registration),
		failures:  failures,
		logger:    logger,
		tracer:    otel.Tracer("tenant-backend/event"),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends a reaction for t. Names identify the reaction in the
// failure ledger and must be unique per event type.
func (d *Dispatcher) Register(t Type, name string, fn Reaction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, reg := range d.reactions[t] {
		if reg.name == name {
			panic(fmt.Sprintf("event: reaction %q already registered for %s", name, t))
		}
	}
	d.reactions[t] = append(d.reactions[t], registration{name: name, fn: fn})
}

// Reactions lists the registered reaction names for t in run order.
func (d *Dispatcher) Reactions(t Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.reactions[t]))
	for _, reg := range d.reactions[t] {
		names = append(names, reg.name)
	}
	return names
}

// Publish builds an event from payload and emits it.
func (d *Dispatcher) Publish(ctx context.Context, t Type, payload any) {
	e, err := New(t, payload)
	if err != nil {
		d.logger.Error("event not emitted",
			"event_type", t,
			"error", err,
		)
		return
	}
	d.Emit(ctx, e)
}

// Emit schedules the reactions for e and returns immediately. Call it only
// after the transaction that produced e has committed.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	d.mu.RLock()
	regs := append([]registration(nil), d.reactions[e.Type]...)
	closed := d.closed
	if !closed && len(regs) > 0 {
		d.wg.Add(1)
	}
	d.mu.RUnlock()

	if len(regs) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)

	if closed {
		for _, reg := range regs {
			d.recordFailure(detached, e, reg.name, ErrDispatcherClosed)
		}
		return
	}

	go func() {
		defer d.wg.Done()
		for _, reg := range regs {
			if err := d.run(detached, e, reg); err != nil {
				d.recordFailure(detached, e, reg.name, err)
			}
		}
	}()
}

// Shutdown stops accepting events and waits for running reactions. Events
// emitted afterwards are recorded as failures for later reconciliation.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	return d.Flush(ctx)
}

// Flush waits for the reactions of every event emitted so far.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for reactions: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(
	ctx context.Context,
	e Event,
	reg registration,
) (err error) {
	ctx, span := d.tracer.Start(ctx, "event.reaction",
		trace.WithAttributes(
			attribute.String("event.id", e.ID),
			attribute.String("event.type", string(e.Type)),
			attribute.String("event.reaction", reg.name),
		),
	)
	defer span.End()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reaction panicked: %v", p)
			d.logger.Error("reaction panic",
				"event_id", e.ID,
				"reaction", reg.name,
				"stack", string(debug.Stack()),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return reg.fn(ctx, e)
}

func (d *Dispatcher) recordFailure(
	ctx context.Context,
	e Event,
	reaction string,
	cause error,
) {
	d.logger.Error("reaction failed",
		"event_id", e.ID,
		"event_type", e.Type,
		"reaction", reaction,
		"payload", string(e.Payload),
		"error", cause,
	)

	if d.failures == nil {
		return
	}

	f := &Failure{
		EventID:    e.ID,
		EventType:  e.Type,
		Reaction:   reaction,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
		Error:      cause.Error(),
	}
	if err := d.failures.Record(ctx, f); err != nil {
		d.logger.Error("record reaction failure",
			"event_id", e.ID,
			"reaction", reaction,
			"error", err,
		)
	}
}
