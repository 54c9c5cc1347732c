// AngelaMos | 2026
// reconcile.go

package event

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownReaction = errors.New("reaction not registered")

type Report struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Exhausted int `json:"exhausted"`
}

func (d *Dispatcher) exhausted(f Failure) bool {
	return d.maxAttempts > 0 && f.Attempts >= d.maxAttempts
}

func (d *Dispatcher) lookup(t Type, name string) (registration, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, reg := range d.reactions[t] {
		if reg.name == name {
			return reg, true
		}
	}
	return registration{}, false
}

// Replay runs one named reaction for e synchronously and returns its error.
func (d *Dispatcher) Replay(ctx context.Context, e Event, reaction string) error {
	reg, ok := d.lookup(e.Type, reaction)
	if !ok {
		return fmt.Errorf("replay %s/%s: %w", e.Type, reaction, ErrUnknownReaction)
	}
	return d.run(ctx, e, reg)
}

// Reconcile re-runs up to limit pending failures with their stored payloads.
// Successes are resolved; failures stay pending with attempts bumped.
func (d *Dispatcher) Reconcile(ctx context.Context, limit int) (Report, error) {
	var report Report
	if d.failures == nil {
		return report, nil
	}

	d.reconcileMu.Lock()
	defer d.reconcileMu.Unlock()

	pending, err := d.failures.Pending(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("load pending failures: %w", err)
	}

	for _, f := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		if d.exhausted(f) {
			report.Exhausted++
			continue
		}

		reg, ok := d.lookup(f.EventType, f.Reaction)
		if !ok {
			report.Skipped++
			d.logger.Warn("skipping failure for unregistered reaction",
				"failure_id", f.ID,
				"event_type", f.EventType,
				"reaction", f.Reaction,
			)
			continue
		}

		report.Attempted++
		e := f.Event()

		if err := d.run(ctx, e, reg); err != nil {
			report.Failed++
			d.recordFailure(ctx, e, f.Reaction, err)
			if d.maxAttempts > 0 && f.Attempts+1 >= d.maxAttempts {
				d.logger.Warn("reaction gave up after max attempts",
					"failure_id", f.ID,
					"event_type", f.EventType,
					"reaction", f.Reaction,
					"attempts", f.Attempts+1,
				)
			}
			continue
		}

		if err := d.failures.Resolve(ctx, f.ID); err != nil {
			return report, fmt.Errorf("resolve failure %s: %w", f.ID, err)
		}
		report.Resolved++
		d.logger.Info("reaction reconciled",
			"event_id", f.EventID,
			"event_type", f.EventType,
			"reaction", f.Reaction,
			"attempts", f.Attempts,
		)
	}

	return report, nil
}
