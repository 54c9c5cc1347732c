// AngelaMos | 2026
// reconciler.go

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("reconciliation already running")

const reconcileLockKey = "lock:reactions:reconcile"

// Locker serializes reconciliation across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes a SET NX lock whose release only deletes the key while
// it still holds the caller's token.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

// Reconciler drives Dispatcher.Reconcile, either on demand or on a ticker.
type Reconciler struct {
	dispatcher *Dispatcher
	locker     Locker
	interval   time.Duration
	batch      int
	lockTTL    time.Duration
	logger     *slog.Logger
}

func NewReconciler(
	dispatcher *Dispatcher,
	locker Locker,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *Reconciler {
	if batch <= 0 {
		batch = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		dispatcher: dispatcher,
		locker:     locker,
		interval:   interval,
		batch:      batch,
		lockTTL:    5 * time.Minute,
		logger:     logger,
	}
}

// RunOnce reconciles one batch. It returns ErrLockHeld when another process
// is reconciling.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	if r.locker == nil {
		return r.dispatcher.Reconcile(ctx, r.batch)
	}

	release, ok, err := r.locker.TryLock(ctx, reconcileLockKey, r.lockTTL)
	if err != nil {
		return Report{}, err
	}
	if !ok {
		return Report{}, ErrLockHeld
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("release reconcile lock", "error", err)
		}
	}()

	return r.dispatcher.Reconcile(ctx, r.batch)
}

// Run reconciles every interval until ctx is done. A non-positive interval
// disables the loop.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			switch {
			case errors.Is(err, ErrLockHeld):
				r.logger.Debug("reconcile skipped, lock held elsewhere")
			case err != nil:
				r.logger.Error("reconcile failed", "error", err)
			case report.Attempted > 0 || report.Skipped > 0:
				r.logger.Info("reconcile finished",
					"attempted", report.Attempted,
					"resolved", report.Resolved,
					"failed", report.Failed,
					"skipped", report.Skipped,
				)
			}
		}
	}
}
