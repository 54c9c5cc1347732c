// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/rbac"
)

// limiter asks redis first and falls back to an in-process token bucket
// per key while redis is unreachable, so an outage degrades to per-instance
// limits instead of rejecting traffic.
type limiter struct {
	redis *redis_rate.Limiter
	local *localLimiter
}

func newLimiter(rdb *redis.Client) *limiter {
	return &limiter{
		redis: redis_rate.NewLimiter(rdb),
		local: newLocalLimiter(),
	}
}

func (l *limiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	res, err := l.redis.Allow(ctx, key, limit)
	if err == nil {
		return res
	}

	slog.Debug("rate limiter using local fallback", "key", key, "error", err)
	return l.local.allow(key, limit)
}

// enforce writes the rate limit headers and reports whether the request may
// proceed. A denied request has already been answered with 429.
func (l *limiter) enforce(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	limit redis_rate.Limit,
) bool {
	res := l.allow(r.Context(), key, limit)
	setRateLimitHeaders(w, res, limit)

	if res.Allowed == 0 {
		writeRateLimitExceeded(w, res)
		return false
	}
	return true
}

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
}

// RateLimiter applies one limit to every request, keyed by KeyFunc
// (client IP by default).
type RateLimiter struct {
	backend *limiter
	config  RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		backend: newLimiter(rdb),
		config:  cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.backend.enforce(w, r, rl.config.KeyFunc(r), rl.config.Limit) {
			next.ServeHTTP(w, r)
		}
	})
}

// CredentialLimiter guards the unauthenticated credential endpoints (login,
// signup, password reset) per client IP and endpoint, well below the global
// limit.
func CredentialLimiter(rdb *redis.Client, limit redis_rate.Limit) func(http.Handler) http.Handler {
	return NewRateLimiter(rdb, RateLimitConfig{
		Limit:   limit,
		KeyFunc: KeyByIPAndEndpoint,
	}).Handler
}

// DefaultRoleLimits gives operators more headroom than tenants' clients.
var DefaultRoleLimits = map[rbac.Role]redis_rate.Limit{
	rbac.RoleAdmin:        PerMinute(6000, 1000),
	rbac.RoleDeveloper:    PerMinute(6000, 1000),
	rbac.RoleCompanyAdmin: PerMinute(600, 100),
}

// RoleRateLimiter limits authenticated callers per user, using the most
// generous limit among the actor's roles and fallback for everyone else.
// It must run after Authenticator.
func RoleRateLimiter(
	rdb *redis.Client,
	limits map[rbac.Role]redis_rate.Limit,
	fallbackLimit redis_rate.Limit,
) func(http.Handler) http.Handler {
	backend := newLimiter(rdb)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit := limitFor(actor.Roles, limits, fallbackLimit)
			if backend.enforce(w, r, "ratelimit:user:"+actor.UserID, limit) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func limitFor(
	roles []rbac.Role,
	limits map[rbac.Role]redis_rate.Limit,
	fallback redis_rate.Limit,
) redis_rate.Limit {
	best := fallback
	for _, role := range roles {
		l, ok := limits[role]
		if !ok {
			continue
		}
		if perSecond(l) > perSecond(best) {
			best = l
		}
	}
	return best
}

func perSecond(l redis_rate.Limit) float64 {
	if l.Period <= 0 {
		return 0
	}
	return float64(l.Rate) / l.Period.Seconds()
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

func KeyByIPAndEndpoint(r *http.Request) string {
	return KeyByIP(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

// clientIP trusts the last X-Forwarded-For hop, the one appended by our own
// proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// normalizeEndpoint collapses ids and years so one caller shares a bucket
// across resources.
func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if isUUID(part) || isNumeric(part) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-'
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))

	windowSecs := int(limit.Period.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, windowSecs))
	h.Set(
		"RateLimit",
		fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())),
	)
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	core.JSON(w, http.StatusTooManyRequests, core.Response{
		StatusCode: http.StatusTooManyRequests,
		Message: fmt.Sprintf(
			"rate limit exceeded, retry after %d seconds",
			retryAfter,
		),
		Error: map[string]string{"code": "RATE_LIMITED"},
	})
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// localLimiter holds one token bucket per key. Buckets idle for entryTTL
// are dropped by the sweeper.
type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

func newLocalLimiter() *localLimiter {
	l := &localLimiter{}
	go l.sweep()
	return l
}

func (l *localLimiter) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		l.mu.Lock()
		for key, e := range l.entries {
			if now.Sub(e.lastAccess) > entryTTL {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSec := perSecond(limit)
	now := time.Now()

	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*limiterEntry)
	}
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(perSec), limit.Burst)}
		l.entries[key] = e
	}
	e.lastAccess = now
	allowed := e.limiter.AllowN(now, 1)
	remaining := max(int(e.limiter.TokensAt(now)), 0)
	l.mu.Unlock()

	var interval time.Duration
	if perSec > 0 {
		interval = time.Duration(float64(time.Second) / perSec)
	}

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	return res
}

// Limit builds a limit of requests per window with the given burst.
func Limit(requests, burst int, window time.Duration) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{
		Rate:   requests,
		Burst:  burst,
		Period: window,
	}
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return Limit(requests, burst, time.Minute)
}
