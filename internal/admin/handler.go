// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
)

// Reconciler replays pending reaction failures on demand.
type Reconciler interface {
	RunOnce(ctx context.Context) (event.Report, error)
}

type Handler struct {
	dbStats    func() *pgxpool.Stat
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	failures   event.FailureStore
	reconciler Reconciler
}

// HandlerConfig wires the optional collaborators. Nil stats or pings are
// reported as absent; the memory driver has neither database nor redis.
type HandlerConfig struct {
	DBStats    func() *pgxpool.Stat
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Failures   event.FailureStore
	Reconciler Reconciler
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		failures:   cfg.Failures,
		reconciler: cfg.Reconciler,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		r.Get("/reactions/failures", h.ListFailures)
		r.Post("/reactions/reconcile", h.Reconcile)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: probe(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: probe(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: runtimeStats(),
	}

	if h.failures != nil {
		pending, err := h.failures.Pending(ctx, 0)
		if err != nil {
			core.JSONError(w, err)
			return
		}
		response.PendingReactions = len(pending)
	}

	core.OK(w, "system stats fetched successfully", response)
}

func probe(ctx context.Context, ping func(ctx context.Context) error) bool {
	return ping != nil && ping(ctx) == nil
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, "database stats fetched successfully", h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, "redis stats fetched successfully", h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, "runtime stats fetched successfully", runtimeStats())
}

// ListFailures returns the reaction failure ledger, oldest first. Resolved
// entries are included with ?all=true.
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	if h.failures == nil {
		core.OK(w, "reaction failures fetched successfully", []event.Failure{})
		return
	}

	filter := event.FailureFilter{
		IncludeResolved: r.URL.Query().Get("all") == "true",
		Limit:           100,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			core.BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, 1000)
	}

	failures, err := h.failures.List(r.Context(), filter)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	if failures == nil {
		failures = []event.Failure{}
	}

	core.OK(w, "reaction failures fetched successfully", failures)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if h.reconciler == nil {
		core.OK(w, "nothing to reconcile", event.Report{})
		return
	}

	report, err := h.reconciler.RunOnce(r.Context())
	if errors.Is(err, event.ErrLockHeld) {
		core.JSONError(w, core.ConflictError("", "reconciliation already running"))
		return
	}
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, "reconciliation finished", report)
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxConns:             stats.MaxConns(),
		TotalConns:           stats.TotalConns(),
		AcquiredConns:        stats.AcquiredConns(),
		IdleConns:            stats.IdleConns(),
		AcquireCount:         stats.AcquireCount(),
		EmptyAcquireCount:    stats.EmptyAcquireCount(),
		AcquireDuration:      stats.AcquireDuration().String(),
		CanceledAcquireCount: stats.CanceledAcquireCount(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database         DatabaseStatus `json:"database"`
	Redis            RedisStatus    `json:"redis"`
	Runtime          RuntimeStats   `json:"runtime"`
	PendingReactions int            `json:"pendingReactions"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxConns             int32  `json:"maxConns"`
	TotalConns           int32  `json:"totalConns"`
	AcquiredConns        int32  `json:"acquiredConns"`
	IdleConns            int32  `json:"idleConns"`
	AcquireCount         int64  `json:"acquireCount"`
	EmptyAcquireCount    int64  `json:"emptyAcquireCount"`
	AcquireDuration      string `json:"acquireDuration"`
	CanceledAcquireCount int64  `json:"canceledAcquireCount"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"totalConns"`
	IdleConns  uint32 `json:"idleConns"`
	StaleConns uint32 `json:"staleConns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	NumCPU       int    `json:"numCpu"`
	MemAlloc     uint64 `json:"memAllocBytes"`
	MemSys       uint64 `json:"memSysBytes"`
	NumGC        uint32 `json:"numGc"`
}
