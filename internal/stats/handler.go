// AngelaMos | 2026
// handler.go

package stats

import (
	"context"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/tierform/internal/core"
)

type Handler struct {
	store        string
	sessionCount func(ctx context.Context) (int, error)
	storePing    func(ctx context.Context) error
	redisStats   func() *redis.PoolStats
}

type HandlerConfig struct {
	Store        string
	SessionCount func(ctx context.Context) (int, error)
	StorePing    func(ctx context.Context) error
	RedisStats   func() *redis.PoolStats
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		store:        cfg.Store,
		sessionCount: cfg.SessionCount,
		storePing:    cfg.StorePing,
		redisStats:   cfg.RedisStats,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/", h.GetSystemStats)
		r.Get("/sessions", h.GetSessionStats)
		r.Get("/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, SystemStatsResponse{
		Sessions: h.getSessionStats(r.Context()),
		Runtime:  readRuntimeStats(),
	})
}

func (h *Handler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getSessionStats(r.Context()))
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) getSessionStats(ctx context.Context) SessionStats {
	stats := SessionStats{
		Store:   h.store,
		Healthy: true,
		Active:  -1,
	}

	if h.storePing != nil {
		if err := h.storePing(ctx); err != nil {
			stats.Healthy = false
		}
	}

	if h.sessionCount != nil {
		if n, err := h.sessionCount(ctx); err == nil {
			stats.Active = n
		}
	}

	if h.redisStats != nil {
		if ps := h.redisStats(); ps != nil {
			stats.Pool = &RedisPoolStats{
				Hits:       ps.Hits,
				Misses:     ps.Misses,
				Timeouts:   ps.Timeouts,
				TotalConns: ps.TotalConns,
				IdleConns:  ps.IdleConns,
				StaleConns: ps.StaleConns,
			}
		}
	}

	return stats
}

func readRuntimeStats() RuntimeStats {
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

type SystemStatsResponse struct {
	Sessions SessionStats `json:"sessions"`
	Runtime  RuntimeStats `json:"runtime"`
}

type SessionStats struct {
	Store   string          `json:"store"`
	Healthy bool            `json:"healthy"`
	Active  int             `json:"active"`
	Pool    *RedisPoolStats `json:"pool,omitempty"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
