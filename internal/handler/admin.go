package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"merch-inventory-dashboard/pkg/response"
)

// StatsProvider reports storage statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
	Driver() string
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store     StatsProvider
	cache     Pinger
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store StatsProvider, cache Pinger, cacheType string) *AdminHandler {
	return &AdminHandler{
		store:     store,
		cache:     cache,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().UTC().Format(time.RFC3339)

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Storage stats
	if h.store != nil {
		storeStats, err := h.store.Stats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["database"] = storeStats
		} else {
			stats["database"] = map[string]interface{}{
				"driver": h.store.Driver(),
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["database"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Idempotency cache
	switch {
	case h.cache == nil:
		stats["cache"] = map[string]interface{}{"status": "not_configured"}
	default:
		if err := h.cache.Ping(ctx); err != nil {
			stats["cache"] = map[string]interface{}{
				"type":   h.cacheType,
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			stats["cache"] = map[string]interface{}{
				"type":   h.cacheType,
				"status": "connected",
			}
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
