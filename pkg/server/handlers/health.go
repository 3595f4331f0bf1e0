package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/rag"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health and readiness checks.
type HealthHandler struct {
	catalog *catalog.Catalog
	rag     *rag.Service
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cat *catalog.Catalog, svc *rag.Service) *HealthHandler {
	return &HealthHandler{catalog: cat, rag: svc}
}

// HealthCheck handles GET /health - basic liveness check.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "predicato",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready - verifies the catalog database and the
// RAG service are both reachable.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]interface{}{}
	allHealthy := true

	if h.catalog != nil {
		start := time.Now()
		_, err := h.catalog.List(ctx)
		duration := time.Since(start)
		if err != nil {
			checks["catalog"] = map[string]interface{}{
				"status":   "unhealthy",
				"error":    err.Error(),
				"duration": duration.String(),
			}
			allHealthy = false
		} else {
			checks["catalog"] = map[string]interface{}{
				"status":   "healthy",
				"duration": duration.String(),
			}
		}
	} else {
		checks["catalog"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  "catalog not initialized",
		}
		allHealthy = false
	}

	if h.rag != nil {
		initialized, err := h.rag.Status()
		if err != nil {
			checks["retriever"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["retriever"] = map[string]interface{}{
				"status":      "healthy",
				"initialized": initialized,
			}
		}
	} else {
		checks["retriever"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  "rag service not initialized",
		}
		allHealthy = false
	}

	response := map[string]interface{}{
		"status":    "ready",
		"service":   "predicato",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}

	if !allHealthy {
		response["status"] = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"service":   "predicato",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information.
func (h *HealthHandler) DetailedHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	checks := map[string]interface{}{}
	allHealthy := true

	if h.catalog != nil {
		start := time.Now()
		entries, err := h.catalog.List(ctx)
		duration := time.Since(start)
		status := map[string]interface{}{
			"status":      "healthy",
			"duration_ms": duration.Milliseconds(),
			"operation":   "List",
		}
		if err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			allHealthy = false
		} else {
			status["tracked_files"] = len(entries)
		}
		checks["catalog"] = status
	} else {
		checks["catalog"] = map[string]interface{}{"status": "unhealthy", "error": "catalog not initialized"}
		allHealthy = false
	}

	if h.rag != nil {
		start := time.Now()
		initialized, err := h.rag.Status()
		duration := time.Since(start)
		status := map[string]interface{}{
			"status":      "healthy",
			"duration_ms": duration.Milliseconds(),
			"initialized": initialized,
		}
		if err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			allHealthy = false
		}
		checks["retriever"] = status
	} else {
		checks["retriever"] = map[string]interface{}{"status": "unhealthy", "error": "rag service not initialized"}
		allHealthy = false
	}

	systemMetrics := h.getSystemMetrics()
	checks["system"] = map[string]interface{}{
		"status":       "healthy",
		"memory_usage": systemMetrics.MemoryUsage,
		"goroutines":   systemMetrics.Goroutines,
		"gc_cycles":    systemMetrics.GCCycles,
		"heap_objects": systemMetrics.HeapObjects,
		"stack_usage":  systemMetrics.StackUsage,
	}

	response := map[string]interface{}{
		"status":  "healthy",
		"service": "predicato",
		"version": Version,
		"build_info": map[string]interface{}{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": map[string]interface{}{"go_version": GoVersion},
		"checks":      checks,
		"metrics": map[string]interface{}{
			"response_time_ms": time.Since(startTime).Milliseconds(),
		},
	}

	if !allHealthy {
		response["status"] = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// SystemMetrics holds system runtime metrics.
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics.
func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
