// Package handlers provides HTTP handlers and middleware for the collider
// status surface.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/scrypster/collider/internal/system"
	"github.com/scrypster/collider/pkg/types"
)

// Orchestrator is the slice of the collision system the handlers need:
// a status read, a one-shot run trigger, and the last cycle's output.
// Both reads are safe while the scheduler is active.
type Orchestrator interface {
	Status() system.Status
	RunOnce(ctx context.Context) (types.CycleReport, error)
	LastEmerged() []types.EmergedCapsule
}

// triggerTimeout bounds a run started over HTTP.
const triggerTimeout = 2 * time.Minute

// StatusHandler serves GET /api/status: the current phase, running totals
// and last cycle report.
func StatusHandler(orch Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, orch.Status())
	}
}

// TriggerHandler serves POST /api/collide: runs one collision cycle
// synchronously and returns its report. A failed cycle returns 502 with
// the report attached; the failure is already folded into the totals.
func TriggerHandler(orch Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), triggerTimeout)
		defer cancel()

		report, err := orch.RunOnce(ctx)
		if err != nil {
			log.Printf("WARNING: triggered cycle failed: %v", err)
			writeJSON(w, http.StatusBadGateway, report)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// EmergedHandler serves GET /api/emerged: the capsules produced by the
// most recent cycle.
func EmergedHandler(orch Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		emerged := orch.LastEmerged()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":    len(emerged),
			"capsules": emerged,
		})
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
