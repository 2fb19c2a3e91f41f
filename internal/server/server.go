package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rickgao/daily-prices/internal/history"
	"github.com/rickgao/daily-prices/internal/pipeline"
	"github.com/rickgao/daily-prices/internal/version"
)

// Pinger checks a dependency. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHistory lists past runs, newest first.
type RunHistory interface {
	Recent(limit int) ([]history.RunRecord, error)
}

// RunStatus reports the last completed run. *pipeline.Tracker satisfies it.
type RunStatus interface {
	Last() (pipeline.LastRun, bool)
}

// Handler serves the trigger and health endpoints.
type Handler struct {
	runner  pipeline.Runner
	status  RunStatus
	db      Pinger
	history RunHistory
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler creates the HTTP handler. db may be nil. If runner does not
// report its last run, it is wrapped in a pipeline.Tracker; pass the same
// tracker to any other trigger so /health sees those runs too.
func NewHandler(runner pipeline.Runner, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	status, ok := runner.(RunStatus)
	if !ok {
		tracker := pipeline.NewTracker(runner)
		runner, status = tracker, tracker
	}
	h := &Handler{
		runner: runner,
		status: status,
		db:     db,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("/run", h.handleRun)
	h.mux.HandleFunc("/health", h.handleHealth)
	h.mux.HandleFunc("/runs", h.handleRuns)
	return h
}

// WithHistory enables the /runs endpoint.
func (h *Handler) WithHistory(runs RunHistory) *Handler {
	h.history = runs
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleRun runs the pipeline synchronously. The run is detached from the
// request context so a dropped client does not abort a half-written load.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if errors.Is(err, pipeline.ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, pipeline.ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if err != nil {
		h.logger.Error("triggered run failed", "run_id", res.RunID, "err", err)
		http.Error(w, fmt.Sprintf("An error occurred: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.String(),
		Components: make(map[string]any),
	}

	// Check database
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["warehouse"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["warehouse"] = "connected"
		}
	}

	// Report last run
	if run, ok := h.status.Last(); ok {
		last := map[string]any{
			"run_id":      run.Result.RunID,
			"started_at":  run.Result.StartedAt,
			"finished_at": run.FinishedAt,
			"status":      run.Result.Status,
		}
		if run.Err != nil {
			last["status"] = "failed"
			last["error"] = run.Err.Error()
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
		health.Components["last_run"] = last
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// handleRuns lists recent runs; ?limit=N caps the count (default 20).
func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "run history is disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.history.Recent(limit)
	if err != nil {
		h.logger.Error("failed to list runs", "err", err)
		http.Error(w, fmt.Sprintf("An error occurred: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}
