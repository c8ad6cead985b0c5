// Package httphandler is the HTTP driving adapter: a hook receiver for
// deployment pipelines plus read-only access to run history and metrics.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/vaultcleaner/internal/application"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	maxBodyBytes     = 1 << 20
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	cleanup *application.CleanupService
	cfg     *model.CleanupConfig
	store   driven.RunStore // nil when history is disabled.
	metrics http.Handler    // nil disables /metrics.
	logger  *slog.Logger

	// running admits one cleanup at a time.
	running sync.Mutex
}

// NewHandler creates a Handler. cfg is the cleaner section used when a hook
// request carries no body. store and metrics may be nil.
func NewHandler(
	cleanup *application.CleanupService,
	cfg *model.CleanupConfig,
	store driven.RunStore,
	metrics http.Handler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		cleanup: cleanup,
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/hooks/{hook}", h.RunHook)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// RunHook empties the vaults mapped to the lifecycle hook in the path and
// returns the run summary. Vault failures are part of a 200 response; only an
// unknown hook or a configuration error is rejected.
func (h *Handler) RunHook(w http.ResponseWriter, r *http.Request) {
	trigger, err := model.ParseHook(r.PathValue("hook"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.requestConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.running.TryLock() {
		writeError(w, http.StatusConflict, "a cleanup run is already in progress")
		return
	}
	defer h.running.Unlock()

	// A caller hanging up must not abandon a vault halfway through deletion.
	ctx := context.WithoutCancel(r.Context())

	run, err := h.cleanup.Run(ctx, trigger, cfg)
	if err != nil {
		if errors.Is(err, model.ErrConfiguration) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("cleanup run failed", "trigger", trigger, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// requestConfig returns the cleaner section carried in the request body, or
// the server's configured section when the body is empty.
func (h *Handler) requestConfig(r *http.Request) (*model.CleanupConfig, error) {
	var req CleanupConfigRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	if errors.Is(err, io.EOF) {
		return h.cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.CleanupConfig{
		BackupVaults:                model.VaultNames(req.BackupVaults),
		BackupVaultsToCleanOnDeploy: model.VaultNames(req.BackupVaultsToCleanOnDeploy),
	}, nil
}

// ListRuns returns recent runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single recorded run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := r.PathValue("id")
	run, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		History: h.store != nil,
	})
}
