package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CleanupConfigRequest is the optional hook request body. It replaces the
// server's configured cleaner section for that one run.
type CleanupConfigRequest struct {
	BackupVaults                []string `json:"backupVaults"`
	BackupVaultsToCleanOnDeploy []string `json:"backupVaultsToCleanOnDeploy"`
}

// RunResponse is the JSON representation of a cleanup run.
type RunResponse struct {
	ID         string            `json:"id"`
	Trigger    string            `json:"trigger"`
	Hook       string            `json:"hook"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	DurationMS int64             `json:"duration_ms"`
	Succeeded  int               `json:"succeeded"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Deleted    int               `json:"deleted"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
}

// OutcomeResponse is the JSON representation of one vault's outcome.
type OutcomeResponse struct {
	Vault      string `json:"vault"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Deleted    int    `json:"deleted"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	History bool   `json:"history"`
}

// toRunResponse converts a domain CleanupRun to its JSON representation.
// Outcomes are listed in request order.
func toRunResponse(run model.CleanupRun) RunResponse {
	ordered := run.Ordered()
	outcomes := make([]OutcomeResponse, 0, len(ordered))
	for _, o := range ordered {
		outcomes = append(outcomes, OutcomeResponse{
			Vault:      string(o.Vault),
			Status:     string(o.Status),
			Reason:     o.Reason,
			Deleted:    o.Deleted,
			DurationMS: o.Duration.Milliseconds(),
		})
	}

	return RunResponse{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		Hook:       run.Trigger.Hook(),
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339Nano),
		DurationMS: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		Succeeded:  run.Count(model.OutcomeSucceeded),
		Skipped:    run.Count(model.OutcomeSkipped),
		Failed:     run.Count(model.OutcomeFailed),
		Deleted:    run.DeletedTotal(),
		Outcomes:   outcomes,
	}
}
