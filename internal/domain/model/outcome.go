package model

import "time"

// OutcomeStatus is the terminal state of one vault in a cleanup run.
type OutcomeStatus string

const (
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the terminal result for a single vault.
type Outcome struct {
	Vault    VaultName
	Status   OutcomeStatus
	Reason   string // Skip reason, or the failure message for failed vaults.
	Err      error  // Non-nil only when Status is OutcomeFailed. Not persisted.
	Deleted  int    // Recovery points deleted; zero unless succeeded.
	Duration time.Duration
}

// Skipped builds a skipped outcome.
func Skipped(vault VaultName, reason string) Outcome {
	return Outcome{Vault: vault, Status: OutcomeSkipped, Reason: reason}
}

// Succeeded builds a succeeded outcome.
func Succeeded(vault VaultName, deleted int) Outcome {
	return Outcome{Vault: vault, Status: OutcomeSucceeded, Deleted: deleted}
}

// Failed builds a failed outcome carrying the underlying error.
func Failed(vault VaultName, err error) Outcome {
	return Outcome{Vault: vault, Status: OutcomeFailed, Reason: err.Error(), Err: err}
}

// CleanupRun is the aggregate result of one invocation. Every requested vault
// appears exactly once in Outcomes.
type CleanupRun struct {
	ID         string
	Trigger    Trigger
	Vaults     []VaultName // Requested vaults, deduplicated, in input order.
	Outcomes   map[VaultName]Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ordered returns outcomes in request order.
func (r CleanupRun) Ordered() []Outcome {
	out := make([]Outcome, 0, len(r.Vaults))
	for _, v := range r.Vaults {
		if o, ok := r.Outcomes[v]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Count returns the number of outcomes with the given status.
func (r CleanupRun) Count(status OutcomeStatus) int {
	var n int
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any vault failed.
func (r CleanupRun) HasFailures() bool {
	return r.Count(OutcomeFailed) > 0
}

// DeletedTotal sums recovery points deleted across all vaults.
func (r CleanupRun) DeletedTotal() int {
	var n int
	for _, o := range r.Outcomes {
		n += o.Deleted
	}
	return n
}
