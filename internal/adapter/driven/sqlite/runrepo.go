package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo implements driven.RunStore using SQLite.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save persists a finished run and its per-vault outcomes in one transaction.
// Saving a run ID that already exists replaces its outcomes.
func (r *RunRepo) Save(ctx context.Context, run model.CleanupRun) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cleanup_runs (id, trigger_name, started_at, finished_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			trigger_name = excluded.trigger_name,
			started_at   = excluded.started_at,
			finished_at  = excluded.finished_at`,
		run.ID, string(run.Trigger), formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vault_outcomes WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("save run %s: clear outcomes: %w", run.ID, err)
	}

	for i, o := range run.Ordered() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vault_outcomes (run_id, position, vault, status, reason, deleted, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, string(o.Vault), string(o.Status), o.Reason, o.Deleted, o.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("save run %s: outcome for %s: %w", run.ID, o.Vault, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: commit: %w", run.ID, err)
	}

	return nil
}

// Get returns the run with the given ID, or nil when no such run is stored.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.CleanupRun, error) {
	var (
		run                 model.CleanupRun
		trigger             string
		startedAt, finished string
	)

	err := r.db.Reader.QueryRowContext(ctx,
		`SELECT id, trigger_name, started_at, finished_at FROM cleanup_runs WHERE id = ?`, id,
	).Scan(&run.ID, &trigger, &startedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if err := fillRun(&run, trigger, startedAt, finished); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if err := r.loadOutcomes(ctx, &run); err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRecent returns up to limit runs, newest first, with their outcomes.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.CleanupRun, error) {
	if limit <= 0 {
		return []model.CleanupRun{}, nil
	}

	rows, err := r.db.Reader.QueryContext(ctx, `
		SELECT id, trigger_name, started_at, finished_at
		FROM cleanup_runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []model.CleanupRun{}
	for rows.Next() {
		var (
			run                 model.CleanupRun
			trigger             string
			startedAt, finished string
		)
		if err := rows.Scan(&run.ID, &trigger, &startedAt, &finished); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if err := fillRun(&run, trigger, startedAt, finished); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	// Close before issuing per-run queries on the reader pool.
	_ = rows.Close()

	for i := range runs {
		if err := r.loadOutcomes(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (r *RunRepo) loadOutcomes(ctx context.Context, run *model.CleanupRun) error {
	rows, err := r.db.Reader.QueryContext(ctx, `
		SELECT vault, status, reason, deleted, duration_ms
		FROM vault_outcomes
		WHERE run_id = ?
		ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("load outcomes for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	run.Vaults = []model.VaultName{}
	run.Outcomes = make(map[model.VaultName]model.Outcome)
	for rows.Next() {
		var (
			o          model.Outcome
			vault      string
			status     string
			durationMS int64
		)
		if err := rows.Scan(&vault, &status, &o.Reason, &o.Deleted, &durationMS); err != nil {
			return fmt.Errorf("load outcomes for run %s: scan: %w", run.ID, err)
		}
		o.Vault = model.VaultName(vault)
		o.Status = model.OutcomeStatus(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond

		run.Vaults = append(run.Vaults, o.Vault)
		run.Outcomes[o.Vault] = o
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("load outcomes for run %s: %w", run.ID, err)
	}
	return nil
}

func fillRun(run *model.CleanupRun, trigger, startedAt, finishedAt string) error {
	t, err := model.ParseTrigger(trigger)
	if err != nil {
		return err
	}
	run.Trigger = t

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return fmt.Errorf("started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return fmt.Errorf("finished_at: %w", err)
	}
	return nil
}

// storedTimeFormat keeps a fixed width so lexical order matches time order.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// parseTime accepts the stored format as well as plain RFC 3339 and the
// SQLite datetime() layout, for rows written by hand.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{storedTimeFormat, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
