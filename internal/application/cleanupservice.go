// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// CleanupService empties backup vaults for a lifecycle trigger.
type CleanupService struct {
	client         driven.BackupClient
	reporter       driven.Reporter
	store          driven.RunStore        // Optional; nil disables run history.
	metrics        driven.MetricsRecorder // Optional.
	maxConcurrency int                    // 0 means unbounded.
}

// NewCleanupService creates a CleanupService. store and metrics may be nil.
// maxConcurrency bounds concurrent vault tasks and concurrent deletions per
// vault; zero leaves both unbounded.
func NewCleanupService(
	client driven.BackupClient,
	reporter driven.Reporter,
	store driven.RunStore,
	metrics driven.MetricsRecorder,
	maxConcurrency int,
) *CleanupService {
	return &CleanupService{
		client:         client,
		reporter:       reporter,
		store:          store,
		metrics:        metrics,
		maxConcurrency: maxConcurrency,
	}
}

// RunCleanup is the minimal entry point: one run with no history or metrics.
func RunCleanup(
	ctx context.Context,
	trigger model.Trigger,
	cfg *model.CleanupConfig,
	client driven.BackupClient,
	reporter driven.Reporter,
) (model.CleanupRun, error) {
	return NewCleanupService(client, reporter, nil, nil, 0).Run(ctx, trigger, cfg)
}

// Run empties every vault configured for trigger and returns one outcome per
// vault. The only error it returns is a configuration error, raised before any
// backend call; vault-level failures are reported and recorded, never returned.
func (s *CleanupService) Run(ctx context.Context, trigger model.Trigger, cfg *model.CleanupConfig) (model.CleanupRun, error) {
	vaults, err := cfg.VaultsFor(trigger)
	if err != nil {
		return model.CleanupRun{}, err
	}

	run := model.CleanupRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Vaults:    vaults,
		Outcomes:  make(map[model.VaultName]model.Outcome, len(vaults)),
		StartedAt: time.Now().UTC(),
	}

	if len(vaults) > 0 {
		s.reporter.Notice(fmt.Sprintf("Emptying %d backup vault(s) before %s", len(vaults), trigger))
	}

	existing := s.filterExisting(ctx, vaults, run.Outcomes)

	results := s.emptyAll(ctx, existing)
	for _, o := range results {
		run.Outcomes[o.Vault] = o
	}

	run.FinishedAt = time.Now().UTC()
	s.record(ctx, run)

	slog.Info("cleanup run complete",
		"run_id", run.ID,
		"trigger", trigger,
		"vaults", len(vaults),
		"succeeded", run.Count(model.OutcomeSucceeded),
		"skipped", run.Count(model.OutcomeSkipped),
		"failed", run.Count(model.OutcomeFailed),
		"deleted", run.DeletedTotal(),
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)

	return run, nil
}

// emptyAll runs one task per vault concurrently and waits for all of them.
// Each task writes only its own slot, so no locking is needed.
func (s *CleanupService) emptyAll(ctx context.Context, vaults []model.VaultName) []model.Outcome {
	results := make([]model.Outcome, len(vaults))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, vault := range vaults {
		g.Go(func() error {
			results[i] = s.emptyVault(ctx, vault)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// emptyVault enumerates and deletes one vault's recovery points. Failures from
// either stage, including panics, become a failed outcome.
func (s *CleanupService) emptyVault(ctx context.Context, vault model.VaultName) (outcome model.Outcome) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			slog.Error("panic recovered", "vault", vault, "panic", v)
			outcome = s.fail(vault, fmt.Errorf("panic: %v", v))
		}
		outcome.Duration = time.Since(start)
	}()

	points, err := s.enumerate(ctx, vault)
	if err != nil {
		return s.fail(vault, err)
	}

	deleted, err := s.deleteAll(ctx, vault, points)
	if err != nil {
		return s.fail(vault, err)
	}

	s.reporter.Success(fmt.Sprintf("Emptied backup vault %s (%d recovery points deleted)", vault, deleted))
	return model.Succeeded(vault, deleted)
}

func (s *CleanupService) fail(vault model.VaultName, err error) model.Outcome {
	s.reporter.Error(fmt.Sprintf("Failed to empty backup vault %s: %s", vault, err.Error()))
	return model.Failed(vault, err)
}

// record publishes metrics and persists the run. The save outlives a cancelled
// ctx so interrupted runs still reach history. History failures are logged only.
func (s *CleanupService) record(ctx context.Context, run model.CleanupRun) {
	if s.metrics != nil {
		for _, o := range run.Outcomes {
			s.metrics.ObserveOutcome(run.Trigger, o)
		}
		s.metrics.ObserveRun(run.Trigger, run.FinishedAt.Sub(run.StartedAt))
	}

	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), run); err != nil {
			slog.Error("save run history failed", "run_id", run.ID, "error", err)
		}
	}
}

// VaultPlan describes what a run would do to one vault.
type VaultPlan struct {
	Vault  model.VaultName
	Exists bool
	Points []model.RecoveryPoint
	Err    error // Enumeration failure, if any.
}

// Plan performs the existence check and enumeration for trigger without
// deleting anything. Results are in request order.
func (s *CleanupService) Plan(ctx context.Context, trigger model.Trigger, cfg *model.CleanupConfig) ([]VaultPlan, error) {
	vaults, err := cfg.VaultsFor(trigger)
	if err != nil {
		return nil, err
	}

	plans := make([]VaultPlan, len(vaults))

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, vault := range vaults {
		plans[i].Vault = vault
		if !s.checkExists(ctx, vault).Exists() {
			continue
		}
		plans[i].Exists = true

		g.Go(func() error {
			defer func() {
				if v := recover(); v != nil {
					slog.Error("panic recovered", "vault", vault, "panic", v)
					plans[i].Points, plans[i].Err = nil, fmt.Errorf("panic: %v", v)
				}
			}()
			plans[i].Points, plans[i].Err = s.enumerate(ctx, vault)
			return nil
		})
	}
	_ = g.Wait()

	return plans, nil
}
