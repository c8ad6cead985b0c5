package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// checkExists describes a single vault. Any describe error, whatever its cause,
// is reported as a skip warning and collapsed into ExistenceUnavailable.
func (s *CleanupService) checkExists(ctx context.Context, vault model.VaultName) model.Existence {
	if err := s.client.DescribeVault(ctx, vault); err != nil {
		slog.Debug("describe vault failed", "vault", vault, "error", err)
		s.reporter.Warning(fmt.Sprintf("Backup vault %s %s, skipping", vault, model.SkipReasonUnavailable))
		return model.Existence{Status: model.ExistenceUnavailable, Reason: model.SkipReasonUnavailable}
	}
	return model.Existence{Status: model.ExistenceConfirmed}
}

// filterExisting checks vaults one at a time, in input order, and records a
// skipped outcome for each unavailable vault. It returns the vaults that passed.
func (s *CleanupService) filterExisting(ctx context.Context, vaults []model.VaultName, outcomes map[model.VaultName]model.Outcome) []model.VaultName {
	existing := make([]model.VaultName, 0, len(vaults))
	for _, vault := range vaults {
		ex := s.checkExists(ctx, vault)
		if !ex.Exists() {
			outcomes[vault] = model.Skipped(vault, ex.Reason)
			continue
		}
		existing = append(existing, vault)
	}
	return existing
}

// enumerate collects every recovery point in the vault, following
// continuation tokens until the backend returns none. A failed page discards
// everything gathered so far.
func (s *CleanupService) enumerate(ctx context.Context, vault model.VaultName) ([]model.RecoveryPoint, error) {
	var points []model.RecoveryPoint
	token := ""

	for page := 1; ; page++ {
		result, err := s.client.ListRecoveryPoints(ctx, vault, token)
		if err != nil {
			return nil, &model.EnumerationError{Vault: vault, Page: page, Err: err}
		}

		points = append(points, result.Items...)

		if result.NextToken == "" {
			slog.Debug("recovery points listed", "vault", vault, "pages", page, "count", len(points))
			return points, nil
		}
		token = result.NextToken
	}
}

// deleteAll issues one delete per recovery point, all concurrently, and waits
// for every request to settle. In-flight deletes are never cancelled when a
// sibling fails. It returns the number of successful deletions and a
// DeletionError wrapping the first failure, if any.
func (s *CleanupService) deleteAll(ctx context.Context, vault model.VaultName, points []model.RecoveryPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	var failed atomic.Int64
	for _, p := range points {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					slog.Error("panic recovered", "vault", vault, "arn", p.ARN, "panic", v)
					failed.Add(1)
					err = fmt.Errorf("recovery point %s: panic: %v", p.ARN, v)
				}
			}()
			if err := s.client.DeleteRecoveryPoint(ctx, vault, p.ARN); err != nil {
				failed.Add(1)
				slog.Debug("delete recovery point failed", "vault", vault, "arn", p.ARN, "error", err)
				return fmt.Errorf("recovery point %s: %w", p.ARN, err)
			}
			return nil
		})
	}

	err := g.Wait()
	deleted := len(points) - int(failed.Load())
	if err != nil {
		return deleted, &model.DeletionError{
			Vault:  vault,
			Failed: int(failed.Load()),
			Total:  len(points),
			Err:    err,
		}
	}
	return deleted, nil
}
