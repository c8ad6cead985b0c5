// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// BackupClient defines the driven port for the backup service. These are the
// only three calls the cleaner issues. Implementations must be safe for
// concurrent use.
type BackupClient interface {
	// DescribeVault returns nil when the vault exists and is readable by the caller.
	DescribeVault(ctx context.Context, vault model.VaultName) error
	// ListRecoveryPoints returns one page. nextToken is empty for the first page
	// and must be the token returned by the previous call otherwise.
	ListRecoveryPoints(ctx context.Context, vault model.VaultName, nextToken string) (model.RecoveryPointPage, error)
	DeleteRecoveryPoint(ctx context.Context, vault model.VaultName, arn string) error
}
