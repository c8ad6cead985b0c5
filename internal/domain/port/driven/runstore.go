package driven

import (
	"context"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// RunStore defines the driven port for cleanup run history. Outcome errors are
// persisted as their message only.
type RunStore interface {
	Save(ctx context.Context, run model.CleanupRun) error
	// Get returns nil, nil when the run does not exist.
	Get(ctx context.Context, id string) (*model.CleanupRun, error)
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.CleanupRun, error)
}
