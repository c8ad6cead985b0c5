package driven

import (
	"time"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// MetricsRecorder receives per-vault and per-run measurements.
type MetricsRecorder interface {
	ObserveOutcome(trigger model.Trigger, outcome model.Outcome)
	ObserveRun(trigger model.Trigger, duration time.Duration)
}
