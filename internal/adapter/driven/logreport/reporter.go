// Package logreport implements the Reporter port on top of log/slog.
package logreport

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Reporter = (*Reporter)(nil)

// Prefix is prepended to every message, matching the deployment tool's plugin log lines.
const Prefix = "serverless-backup-vault-cleaner: "

// Reporter maps the warning/error/success/notice channels onto slog levels.
// Success and notice are both Info; the "outcome" attribute tells them apart.
type Reporter struct {
	logger *slog.Logger
}

// New creates a Reporter writing to logger. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger}
}

func (r *Reporter) Warning(msg string) {
	r.log(slog.LevelWarn, msg, "warning")
}

func (r *Reporter) Error(msg string) {
	r.log(slog.LevelError, msg, "error")
}

func (r *Reporter) Success(msg string) {
	r.log(slog.LevelInfo, msg, "success")
}

func (r *Reporter) Notice(msg string) {
	r.log(slog.LevelInfo, msg, "notice")
}

func (r *Reporter) log(level slog.Level, msg, outcome string) {
	r.logger.Log(context.Background(), level, Prefix+msg, "outcome", outcome)
}
