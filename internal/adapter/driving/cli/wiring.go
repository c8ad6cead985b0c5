package cli

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/awsbackup"
	"github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/logreport"
	"github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/vaultcleaner/internal/application"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// services bundles the wired application for one command invocation.
type services struct {
	cleanup *application.CleanupService
	store   driven.RunStore // nil when history is disabled.
	db      *sqliteadapter.DB
}

func (s *services) Close() {
	closeDB(s.db)
}

func closeDB(db *sqliteadapter.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// wire builds the Backup client, the optional history store and the cleanup
// service. recorder may be nil.
func (a *app) wire(ctx context.Context, recorder *metrics.Recorder) (*services, error) {
	client, err := a.newBackupClient(ctx, awsbackup.Options{
		Region:            a.cfg.Region,
		Profile:           a.cfg.Profile,
		Endpoint:          a.cfg.Endpoint,
		RetryMaxAttempts:  a.cfg.RetryMaxAttempts,
		AccessKeyID:       a.cfg.AccessKeyID,
		SecretAccessKey:   a.cfg.SecretAccessKey,
		SessionToken:      a.cfg.SessionToken,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	s := &services{}
	if a.cfg.HasHistory() {
		if s.store, s.db, err = openHistory(ctx, a.cfg.DBPath); err != nil {
			return nil, err
		}
	}

	// A typed nil recorder must not reach the service as a non-nil interface.
	var rec driven.MetricsRecorder
	if recorder != nil {
		rec = recorder
	}

	s.cleanup = application.NewCleanupService(
		client,
		logreport.New(slog.Default()),
		s.store,
		rec,
		a.cfg.MaxConcurrency,
	)
	return s, nil
}

func openHistory(ctx context.Context, path string) (driven.RunStore, *sqliteadapter.DB, error) {
	db, err := sqliteadapter.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("history database opened", "path", path)
	return sqliteadapter.NewRunRepo(db), db, nil
}
