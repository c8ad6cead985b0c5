// Package cli is the command-line driving adapter. Deployment pipelines call
// "vaultcleaner hook <lifecycle-hook>" at the points where the stack would
// otherwise fail on non-empty backup vaults.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/awsbackup"
	"github.com/ericfisherdev/vaultcleaner/internal/config"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// app holds state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config

	// newBackupClient builds the Backup port; replaced in tests.
	newBackupClient func(ctx context.Context, opts awsbackup.Options) (driven.BackupClient, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		newBackupClient: func(ctx context.Context, opts awsbackup.Options) (driven.BackupClient, error) {
			return awsbackup.NewClient(ctx, opts)
		},
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(newApp(os.Stdout, os.Stderr), os.Args[1:])
}

func run(a *app, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Msg != "" {
			fmt.Fprintln(a.stderr, exitErr.Msg)
		}
		return exitErr.Code
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultcleaner",
		Short: "Empty AWS Backup vaults before a stack is deployed or removed",
		Long: `vaultcleaner deletes every recovery point in the backup vaults listed under
custom.serverless-backup-vault-cleaner in the stack definition, so that
CloudFormation can delete or replace the vaults.

  backupVaults                  vaults emptied before the stack is removed
  backupVaultsToCleanOnDeploy   vaults emptied before each deploy`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.initialize,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "stack definition to read (default is ./"+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides vaultcleaner.logLevel)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		a.hookCommand(),
		a.cleanCommand(),
		a.historyCommand(),
		a.serveCommand(),
		a.healthcheckCommand(),
	)

	return root
}

// initialize loads configuration and installs the default logger.
func (a *app) initialize(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(a.logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
		}
	}

	logger, err := newLogger(a.stderr, a.logFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg = cfg

	slog.Info("serverless-backup-vault-cleaner initialized",
		"config_file", cfg.File,
		"region", cfg.Region,
		"history", cfg.HasHistory(),
	)
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
}
