package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// exitFailedVaults is returned by --strict runs in which at least one vault failed.
const exitFailedVaults = 2

func (a *app) hookCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "hook <" + model.HookBeforeDeploy + "|" + model.HookBeforeRemove + ">",
		Short: "Run the cleanup attached to a deployment lifecycle hook",
		Long: `Run the cleanup for a lifecycle hook. before:remove:remove empties backupVaults;
before:deploy:deploy empties backupVaultsToCleanOnDeploy.

Vault failures are reported but do not fail the command unless --strict is set,
so a partial cleanup never blocks the deployment it is attached to.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{model.HookBeforeDeploy, model.HookBeforeRemove},
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := model.ParseHook(args[0])
			if err != nil {
				return err
			}
			return a.runCleanup(cmd.Context(), trigger, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, fmt.Sprintf("exit with status %d when any vault fails", exitFailedVaults))
	return cmd
}

func (a *app) cleanCommand() *cobra.Command {
	var (
		strict bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:       "clean <deploy|remove>",
		Short:     "Empty the vaults configured for a trigger",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(model.TriggerDeploy), string(model.TriggerRemove)},
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := model.ParseTrigger(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				return a.runPlan(cmd.Context(), trigger)
			}
			return a.runCleanup(cmd.Context(), trigger, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, fmt.Sprintf("exit with status %d when any vault fails", exitFailedVaults))
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the recovery points that would be deleted without deleting them")
	return cmd
}

func (a *app) runCleanup(ctx context.Context, trigger model.Trigger, strict bool) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	svc, err := a.wire(ctx, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	run, err := svc.cleanup.Run(ctx, trigger, a.cfg.Cleaner)
	if err != nil {
		return err
	}

	if err := renderRun(a.stdout, run); err != nil {
		return err
	}

	if strict && run.HasFailures() {
		return &ExitError{
			Code: exitFailedVaults,
			Msg:  fmt.Sprintf("%d of %d backup vault(s) failed", run.Count(model.OutcomeFailed), len(run.Vaults)),
		}
	}
	return nil
}

func (a *app) runPlan(ctx context.Context, trigger model.Trigger) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	svc, err := a.wire(ctx, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	plans, err := svc.cleanup.Plan(ctx, trigger, a.cfg.Cleaner)
	if err != nil {
		return err
	}

	return renderPlan(a.stdout, plans)
}

// signalContext cancels on SIGINT or SIGTERM. A nil parent is treated as Background.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
