package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errHistoryDisabled = errors.New("run history is disabled: set vaultcleaner.dbPath or VAULTCLEANER_DB_PATH")

func (a *app) historyCommand() *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded cleanup runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.HasHistory() {
				return errHistoryDisabled
			}
			if limit < 1 {
				return errors.New("--limit must be at least 1")
			}

			store, db, err := openHistory(cmd.Context(), a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeDB(db)

			runs, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRuns(a.stdout, runs, output)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}
