package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"legacy-sync/internal/migrate"
)

// runCmd performs a single migration and exits.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one migration and exit",
	Long: `Run one migration of DUMP_PATH into the record store and exit.

Exit codes:
  0 - every selected record was written or already up to date
  1 - the run failed and stopped early
  2 - the run finished but some batches could not be written`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(current, cmd)
	},
}

func runOnce(a *app, cmd *cobra.Command) error {
	ctx := a.commandContext(cmd)
	a.logger.InfoContext(ctx, "Starting migration", "dump", a.dump)

	summary, err := a.runner.Run(ctx)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("migration failed: %w", err)}
	}

	a.logger.InfoContext(ctx, "Migration finished",
		"run_id", summary.RunID,
		"state", summary.State.String(),
		"selected", summary.Selected,
		"written", summary.Written,
		"unchanged", summary.Unchanged,
		"write_failures", summary.WriteFailures,
		"assets_unresolved", summary.AssetsUnresolved,
	)
	return partialFailure(summary)
}

// partialFailure reports batches that could not be written.
func partialFailure(s *migrate.Summary) error {
	if s.WriteFailures == 0 {
		return nil
	}
	return &exitError{
		code: 2,
		err:  fmt.Errorf("migration %s finished with %d failed batches", s.RunID, s.WriteFailures),
	}
}
