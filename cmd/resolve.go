package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/numbering/resolver"
	"github.com/quoteworks/docnum/internal/ui/review"
)

var (
	resolveMode     string
	resolveNoBackup bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Renumber records whose number is held by another record",
	Long: `Run a resolution pass: scan every domain, and for each number held by
more than one record keep the oldest record (ties go to the first domain in
'priority') and give every other record the next free number of its own series.

Modes:
  interactive  confirm each conflict (default)
  automatic    apply every conflict
  dry-run      print what would change, write nothing

Before the first write every touched database is copied to resolve.backup_dir,
and applied reassignments are journaled in the ledger ('docnum history').

Exits with status 2 when conflicts remain after the pass.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	addYearFlag(resolveCmd, "only resolve numbers of this year")
	resolveCmd.Flags().StringVarP(&resolveMode, "mode", "m", string(resolver.ModeInteractive),
		"interactive, automatic or dry-run")
	resolveCmd.Flags().BoolVar(&resolveNoBackup, "no-backup", false, "skip the pre-write database snapshots")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	mode, err := resolver.ParseMode(resolveMode)
	if err != nil {
		return err
	}
	year, err := yearFlag(cmd)
	if err != nil {
		return err
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	var decider resolver.Decider
	if mode == resolver.ModeInteractive {
		decider = review.NewDecider(review.WithInput(cmd.InOrStdin()), review.WithOutput(cmd.ErrOrStderr()))
	}
	r, err := e.resolver(decider, cfg.Resolve.Backup && !resolveNoBackup)
	if err != nil {
		return err
	}

	report, passErr := r.Pass(cmd.Context(), mode, year)
	if report != nil {
		if err := formatter(cmd).FormatReport(report); err != nil {
			return err
		}
	}
	if passErr != nil {
		return passErr
	}
	if !report.Clean() {
		return errConflicts
	}
	return nil
}
