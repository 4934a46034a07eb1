package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/numbering/registry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report numbers held by more than one record",
	Long: `Scan every domain and report the numbers held by more than one record.
Nothing is written.

Exits with status 2 when conflicts are found, so it can gate scripts:
  docnum check --year 2024 || docnum resolve --year 2024`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	addYearFlag(checkCmd, "only numbers of this year")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	year, err := yearFlag(cmd)
	if err != nil {
		return err
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	reg, err := e.scanner.Scan(cmd.Context(), year)
	if err != nil {
		return err
	}
	conflicts := registry.Detect(reg)
	e.metrics.AddConflicts(len(conflicts))

	if err := formatter(cmd).FormatCheck(reg, conflicts); err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return errConflicts
	}
	return nil
}
