package cmd

import (
	"github.com/spf13/cobra"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate <domain>",
	Short: "Compute the next document number for a domain",
	Long: `Compute the next free number for a domain by scanning every configured
domain. Nothing is written: use 'docnum issue' to allocate and insert in one
step.

When some domains cannot be read the number is computed from the others and
marked provisional. When none can be read it falls back to the domain's own
database, then to the first number of the year.

Examples:
  docnum allocate heritage
  docnum allocate purchase_order --year 2024 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runAllocate,
}

func init() {
	addYearFlag(allocateCmd, "allocate in this year (default: current year)")
	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	year, err := yearFlag(cmd)
	if err != nil {
		return err
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	alloc, err := e.facade().Allocate(cmd.Context(), args[0], year)
	if err != nil {
		return err
	}
	return formatter(cmd).FormatAllocation(alloc)
}
