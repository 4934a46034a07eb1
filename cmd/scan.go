package cmd

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List every document number across all domains",
	Long: `Read the numbers of every configured domain and print them, grouped by
number. Domains that cannot be read are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	addYearFlag(scanCmd, "only numbers of this year")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
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
	return formatter(cmd).FormatRegistry(reg)
}
