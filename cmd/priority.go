package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/config"
)

var priorityCmd = &cobra.Command{
	Use:   "priority [domain...]",
	Short: "Show or set the keeper priority of domains",
	Long: `When two records share a number and their creation times cannot decide
which one keeps it, the record from the domain listed first wins.

Without arguments, print the current order. With arguments, save them as the
new order in the config file (comments elsewhere are preserved).

Example:
  docnum priority heritage purchase_order multi`,
	RunE: runPriority,
}

func init() {
	rootCmd.AddCommand(priorityCmd)
}

func runPriority(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if len(cfg.Priority) == 0 {
			fmt.Fprintln(out, "(none: ties go to the first domain scanned)")
			return nil
		}
		fmt.Fprintln(out, strings.Join(cfg.Priority, "\n"))
		return nil
	}

	if err := config.ValidatePriority(args, cfg.Domains); err != nil {
		return err
	}
	path := configPath()
	if err := config.SavePriority(path, args); err != nil {
		return fmt.Errorf("saving priority: %w", err)
	}
	cfg.Priority = args
	fmt.Fprintf(out, "Saved priority to %s: %s\n", path, strings.Join(args, ", "))
	return nil
}
