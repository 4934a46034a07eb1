package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
)

var historyPass string

var historyCmd = &cobra.Command{
	Use:   "history [number]",
	Short: "Show journaled reassignments",
	Long: `Show the reassignments recorded in the ledger, either those touching a
number (as old or new number) or those applied by one pass.

Examples:
  docnum history 2024-003
  docnum history --pass 0b4f2f3a-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPass, "pass", "", "show the reassignments of this pass id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (historyPass == "") {
		return errors.New("give either a number or --pass")
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	ledger, err := e.openLedger()
	if err != nil {
		return err
	}
	if ledger == nil {
		return errors.New("the ledger is disabled (resolve.ledger_path is empty)")
	}

	var entries []sqlite.LedgerEntry
	if historyPass != "" {
		entries, err = ledger.ListByPass(cmd.Context(), historyPass)
	} else {
		entries, err = ledger.ListByNumber(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}
	return formatter(cmd).FormatHistory(entries)
}
