package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the domain databases",
	Long: `Write a commented default configuration to .docnum/config.yaml (unless one
exists) and create every configured domain database that declares a built-in
schema, including the unique index on its number column. Existing databases
keep their data; init is safe to run again.

The reassignment ledger is created too when resolve.ledger_path is set.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) || initForce {
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	for _, s := range e.stores {
		desc := s.Descriptor()
		if desc.Schema == "" {
			fmt.Fprintf(out, "Skipped %s (no schema, managed elsewhere)\n", desc.Name)
			continue
		}
		if err := s.Provision(ctx); err != nil {
			return fmt.Errorf("provisioning %s: %w", desc.Name, err)
		}
		fmt.Fprintf(out, "Ready   %s (%s)\n", desc.Name, desc.StorePath)
	}

	if _, err := e.openLedger(); err != nil {
		return err
	}
	return nil
}
