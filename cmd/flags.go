package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addYearFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().IntP("year", "y", 0, usage)
}

// yearFlag returns the --year value, or nil when the flag was not given.
func yearFlag(cmd *cobra.Command) (*int, error) {
	if !cmd.Flags().Changed("year") {
		return nil, nil
	}
	year, err := cmd.Flags().GetInt("year")
	if err != nil {
		return nil, err
	}
	if year < 1000 || year > 9999 {
		return nil, fmt.Errorf("--year must be a four-digit year, got %d", year)
	}
	return &year, nil
}
