package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/presentation"
)

var (
	issueLabel  string
	issueFields []string
)

var issueCmd = &cobra.Command{
	Use:   "issue <domain>",
	Short: "Allocate a number and insert a record carrying it",
	Long: `Allocate the next number for a domain and insert a new record with it.
If another writer takes the number first the insert is retried with a fresh
allocation (allocate.issue_attempts times).

Examples:
  docnum issue heritage --label "Acme inc."
  docnum issue purchase_order --label "Bolt" --field montant=1200`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func init() {
	addYearFlag(issueCmd, "issue in this year (default: current year)")
	issueCmd.Flags().StringVarP(&issueLabel, "label", "l", "", "value for the domain's label column")
	issueCmd.Flags().StringArrayVarP(&issueFields, "field", "f", nil, "extra column as name=value (repeatable)")
	rootCmd.AddCommand(issueCmd)
}

func parseFields(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--field %q: want name=value", pair)
		}
		fields[name] = value
	}
	return fields, nil
}

func runIssue(cmd *cobra.Command, args []string) error {
	year, err := yearFlag(cmd)
	if err != nil {
		return err
	}
	fields, err := parseFields(issueFields)
	if err != nil {
		return err
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.close()

	alloc, id, err := e.facade().IssueRecord(cmd.Context(), args[0], year, domain.NewRecord{
		Label:  issueLabel,
		Fields: fields,
	})
	if err != nil {
		return err
	}

	f := formatter(cmd)
	if f.Format() == presentation.FormatText {
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %s record #%d\n", alloc.Domain, id)
	}
	return f.FormatAllocation(alloc)
}
