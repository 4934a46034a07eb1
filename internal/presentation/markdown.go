package presentation

import (
	"fmt"
	"strings"
)

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func mdRecords(b *strings.Builder, recs []RecordDTO) {
	b.WriteString("| Domain | ID | Label | Created |\n|---|---|---|---|\n")
	for _, r := range recs {
		created := "-"
		if r.CreatedAt != nil {
			created = r.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(b, "| %s | %d | %s | %s |\n", r.Domain, r.RecordID, mdCell(r.Label), created)
	}
}

func mdUnavailable(b *strings.Builder, domains []string) {
	if len(domains) > 0 {
		fmt.Fprintf(b, "> **Unavailable:** %s\n\n", strings.Join(domains, ", "))
	}
}

func markdownRegistry(dto RegistryDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Registry (%s)\n\n%d numbers.\n\n", yearTitle(dto.Year), dto.Count)
	mdUnavailable(&b, dto.Unavailable)
	if len(dto.Entries) > 0 {
		b.WriteString("| Number | Domain | ID | Label |\n|---|---|---|---|\n")
		for _, e := range dto.Entries {
			for _, occ := range e.Occurrences {
				fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", e.Number, occ.Domain, occ.RecordID, mdCell(occ.Label))
			}
		}
	}
	return b.String()
}

func markdownCheck(dto CheckDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conflict check (%s)\n\n", yearTitle(dto.Year))
	mdUnavailable(&b, dto.Unavailable)
	if len(dto.Conflicts) == 0 {
		fmt.Fprintf(&b, "No conflicts among %d numbers.\n", dto.Scanned)
		return b.String()
	}
	fmt.Fprintf(&b, "%d conflicting numbers among %d scanned.\n", len(dto.Conflicts), dto.Scanned)
	for _, c := range dto.Conflicts {
		fmt.Fprintf(&b, "\n## %s\n\n", c.Number)
		mdRecords(&b, c.Occurrences)
	}
	return b.String()
}

func markdownReport(dto ReportDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Resolution pass `%s`\n\n", dto.PassID)
	fmt.Fprintf(&b, "- **Mode:** %s\n- **Started:** %s\n- **Conflicts:** %d\n- **Resolved:** %d\n",
		dto.Mode, dto.StartedAt.Format("2006-01-02 15:04:05"), dto.ConflictCount, dto.ResolvedCount)
	if dto.Aborted {
		b.WriteString("- **Aborted**\n")
	}
	b.WriteString("\n")
	mdUnavailable(&b, dto.Unavailable)

	if len(dto.Reassignments) > 0 {
		b.WriteString("## Reassignments\n\n| Domain | ID | Old | New |\n|---|---|---|---|\n")
		for _, r := range dto.Reassignments {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", r.Domain, r.RecordID, r.OldNumber, r.NewNumber)
		}
		b.WriteString("\n")
	}
	if len(dto.Unresolved) > 0 {
		b.WriteString("## Unresolved\n\n")
		for _, u := range dto.Unresolved {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", u.Number, strings.Join(u.Domains, ", "), u.Reason)
		}
		b.WriteString("\n")
	}
	if len(dto.Skipped) > 0 {
		b.WriteString("## Skipped\n\n")
		for _, s := range dto.Skipped {
			fmt.Fprintf(&b, "- `%s` (%s)\n", s.Number, strings.Join(s.Domains, ", "))
		}
		b.WriteString("\n")
	}
	if len(dto.Residual) > 0 {
		b.WriteString("## Still conflicting\n\n")
		for _, r := range dto.Residual {
			fmt.Fprintf(&b, "- `%s` (%s)\n", r.Number, strings.Join(r.Domains, ", "))
		}
	}
	return b.String()
}

func markdownHistory(entries []HistoryDTO) string {
	var b strings.Builder
	b.WriteString("# Reassignment history\n\n")
	if len(entries) == 0 {
		b.WriteString("No reassignments recorded.\n")
		return b.String()
	}
	b.WriteString("| Applied | Pass | Domain | ID | Old | New |\n|---|---|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s |\n",
			e.AppliedAt.Format("2006-01-02 15:04:05"), shortID(e.PassID), e.Domain, e.RecordID, e.OldNumber, e.NewNumber)
	}
	return b.String()
}
