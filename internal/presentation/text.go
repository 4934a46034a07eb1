package presentation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/quoteworks/docnum/internal/numbering/allocator"
)

const labelWidth = 32

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FECA57"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#54A0FF"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func label(s string) string {
	return runewidth.Truncate(s, labelWidth, "…")
}

func created(r RecordDTO) string {
	if r.CreatedAt == nil {
		return mutedStyle.Render("-")
	}
	return r.CreatedAt.Format("2006-01-02 15:04")
}

func yearTitle(year *int) string {
	if year == nil {
		return "all years"
	}
	return strconv.Itoa(*year)
}

func unavailableLine(domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	return warnStyle.Render("! unavailable: "+strings.Join(domains, ", ")) + "\n"
}

func renderRegistry(dto RegistryDTO) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Registry (%s): %d numbers", yearTitle(dto.Year), dto.Count)))
	b.WriteString("\n")
	b.WriteString(unavailableLine(dto.Unavailable))

	if len(dto.Entries) > 0 {
		t := newTable("Number", "Domain", "ID", "Label", "Created")
		for _, e := range dto.Entries {
			num := e.Number
			if len(e.Occurrences) > 1 {
				num = errorStyle.Render(num)
			}
			for _, occ := range e.Occurrences {
				t.Row(num, occ.Domain, strconv.FormatInt(occ.RecordID, 10), label(occ.Label), created(occ))
			}
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	if len(dto.Malformed) > 0 {
		b.WriteString(warnStyle.Render("malformed: " + strings.Join(dto.Malformed, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCheck(dto CheckDTO, width int) string {
	var b strings.Builder
	b.WriteString(unavailableLine(dto.Unavailable))

	if len(dto.Conflicts) == 0 {
		b.WriteString(okStyle.Render(fmt.Sprintf("✓ No conflicts (%s, %d numbers scanned)", yearTitle(dto.Year), dto.Scanned)))
		return b.String()
	}

	b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %d conflicting numbers (%s, %d numbers scanned)", len(dto.Conflicts), yearTitle(dto.Year), dto.Scanned)))
	b.WriteString("\n")
	for _, c := range dto.Conflicts {
		b.WriteString(renderConflict(c))
	}
	b.WriteString(wordwrap.String(mutedStyle.Render("Run 'docnum resolve' to renumber the duplicates."), width))
	return b.String()
}

func renderConflict(c ConflictDTO) string {
	t := newTable("Domain", "ID", "Label", "Created")
	for _, occ := range c.Occurrences {
		t.Row(occ.Domain, strconv.FormatInt(occ.RecordID, 10), label(occ.Label), created(occ))
	}
	return "\n" + numberStyle.Render(c.Number) + "\n" + t.String() + "\n"
}

func renderAllocation(a allocator.Allocation) string {
	var b strings.Builder
	b.WriteString(numberStyle.Render(a.Number))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%s, %s)", a.Domain, a.Path)))
	b.WriteString("\n")
	if a.Provisional {
		b.WriteString(warnStyle.Render("! provisional: re-check with 'docnum check' once every domain is reachable"))
		b.WriteString("\n")
		b.WriteString(unavailableLine(a.Unavailable))
	}
	return b.String()
}

func renderReport(dto ReportDTO, width int) string {
	var b strings.Builder

	status := okStyle.Render("✓ clean")
	switch {
	case dto.Aborted:
		status = errorStyle.Render("✗ aborted")
	case !dto.Clean:
		status = warnStyle.Render("! incomplete")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Resolution pass %s (%s)", dto.PassID, dto.Mode)))
	b.WriteString("  ")
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d conflicts, %d resolved, %d reassignments\n",
		dto.ConflictCount, dto.ResolvedCount, len(dto.Reassignments)))
	b.WriteString(unavailableLine(dto.Unavailable))

	if len(dto.Reassignments) > 0 {
		t := newTable("Domain", "ID", "Old", "New")
		for _, r := range dto.Reassignments {
			t.Row(r.Domain, strconv.FormatInt(r.RecordID, 10), r.OldNumber, numberStyle.Render(r.NewNumber))
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	for _, u := range dto.Unresolved {
		line := fmt.Sprintf("✗ %s (%s): %s", u.Number, strings.Join(u.Domains, ", "), u.Reason)
		b.WriteString(errorStyle.Render(wordwrap.String(line, width)))
		b.WriteString("\n")
	}
	for _, s := range dto.Skipped {
		b.WriteString(warnStyle.Render(fmt.Sprintf("- skipped %s (%s)", s.Number, strings.Join(s.Domains, ", "))))
		b.WriteString("\n")
	}
	for _, r := range dto.Residual {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ still conflicting after pass: %s (%s)", r.Number, strings.Join(r.Domains, ", "))))
		b.WriteString("\n")
	}
	for _, path := range dto.Backups {
		b.WriteString(mutedStyle.Render("backup: " + path))
		b.WriteString("\n")
	}
	return b.String()
}

func renderHistory(entries []HistoryDTO) string {
	if len(entries) == 0 {
		return mutedStyle.Render("No reassignments recorded.")
	}
	t := newTable("Applied", "Pass", "Mode", "Domain", "ID", "Old", "New")
	for _, e := range entries {
		t.Row(
			e.AppliedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(e.PassID),
			e.Mode,
			e.Domain,
			strconv.FormatInt(e.RecordID, 10),
			e.OldNumber,
			e.NewNumber,
		)
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
