package presentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/quoteworks/docnum/internal/infrastructure/sqlite"
	"github.com/quoteworks/docnum/internal/numbering/allocator"
	"github.com/quoteworks/docnum/internal/numbering/registry"
	"github.com/quoteworks/docnum/internal/numbering/resolver"
)

// Format selects the output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned when a view has no rendering in the requested format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q (want text, json, yaml or markdown)", ErrUnsupportedFormat, s)
	}
}

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format Format
	width  int
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithWidth sets the wrap width for text and markdown output.
func WithWidth(width int) FormatterOption {
	return func(f *Formatter) {
		if width > 0 {
			f.width = width
		}
	}
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer, format Format, opts ...FormatterOption) *Formatter {
	if format == "" {
		format = FormatText
	}
	f := &Formatter{writer: writer, format: format, width: 100}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format returns the configured output format.
func (f *Formatter) Format() Format {
	return f.format
}

// FormatRegistry writes a scan result.
func (f *Formatter) FormatRegistry(reg *registry.Registry) error {
	dto := FromRegistry(reg)
	switch f.format {
	case FormatText:
		return f.text(renderRegistry(dto))
	case FormatMarkdown:
		return f.markdown(markdownRegistry(dto))
	default:
		return f.encode(dto)
	}
}

// FormatCheck writes the conflicts found by a read-only scan.
func (f *Formatter) FormatCheck(reg *registry.Registry, conflicts []registry.Conflict) error {
	dto := FromCheck(reg, conflicts)
	switch f.format {
	case FormatText:
		return f.text(renderCheck(dto, f.width))
	case FormatMarkdown:
		return f.markdown(markdownCheck(dto))
	default:
		return f.encode(dto)
	}
}

// FormatAllocation writes an allocated number.
func (f *Formatter) FormatAllocation(a allocator.Allocation) error {
	switch f.format {
	case FormatText:
		return f.text(renderAllocation(a))
	case FormatMarkdown:
		return fmt.Errorf("%w: allocation as markdown", ErrUnsupportedFormat)
	default:
		return f.encode(a)
	}
}

// FormatReport writes a resolution report.
func (f *Formatter) FormatReport(r *resolver.Report) error {
	dto := FromReport(r)
	switch f.format {
	case FormatText:
		return f.text(renderReport(dto, f.width))
	case FormatMarkdown:
		return f.markdown(markdownReport(dto))
	default:
		return f.encode(dto)
	}
}

// FormatHistory writes journaled reassignments.
func (f *Formatter) FormatHistory(entries []sqlite.LedgerEntry) error {
	dtos := FromLedger(entries)
	switch f.format {
	case FormatText:
		return f.text(renderHistory(dtos))
	case FormatMarkdown:
		return f.markdown(markdownHistory(dtos))
	default:
		return f.encode(dtos)
	}
}

func (f *Formatter) encode(v any) error {
	switch f.format {
	case FormatJSON:
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(f.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.format)
	}
}

func (f *Formatter) text(s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(f.writer, s)
	return err
}

// markdown renders through glamour when the terminal supports styling and
// writes the raw document otherwise.
func (f *Formatter) markdown(md string) error {
	if lipgloss.ColorProfile() == termenv.Ascii {
		return f.text(md)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(f.width),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	return f.text(out)
}
