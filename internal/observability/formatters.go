// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/jd-annotator/internal/fetch"
	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/persist"
	"github.com/jonathan/jd-annotator/internal/scoring"
	"github.com/jonathan/jd-annotator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScores outputs coverage per section and the boost multiplier.
func (p *Printer) PrintScores(result scoring.Result) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Coverage: %d%%\n", result.Coverage.Percent))
	sb.WriteString(fmt.Sprintf("Boost:    %.4fx\n", result.Boost))
	sb.WriteString("\n")

	for _, s := range result.Coverage.Sections {
		mark := " "
		if s.Met() {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%s %-20s %2d/%d\n", mark, s.Label, s.Count, s.Target))
	}

	p.printBox("ANNOTATION SCORES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnnotations outputs the annotation list with status and dimension values.
func (p *Printer) PrintAnnotations(annotations []types.Annotation) {
	if len(annotations) == 0 {
		p.printBox("ANNOTATIONS", "No annotations")
		return
	}

	var sb strings.Builder
	active := 0
	for _, a := range annotations {
		if a.IsActive {
			active++
		}
	}
	sb.WriteString(fmt.Sprintf("Total: %d (%d active)\n\n", len(annotations), active))

	count := min(len(annotations), maxItemsToShow)
	for i := 0; i < count; i++ {
		a := annotations[i]
		state := "on"
		if !a.IsActive {
			state = "off"
		}
		sb.WriteString(fmt.Sprintf("[%s] %q\n", state, a.Target.Text))
		sb.WriteString(fmt.Sprintf("     %s · %s", highlight.StyleFor(a.Relevance).Label, a.Status))
		if a.Source == types.SourceAutoGenerated && a.OriginalValues != nil {
			sb.WriteString(fmt.Sprintf(" · suggested %.0f%%", a.OriginalValues.Confidence*100))
		}
		sb.WriteString("\n")
		if dims := dimensionSummary(a.Dimensions); dims != "" {
			sb.WriteString("     " + dims + "\n")
		}
	}
	if len(annotations) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(annotations)-maxItemsToShow))
	}

	p.printBox("ANNOTATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLegend outputs the highlight classes strongest first.
func (p *Printer) PrintLegend() {
	var sb strings.Builder
	for _, style := range highlight.Legend() {
		sb.WriteString(fmt.Sprintf("%-30s %s\n", style.Class, style.Label))
	}
	unrated := highlight.StyleFor("")
	sb.WriteString(fmt.Sprintf("%-30s %s", unrated.Class, unrated.Label))
	p.printBox("HIGHLIGHT LEGEND", sb.String())
}

// PrintSections outputs the sections found in a job description.
func (p *Printer) PrintSections(sections []fetch.Section) {
	if len(sections) == 0 {
		return
	}

	var sb strings.Builder
	for _, s := range sections {
		heading := s.Heading
		if heading == "" {
			heading = "(untitled)"
		}
		lines := strings.Count(s.Text, "\n") + 1
		if s.Text == "" {
			lines = 0
		}
		sb.WriteString(fmt.Sprintf("%-18s %s (%d lines)\n", s.Key, heading, lines))
	}

	p.printBox("JOB DESCRIPTION SECTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSaveState outputs the persistence state as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSaveState(state persist.State, err error) {
	if err != nil {
		fmt.Fprintf(p.out, "Save state: %s (%v)\n", state, err)
		return
	}
	fmt.Fprintf(p.out, "Save state: %s\n", state)
}

func dimensionSummary(d types.Dimensions) string {
	var parts []string
	for _, dim := range types.AllDimensions {
		if v := d.Get(dim); v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", dim, v))
		}
	}
	return strings.Join(parts, " ")
}

// truncate shortens s to width runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
