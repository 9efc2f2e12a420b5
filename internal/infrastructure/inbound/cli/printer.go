// Package cli renders conformance results for terminal use.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

var (
	accent  = lipgloss.Color("#FF0000")
	warning = lipgloss.Color("#FFAA00")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

const rule = "─────────────────────────────────────"

// Printer writes styled results to w.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// StateStyle returns the style used for a verdict.
func StateStyle(s declare.TraceState) lipgloss.Style {
	switch s {
	case declare.Satisfied:
		return successStyle
	case declare.Violated:
		return accentStyle
	case declare.PossiblySatisfied:
		return lipgloss.NewStyle().Foreground(success)
	case declare.PossiblyViolated:
		return warningStyle
	default:
		return mutedStyle
	}
}

// Trace prints the verdict of every constraint of m for one trace, in
// model order. Constraints without a verdict are shown as skipped.
func (p *Printer) Trace(caseID string, m *services.Model, res declare.TraceResult) {
	p.printf("%s %s\n", accentStyle.Render("▸"), titleStyle.Render(caseID))
	for _, key := range m.Keys() {
		v, ok := res[key]
		if !ok {
			p.printf("  %-18s %s\n", mutedStyle.Render("SKIPPED"), key)
			continue
		}
		p.printf("  %-18s %s%s\n", StateStyle(v.State).Render(v.State.String()), key, counts(v))
	}
}

// Summary prints the per-constraint tally of a log-wide run.
func (p *Printer) Summary(traces int, rows []services.ConstraintSummary, malformed []string) {
	p.println()
	p.println(titleStyle.Render(fmt.Sprintf("  %d traces, %d constraints", traces, len(rows))))
	p.println(mutedStyle.Render("  " + rule))
	for _, r := range rows {
		conformance := fmt.Sprintf("%5.1f%%", 100*r.Conformance())
		style := successStyle
		if r.Violated > 0 {
			style = accentStyle
		}
		p.printf("  %s  %s\n", style.Render(conformance), r.Constraint)
		p.printf("  %s\n", mutedStyle.Render(fmt.Sprintf(
			"        sat %d  viol %d  poss-sat %d  poss-viol %d  skipped %d",
			r.Satisfied, r.Violated, r.PossiblySatisfied, r.PossiblyViolated, r.Skipped)))
	}
	p.println(mutedStyle.Render("  " + rule))
	p.Malformed(malformed)
}

// Query prints the matches of a query run, best supported first.
func (p *Printer) Query(traces int, res services.QueryResult) {
	p.println()
	p.println(titleStyle.Render(fmt.Sprintf("  %d traces, %d candidates, %d matches", traces, res.Candidates, len(res.Matches))))
	p.println(mutedStyle.Render("  " + rule))
	if len(res.Matches) == 0 {
		p.println(mutedStyle.Render("  no constraint reached the minimum support"))
	}
	for _, m := range res.Matches {
		p.printf("  %s  %s\n", successStyle.Render(fmt.Sprintf("%5.1f%%", 100*m.Support)), m.Constraint)
		p.printf("  %s\n", mutedStyle.Render(fmt.Sprintf("        sat %d  viol %d", m.Summary.Satisfied, m.Summary.Violated)))
	}
	p.println(mutedStyle.Render("  " + rule))
	p.Malformed(res.Malformed)
}

// Malformed prints the constraints whose conditions could not be evaluated.
func (p *Printer) Malformed(malformed []string) {
	if len(malformed) == 0 {
		p.println(successStyle.Render("  ✓ no malformed constraints"))
		return
	}
	p.println(warningStyle.Render(fmt.Sprintf("  ! %d malformed constraint(s):", len(malformed))))
	for _, key := range malformed {
		p.println(mutedStyle.Render("    " + key))
	}
}

// Templates prints the supported templates with their arity.
func (p *Printer) Templates(templates []declare.Template) {
	for _, t := range templates {
		extra := ""
		if t.SupportsCardinality() {
			extra = mutedStyle.Render(" (n)")
		}
		p.printf("  %-26s %s%s\n", titleStyle.Render(t.Key()), mutedStyle.Render(t.Arity().String()), extra)
	}
}

func counts(v declare.CheckerResult) string {
	var parts []string
	add := func(name string, n *int) {
		if n != nil {
			parts = append(parts, fmt.Sprintf("%s=%d", name, *n))
		}
	}
	add("act", v.NumActivations)
	add("ful", v.NumFulfillments)
	add("viol", v.NumViolations)
	add("pend", v.NumPendings)
	if len(parts) == 0 {
		return ""
	}
	return mutedStyle.Render("  " + strings.Join(parts, " "))
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) println(args ...any) {
	_, _ = fmt.Fprintln(p.w, args...)
}
