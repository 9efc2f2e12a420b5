// Package report renders conformance results through text templates.
package report

import (
	"time"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// Renderer produces a report document from a Context.
type Renderer interface {
	Render(ctx Context) ([]byte, error)
}

// Row is the per-constraint summary line of a report.
type Row struct {
	Constraint        string  `json:"constraint"`
	Satisfied         int     `json:"satisfied"`
	Violated          int     `json:"violated"`
	PossiblySatisfied int     `json:"possibly_satisfied"`
	PossiblyViolated  int     `json:"possibly_violated"`
	Skipped           int     `json:"skipped"`
	Total             int     `json:"total"`
	Conformance       float64 `json:"conformance"`
}

// Context is the data exposed to report templates.
type Context struct {
	RunID       string
	GeneratedAt time.Time
	Done        bool
	Rows        []Row
	Results     declare.LogResult
	TraceKeys   []string
	Malformed   []string
}

// Build assembles a report context for a checked log.
func Build(runID string, at time.Time, done bool, m *services.Model, res declare.LogResult, malformed []string) Context {
	summaries := services.Summarize(m, res)
	rows := make([]Row, len(summaries))
	for i, s := range summaries {
		rows[i] = Row{
			Constraint:        s.Constraint,
			Satisfied:         s.Satisfied,
			Violated:          s.Violated,
			PossiblySatisfied: s.PossiblySatisfied,
			PossiblyViolated:  s.PossiblyViolated,
			Skipped:           s.Skipped,
			Total:             s.Total(),
			Conformance:       s.Conformance(),
		}
	}
	return Context{
		RunID:       runID,
		GeneratedAt: at,
		Done:        done,
		Rows:        rows,
		Results:     res,
		TraceKeys:   services.SortedTraceKeys(res),
		Malformed:   malformed,
	}
}

// State returns the verdict name of a constraint on a trace, or an empty
// string when there is none.
func (c Context) State(trace, constraint string) string {
	v, ok := c.Results[trace][constraint]
	if !ok {
		return ""
	}
	return v.State.String()
}

// Totals counts verdicts by state name across the whole log.
func (c Context) Totals() map[string]int {
	out := make(map[string]int, 4)
	for _, tr := range c.Results {
		for state, n := range tr.StateCounts() {
			out[state.String()] += n
		}
	}
	return out
}
