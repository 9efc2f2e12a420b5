package services

import (
	"sort"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

// ConstraintSummary tallies the verdicts of one constraint over a log.
type ConstraintSummary struct {
	Constraint        string `json:"constraint"`
	Satisfied         int    `json:"satisfied"`
	Violated          int    `json:"violated"`
	PossiblySatisfied int    `json:"possibly_satisfied"`
	PossiblyViolated  int    `json:"possibly_violated"`
	Skipped           int    `json:"skipped"`
}

// Total returns the number of traces with a verdict.
func (s ConstraintSummary) Total() int {
	return s.Satisfied + s.Violated + s.PossiblySatisfied + s.PossiblyViolated
}

// Conformance returns the share of traces with a satisfied verdict.
func (s ConstraintSummary) Conformance() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Satisfied+s.PossiblySatisfied) / float64(total)
}

// Summarize tallies res per constraint of m, in model order. Traces where a
// constraint has no verdict count as skipped.
func Summarize(m *Model, res declare.LogResult) []ConstraintSummary {
	out := make([]ConstraintSummary, 0, m.Len())
	for _, key := range m.Keys() {
		s := ConstraintSummary{Constraint: key}
		for _, tr := range res {
			v, ok := tr[key]
			if !ok {
				s.Skipped++
				continue
			}
			switch v.State {
			case declare.Satisfied:
				s.Satisfied++
			case declare.Violated:
				s.Violated++
			case declare.PossiblySatisfied:
				s.PossiblySatisfied++
			case declare.PossiblyViolated:
				s.PossiblyViolated++
			}
		}
		out = append(out, s)
	}
	return out
}

// SortedTraceKeys returns the trace identifiers of res in lexical order.
func SortedTraceKeys(res declare.LogResult) []string {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
