package declare

import (
	"encoding/json"
	"fmt"
)

// TraceState is the four-valued outcome of checking one constraint on one trace.
type TraceState int

const (
	Satisfied TraceState = iota + 1
	Violated
	PossiblySatisfied
	PossiblyViolated
)

func (s TraceState) String() string {
	switch s {
	case Satisfied:
		return "SATISFIED"
	case Violated:
		return "VIOLATED"
	case PossiblySatisfied:
		return "POSSIBLY_SATISFIED"
	case PossiblyViolated:
		return "POSSIBLY_VIOLATED"
	default:
		return "UNKNOWN"
	}
}

// Severity orders states for display: higher is worse.
func (s TraceState) Severity() int {
	switch s {
	case Satisfied:
		return 0
	case PossiblySatisfied:
		return 1
	case PossiblyViolated:
		return 2
	case Violated:
		return 3
	default:
		return -1
	}
}

// Final reports whether the state no longer depends on future events.
func (s TraceState) Final() bool {
	return s == Satisfied || s == Violated
}

func (s TraceState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TraceState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, c := range []TraceState{Satisfied, Violated, PossiblySatisfied, PossiblyViolated} {
		if c.String() == name {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown trace state %q", name)
}

// CheckerResult is the verdict of one checker call. Nil counters were not
// measured by the template.
type CheckerResult struct {
	State           TraceState `json:"state"`
	NumActivations  *int       `json:"num_activations,omitempty"`
	NumFulfillments *int       `json:"num_fulfillments,omitempty"`
	NumViolations   *int       `json:"num_violations,omitempty"`
	NumPendings     *int       `json:"num_pendings,omitempty"`
}

// TraceResult maps canonical constraint strings to verdicts for one trace.
type TraceResult map[string]CheckerResult

// LogResult maps trace identifiers to their per-trace results.
type LogResult map[string]TraceResult

// StateCounts tallies the states of a trace result.
func (r TraceResult) StateCounts() map[TraceState]int {
	counts := make(map[TraceState]int, 4)
	for _, v := range r {
		counts[v.State]++
	}
	return counts
}
