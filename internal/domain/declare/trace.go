package declare

import (
	"fmt"
	"time"
)

// Standard XES attribute keys.
const (
	ConceptName = "concept:name"
	Timestamp   = "time:timestamp"
	Resource    = "org:resource"
)

// Event maps attribute names to values (string, number, bool or time.Time).
type Event map[string]any

// Activity returns the event's activity name.
func (e Event) Activity() string {
	s, _ := e[ConceptName].(string)
	return s
}

// Timestamp returns the event's timestamp, if it has one.
func (e Event) Timestamp() (time.Time, bool) {
	t, ok := e[Timestamp].(time.Time)
	return t, ok
}

// Trace is one case: trace-level attributes plus its ordered events.
type Trace struct {
	Attributes Event   `json:"attributes,omitempty"`
	Events     []Event `json:"events"`
}

// CaseID returns the case identifier stored under concept:name.
func (t *Trace) CaseID() string {
	if t.Attributes == nil {
		return ""
	}
	switch v := t.Attributes[ConceptName].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// First returns the first event, or nil for an empty trace.
func (t *Trace) First() Event {
	if len(t.Events) == 0 {
		return nil
	}
	return t.Events[0]
}

// Log is an ordered collection of traces.
type Log struct {
	Traces []Trace `json:"traces"`
}

// TraceKeys returns distinct identifiers, one per trace, in log order.
// Traces without a case id, or whose id was already used, are keyed by
// their position.
func (l *Log) TraceKeys() []string {
	keys := make([]string, len(l.Traces))
	seen := make(map[string]bool, len(l.Traces))
	for i := range l.Traces {
		id := l.Traces[i].CaseID()
		if id == "" || seen[id] {
			id = fmt.Sprintf("#%d", i)
			for n := 1; seen[id]; n++ {
				id = fmt.Sprintf("#%d.%d", i, n)
			}
		}
		seen[id] = true
		keys[i] = id
	}
	return keys
}

// Activities returns the distinct activity names of the log in first-seen order.
func (l *Log) Activities() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range l.Traces {
		for _, e := range t.Events {
			a := e.Activity()
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
