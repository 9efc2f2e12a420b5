package history

import "time"

// Entry records one check request.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Client      string    `json:"client,omitempty"`
	CaseID      string    `json:"case_id,omitempty"`
	Done        bool      `json:"done"`
	Traces      int       `json:"traces"`
	Constraints int       `json:"constraints"`

	// States counts verdicts by state name over all checked traces.
	States      map[string]int `json:"states,omitempty"`
	Malformed   []string       `json:"malformed,omitempty"`
	RateLimited bool           `json:"rate_limited"`
}

// Entry kinds.
const (
	KindTrace = "trace"
	KindLog   = "log"
	KindQuery = "query"
)
