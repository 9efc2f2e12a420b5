package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
)

// ErrInvalidQuery reports query parameters that cannot produce candidates.
var ErrInvalidQuery = errors.New("invalid query")

// Query selects the constraints a QueryChecker tries against a log. An empty
// Activation or Target lets every activity of the log fill that slot in turn.
type Query struct {
	// Templates restricts the search; empty means every template. Templates
	// are tried in catalogue order.
	Templates []declare.Template
	// Activation fills the first slot, Target the second slot of binary
	// templates.
	Activation string
	Target     string

	ActivationCondition  string
	CorrelationCondition string
	TimeCondition        string

	// MaxCardinality bounds n for cardinality templates, trying 1..n.
	// Zero means 1.
	MaxCardinality int
	// MinSupport is the share of traces a constraint must satisfy to be
	// reported. Zero means 1.
	MinSupport float64
	// ConsiderVacuity counts vacuously satisfied traces as satisfied.
	ConsiderVacuity bool
}

func (q Query) withDefaults() Query {
	if q.MaxCardinality == 0 {
		q.MaxCardinality = 1
	}
	if q.MinSupport == 0 {
		q.MinSupport = 1
	}
	if len(q.Templates) == 0 {
		q.Templates = declare.Templates()
	} else {
		q.Templates = slices.Compact(slices.Sorted(slices.Values(q.Templates)))
	}
	return q
}

// Validate rejects out-of-range parameters.
func (q Query) Validate() error {
	if q.MaxCardinality < 0 {
		return fmt.Errorf("%w: max cardinality %d is negative", ErrInvalidQuery, q.MaxCardinality)
	}
	if q.MinSupport < 0 || q.MinSupport > 1 {
		return fmt.Errorf("%w: min support %g is outside [0, 1]", ErrInvalidQuery, q.MinSupport)
	}
	for _, t := range q.Templates {
		if !t.Valid() {
			return fmt.Errorf("%w: %w: %s", ErrInvalidQuery, declare.ErrUnsupportedTemplate, t.Key())
		}
	}
	return nil
}

// QueryMatch is a candidate constraint whose support reached the threshold.
type QueryMatch struct {
	Constraint string            `json:"constraint"`
	Template   string            `json:"template"`
	Activities []string          `json:"activities"`
	N          *int              `json:"n,omitempty"`
	Support    float64           `json:"support"`
	Summary    ConstraintSummary `json:"summary"`
}

// QueryResult lists the matches, best supported first.
type QueryResult struct {
	Candidates int          `json:"candidates"`
	Matches    []QueryMatch `json:"matches"`
	// Malformed lists candidates whose conditions failed to evaluate.
	Malformed []string `json:"malformed"`
}

// QueryChecker finds which instantiations of DECLARE templates a log
// satisfies.
type QueryChecker struct {
	checker  *checker.Checker
	compiler *Compiler
	logger   ports.Logger
}

// NewQueryChecker creates a QueryChecker.
func NewQueryChecker(c *checker.Checker, compiler *Compiler, logger ports.Logger) *QueryChecker {
	return &QueryChecker{checker: c, compiler: compiler, logger: logger}
}

// Candidates enumerates the constraints q describes over the activities of
// l. Binary templates never bind the same activity twice.
func (qc *QueryChecker) Candidates(l *declare.Log, q Query) []*declare.Constraint {
	q = q.withDefaults()
	logActivities := l.Activities()

	slot := func(fixed string) []string {
		if fixed != "" {
			return []string{fixed}
		}
		return logActivities
	}
	rules := declare.RuleBundle{
		Activation:          q.ActivationCondition,
		Correlation:         q.CorrelationCondition,
		Time:                q.TimeCondition,
		VacuousSatisfaction: q.ConsiderVacuity,
	}

	var out []*declare.Constraint
	for _, tmpl := range q.Templates {
		for _, a := range slot(q.Activation) {
			if !tmpl.IsBinary() {
				out = append(out, withCardinalities(tmpl, []string{a}, rules, q.MaxCardinality)...)
				continue
			}
			for _, b := range slot(q.Target) {
				if a == b {
					continue
				}
				out = append(out, &declare.Constraint{Template: tmpl, Activities: []string{a, b}, Rules: rules})
			}
		}
	}
	return out
}

func withCardinalities(tmpl declare.Template, acts []string, rules declare.RuleBundle, maxN int) []*declare.Constraint {
	if !tmpl.SupportsCardinality() {
		return []*declare.Constraint{{Template: tmpl, Activities: acts, Rules: rules}}
	}
	out := make([]*declare.Constraint, 0, maxN)
	for n := 1; n <= maxN; n++ {
		r := rules
		r.N = declare.IntPtr(n)
		out = append(out, &declare.Constraint{Template: tmpl, Activities: acts, Rules: r})
	}
	return out
}

// Run checks every candidate of q against the complete traces of l and
// returns those whose support is at least q.MinSupport. Support is the
// share of traces where the candidate holds; candidates skipped on every
// trace are never matches.
func (qc *QueryChecker) Run(ctx context.Context, l *declare.Log, q Query, opts LogOptions) (QueryResult, error) {
	if err := q.Validate(); err != nil {
		return QueryResult{}, err
	}
	q = q.withDefaults()

	candidates := qc.Candidates(l, q)
	m, err := qc.compiler.Compile(candidates)
	if err != nil {
		return QueryResult{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	qc.logger.Debug("query candidates", "count", m.Len(), "traces", len(l.Traces))

	// Candidate diagnostics stay out of the served model's malformed set.
	agg := NewAggregator(qc.checker, qc.logger)
	res, err := agg.CheckLog(ctx, l, true, m, opts)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query interrupted: %w", err)
	}

	result := QueryResult{
		Candidates: m.Len(),
		Matches:    []QueryMatch{},
		Malformed:  append([]string{}, agg.Malformed()...),
	}
	cons := m.Constraints()
	for i, s := range Summarize(m, res) {
		if s.Total() == 0 || s.Conformance() < q.MinSupport {
			continue
		}
		con := cons[i]
		result.Matches = append(result.Matches, QueryMatch{
			Constraint: s.Constraint,
			Template:   con.Template.Key(),
			Activities: con.Activities,
			N:          con.Rules.N,
			Support:    s.Conformance(),
			Summary:    s,
		})
	}
	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Support > result.Matches[j].Support
	})
	return result, nil
}
