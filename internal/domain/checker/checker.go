package checker

import (
	"fmt"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

// Binding assigns events to the condition variables: A is the event under
// consideration, T the trace's first event, B the target event of a binary
// template. Unbound variables are nil.
type Binding struct {
	A declare.Event
	T declare.Event
	B declare.Event
}

// Conditions evaluates condition expressions against a binding.
// Implementations return *declare.ConditionSyntaxError or
// *declare.AttributeLookupError for malformed expressions.
type Conditions interface {
	Holds(expression string, b Binding) (bool, error)
}

// Input is the shared calling convention of every template checker.
type Input struct {
	Trace *declare.Trace
	// Done is true when the trace is known to be complete.
	Done bool
	// A and B are the target activities. B is empty for unary templates.
	A     string
	B     string
	Rules declare.RuleBundle
}

// Checker runs template checks against traces.
type Checker struct {
	conds Conditions
}

// New creates a Checker that evaluates conditions with conds.
func New(conds Conditions) *Checker {
	return &Checker{conds: conds}
}

// Check runs the constraint's template against the trace.
func (c *Checker) Check(t *declare.Trace, done bool, con *declare.Constraint) (declare.CheckerResult, error) {
	return c.Run(con.Template, Input{
		Trace: t,
		Done:  done,
		A:     con.Activity(0),
		B:     con.Activity(1),
		Rules: con.Rules,
	})
}

// Run dispatches to the checker of template.
func (c *Checker) Run(template declare.Template, in Input) (declare.CheckerResult, error) {
	s := &scan{Input: in, conds: c.conds}
	if in.Trace == nil {
		s.Trace = &declare.Trace{}
	}

	switch template {
	case declare.Existence:
		return s.existence()
	case declare.Absence:
		return s.absence()
	case declare.Init:
		return s.initial()
	case declare.Exactly:
		return s.exactly()
	case declare.Choice:
		return s.choice()
	case declare.ExclusiveChoice:
		return s.exclusiveChoice()
	case declare.RespondedExistence:
		return s.respondedExistence()
	case declare.Response:
		return s.response()
	case declare.AlternateResponse:
		return s.alternateResponse()
	case declare.ChainResponse:
		return s.chainResponse()
	case declare.Precedence:
		return s.precedence()
	case declare.AlternatePrecedence:
		return s.alternatePrecedence()
	case declare.ChainPrecedence:
		return s.chainPrecedence()
	case declare.NotRespondedExistence:
		return s.notRespondedExistence()
	case declare.NotResponse:
		return s.notResponse()
	case declare.NotChainResponse:
		return s.notChainResponse()
	case declare.NotPrecedence:
		return s.notPrecedence()
	case declare.NotChainPrecedence:
		return s.notChainPrecedence()
	default:
		return declare.CheckerResult{}, fmt.Errorf("%w: %s", declare.ErrUnsupportedTemplate, template.Key())
	}
}

// scan carries one checker call.
type scan struct {
	Input
	conds Conditions
}

func (s *scan) events() []declare.Event { return s.Trace.Events }

func (s *scan) holds(expression string, b Binding) (bool, error) {
	if expression == "" {
		return true, nil
	}
	return s.conds.Holds(expression, b)
}

// qualifies reports whether ev is an occurrence of activity satisfying the
// activation and time conditions. Used by unary and choice templates.
func (s *scan) qualifies(ev declare.Event, activity string) (bool, error) {
	if ev.Activity() != activity {
		return false, nil
	}
	b := Binding{A: ev, T: s.Trace.First()}
	ok, err := s.holds(s.Rules.Activation, b)
	if err != nil || !ok {
		return false, err
	}
	return s.holds(s.Rules.Time, b)
}

// activates reports whether ev is an occurrence of activity satisfying the
// activation condition. Used by relation templates.
func (s *scan) activates(ev declare.Event, activity string) (bool, error) {
	if ev.Activity() != activity {
		return false, nil
	}
	return s.holds(s.Rules.Activation, Binding{A: ev, T: s.Trace.First()})
}

// correlates reports whether target satisfies the correlation and time
// conditions relative to activation.
func (s *scan) correlates(activation, target declare.Event) (bool, error) {
	b := Binding{A: activation, T: s.Trace.First(), B: target}
	ok, err := s.holds(s.Rules.Correlation, b)
	if err != nil || !ok {
		return false, err
	}
	return s.holds(s.Rules.Time, b)
}

// unresolved is the state of an obligation still open or already failed.
func (s *scan) unresolved() declare.TraceState {
	if s.Done {
		return declare.Violated
	}
	return declare.PossiblyViolated
}

// settled is the state of a prohibition that has not been broken.
func (s *scan) settled() declare.TraceState {
	if s.Done {
		return declare.Satisfied
	}
	return declare.PossiblySatisfied
}

// vacuous returns the verdict for a relation template that never activated.
func (s *scan) vacuous() declare.TraceState {
	if s.Rules.VacuousSatisfaction {
		return declare.Satisfied
	}
	return s.unresolved()
}

func (s *scan) n() int {
	if s.Rules.N == nil {
		return 1
	}
	return *s.Rules.N
}

// counters builds a result carrying all four relation counters.
func counters(state declare.TraceState, activations, fulfillments, violations, pendings int) declare.CheckerResult {
	return declare.CheckerResult{
		State:           state,
		NumActivations:  declare.IntPtr(activations),
		NumFulfillments: declare.IntPtr(fulfillments),
		NumViolations:   declare.IntPtr(violations),
		NumPendings:     declare.IntPtr(pendings),
	}
}
