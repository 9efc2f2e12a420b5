package checker_test

import (
	"errors"
	"testing"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/condition"
)

func newChecker() *checker.Checker {
	return checker.New(condition.NewEvaluator(0))
}

// trace builds a trace from activity names.
func trace(activities ...string) *declare.Trace {
	t := &declare.Trace{}
	for _, a := range activities {
		t.Events = append(t.Events, declare.Event{declare.ConceptName: a})
	}
	return t
}

func run(t *testing.T, template declare.Template, tr *declare.Trace, done bool, rules declare.RuleBundle) declare.CheckerResult {
	t.Helper()
	res, err := newChecker().Run(template, checker.Input{Trace: tr, Done: done, A: "A", B: "B", Rules: rules})
	if err != nil {
		t.Fatalf("Run(%s) failed: %v", template, err)
	}
	return res
}

func intOf(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestRun_DispatchesEveryTemplate(t *testing.T) {
	c := newChecker()
	for _, tmpl := range declare.Templates() {
		rules := declare.RuleBundle{}
		if tmpl.SupportsCardinality() {
			rules.N = declare.IntPtr(1)
		}
		_, err := c.Run(tmpl, checker.Input{Trace: trace("A", "B"), Done: true, A: "A", B: "B", Rules: rules})
		if errors.Is(err, declare.ErrUnsupportedTemplate) {
			t.Errorf("template %s is not dispatched", tmpl)
		}
	}
}

func TestRun_UnknownTemplate(t *testing.T) {
	_, err := newChecker().Run(declare.Template(99), checker.Input{Trace: trace("A")})
	if !errors.Is(err, declare.ErrUnsupportedTemplate) {
		t.Errorf("expected ErrUnsupportedTemplate, got %v", err)
	}
}

func TestRun_VacuousSatisfaction(t *testing.T) {
	// No event of A or B: nothing activates any template.
	for _, tmpl := range declare.Templates() {
		t.Run(tmpl.Key(), func(t *testing.T) {
			rules := declare.RuleBundle{VacuousSatisfaction: true}
			if tmpl.SupportsCardinality() {
				rules.N = declare.IntPtr(1)
			}
			res := run(t, tmpl, trace("C", "D"), true, rules)
			if res.State != declare.Satisfied {
				t.Errorf("expected SATISFIED, got %s", res.State)
			}
		})
	}
}

func TestRun_NilTrace(t *testing.T) {
	res, err := newChecker().Run(declare.Response, checker.Input{Done: true, A: "A", B: "B"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.State != declare.Violated {
		t.Errorf("expected VIOLATED, got %s", res.State)
	}
}

func TestRun_Deterministic(t *testing.T) {
	tr := trace("A", "C", "B", "A")
	rules := declare.RuleBundle{Activation: `A["concept:name"] == "A"`}
	for _, tmpl := range declare.Templates() {
		r := rules
		if tmpl.SupportsCardinality() {
			r.N = declare.IntPtr(2)
		}
		first := run(t, tmpl, tr, false, r)
		for i := 0; i < 5; i++ {
			again := run(t, tmpl, tr, false, r)
			if again.State != first.State || intOf(again.NumActivations) != intOf(first.NumActivations) {
				t.Fatalf("%s: result changed between calls: %+v vs %+v", tmpl, first, again)
			}
		}
	}
}

type verdictCase struct {
	name  string
	trace *declare.Trace
	done  bool
	rules declare.RuleBundle
	want  declare.TraceState
}

func runCases(t *testing.T, template declare.Template, cases []verdictCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := run(t, template, tc.trace, tc.done, tc.rules)
			if res.State != tc.want {
				t.Errorf("expected %s, got %s (%+v)", tc.want, res.State, res)
			}
		})
	}
}

func TestExistence(t *testing.T) {
	two := declare.RuleBundle{N: declare.IntPtr(2)}
	runCases(t, declare.Existence, []verdictCase{
		{"enough occurrences", trace("A", "B", "A"), true, two, declare.Satisfied},
		{"too few when done", trace("A", "B"), true, two, declare.Violated},
		{"too few on prefix", trace("A"), false, two, declare.PossiblyViolated},
		{"enough on prefix", trace("A", "A"), false, two, declare.Satisfied},
		{"activation filters", trace("A", "A"), true, declare.RuleBundle{N: declare.IntPtr(1), Activation: `A["concept:name"] != "A"`}, declare.Violated},
	})

	res := run(t, declare.Existence, trace("A", "B", "A"), true, two)
	if intOf(res.NumActivations) != 2 {
		t.Errorf("expected 2 activations, got %d", intOf(res.NumActivations))
	}
	if res.NumFulfillments != nil || res.NumViolations != nil || res.NumPendings != nil {
		t.Errorf("unary template must not set relation counters: %+v", res)
	}
}

func TestAbsence(t *testing.T) {
	one := declare.RuleBundle{N: declare.IntPtr(1)}
	runCases(t, declare.Absence, []verdictCase{
		{"within bound when done", trace("A", "B"), true, one, declare.Satisfied},
		{"within bound on prefix", trace("A", "B"), false, one, declare.PossiblySatisfied},
		{"exceeded when done", trace("A", "A"), true, one, declare.Violated},
		{"exceeded on prefix", trace("A", "A"), false, one, declare.Violated},
		{"absent", trace("B"), true, declare.RuleBundle{N: declare.IntPtr(0)}, declare.Satisfied},
	})
}

func TestInit(t *testing.T) {
	runCases(t, declare.Init, []verdictCase{
		{"starts with A", trace("A", "B"), false, declare.RuleBundle{}, declare.Satisfied},
		{"starts with B", trace("B", "A"), false, declare.RuleBundle{}, declare.Violated},
		{"empty prefix", trace(), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"empty when done", trace(), true, declare.RuleBundle{}, declare.Violated},
		{"activation fails", trace("A"), true, declare.RuleBundle{Activation: `T["concept:name"] == "X"`}, declare.Violated},
		{"vacuous only without any A", trace("B", "A"), true, declare.RuleBundle{VacuousSatisfaction: true}, declare.Violated},
	})
}

func TestExactly(t *testing.T) {
	two := declare.RuleBundle{N: declare.IntPtr(2)}
	runCases(t, declare.Exactly, []verdictCase{
		{"exact when done", trace("A", "A"), true, two, declare.Satisfied},
		{"exact on prefix", trace("A", "A"), false, two, declare.PossiblySatisfied},
		{"too many", trace("A", "A", "A"), false, two, declare.Violated},
		{"too few when done", trace("A"), true, two, declare.Violated},
		{"too few on prefix", trace("A"), false, two, declare.PossiblyViolated},
	})
}

func TestChoice(t *testing.T) {
	runCases(t, declare.Choice, []verdictCase{
		{"neither on prefix", trace("C", "D"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"neither when done", trace("C", "D"), true, declare.RuleBundle{}, declare.Violated},
		{"a occurs on prefix", trace("C", "A"), false, declare.RuleBundle{}, declare.Satisfied},
		{"a occurs when done", trace("C", "A"), true, declare.RuleBundle{}, declare.Satisfied},
		{"b occurs", trace("B"), true, declare.RuleBundle{}, declare.Satisfied},
	})

	res := run(t, declare.Choice, trace("A"), true, declare.RuleBundle{})
	if res.NumActivations != nil {
		t.Errorf("choice must not set counters: %+v", res)
	}
}

func TestExclusiveChoice(t *testing.T) {
	runCases(t, declare.ExclusiveChoice, []verdictCase{
		{"both on prefix", trace("A", "B"), false, declare.RuleBundle{}, declare.Violated},
		{"both when done", trace("A", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"one when done", trace("A"), true, declare.RuleBundle{}, declare.Satisfied},
		{"one on prefix", trace("A"), false, declare.RuleBundle{}, declare.PossiblySatisfied},
		{"neither on prefix", trace("C"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"neither when done", trace("C"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestRespondedExistence(t *testing.T) {
	runCases(t, declare.RespondedExistence, []verdictCase{
		{"b after", trace("A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"b before", trace("B", "A"), true, declare.RuleBundle{}, declare.Satisfied},
		{"missing when done", trace("A", "C"), true, declare.RuleBundle{}, declare.Violated},
		{"missing on prefix", trace("A", "C"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"no activation", trace("C"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestResponse(t *testing.T) {
	runCases(t, declare.Response, []verdictCase{
		{"open on prefix", trace("A", "C"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"open when done", trace("A", "C"), true, declare.RuleBundle{}, declare.Violated},
		{"fulfilled on prefix", trace("A", "B"), false, declare.RuleBundle{}, declare.Satisfied},
		{"fulfilled when done", trace("A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"b before only", trace("B", "A"), true, declare.RuleBundle{}, declare.Violated},
		{"one b serves many", trace("A", "A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"no activation prefix", trace("C"), false, declare.RuleBundle{}, declare.PossiblyViolated},
	})

	res := run(t, declare.Response, trace("A", "B", "A"), false, declare.RuleBundle{})
	if intOf(res.NumActivations) != 2 || intOf(res.NumFulfillments) != 1 || intOf(res.NumPendings) != 1 || intOf(res.NumViolations) != 0 {
		t.Errorf("unexpected counters: act=%d ful=%d viol=%d pend=%d",
			intOf(res.NumActivations), intOf(res.NumFulfillments), intOf(res.NumViolations), intOf(res.NumPendings))
	}
}

func TestResponse_SelfLoop(t *testing.T) {
	// An event cannot fulfil the obligation it opens.
	res, err := newChecker().Run(declare.Response, checker.Input{Trace: trace("A"), Done: true, A: "A", B: "A"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.State != declare.Violated {
		t.Errorf("expected VIOLATED, got %s", res.State)
	}
}

func TestResponse_Correlation(t *testing.T) {
	tr := &declare.Trace{Events: []declare.Event{
		{declare.ConceptName: "A", "order": "o1"},
		{declare.ConceptName: "B", "order": "o2"},
		{declare.ConceptName: "B", "order": "o1"},
	}}
	rules := declare.RuleBundle{Correlation: `A.order == B.order`}
	res := run(t, declare.Response, tr, true, rules)
	if res.State != declare.Satisfied {
		t.Errorf("expected SATISFIED, got %s", res.State)
	}

	tr.Events = tr.Events[:2]
	res = run(t, declare.Response, tr, true, rules)
	if res.State != declare.Violated {
		t.Errorf("expected VIOLATED, got %s", res.State)
	}
}

func TestAlternateResponse(t *testing.T) {
	runCases(t, declare.AlternateResponse, []verdictCase{
		{"alternating", trace("A", "B", "A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"two a before b", trace("A", "A", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"two a before b prefix", trace("A", "A", "B"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"open on prefix", trace("A", "B", "A"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"open when done", trace("A", "B", "A"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestChainResponse(t *testing.T) {
	runCases(t, declare.ChainResponse, []verdictCase{
		{"immediately followed", trace("A", "B", "C"), true, declare.RuleBundle{}, declare.Satisfied},
		{"gap", trace("A", "C", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"last event prefix", trace("C", "A"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"last event done", trace("C", "A"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestPrecedence(t *testing.T) {
	runCases(t, declare.Precedence, []verdictCase{
		{"a before b", trace("A", "C", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"b without a", trace("C", "B", "A"), true, declare.RuleBundle{}, declare.Violated},
		{"b without a prefix", trace("B"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"one a serves many b", trace("A", "B", "B"), true, declare.RuleBundle{}, declare.Satisfied},
	})
}

func TestAlternatePrecedence(t *testing.T) {
	runCases(t, declare.AlternatePrecedence, []verdictCase{
		{"alternating", trace("A", "B", "A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"a consumed", trace("A", "B", "B"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestChainPrecedence(t *testing.T) {
	runCases(t, declare.ChainPrecedence, []verdictCase{
		{"immediately preceded", trace("C", "A", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"gap", trace("A", "C", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"first event", trace("B"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestNotRespondedExistence(t *testing.T) {
	runCases(t, declare.NotRespondedExistence, []verdictCase{
		{"b present", trace("B", "A"), false, declare.RuleBundle{}, declare.Violated},
		{"b absent prefix", trace("A", "C"), false, declare.RuleBundle{}, declare.PossiblySatisfied},
		{"b absent done", trace("A", "C"), true, declare.RuleBundle{}, declare.Satisfied},
	})
}

func TestNotResponse(t *testing.T) {
	runCases(t, declare.NotResponse, []verdictCase{
		{"b after", trace("A", "C", "B"), false, declare.RuleBundle{}, declare.Violated},
		{"b only before", trace("B", "A"), true, declare.RuleBundle{}, declare.Satisfied},
		{"b only before prefix", trace("B", "A"), false, declare.RuleBundle{}, declare.PossiblySatisfied},
	})

	res := run(t, declare.NotResponse, trace("A", "C"), false, declare.RuleBundle{})
	if intOf(res.NumPendings) != 1 || intOf(res.NumFulfillments) != 0 {
		t.Errorf("expected one pending activation, got %+v", res)
	}
}

func TestNotChainResponse(t *testing.T) {
	runCases(t, declare.NotChainResponse, []verdictCase{
		{"immediately followed", trace("A", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"gap", trace("A", "C", "B"), true, declare.RuleBundle{}, declare.Satisfied},
		{"last event prefix", trace("A"), false, declare.RuleBundle{}, declare.PossiblySatisfied},
	})
}

func TestNotPrecedence(t *testing.T) {
	runCases(t, declare.NotPrecedence, []verdictCase{
		{"a before b", trace("A", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"a after b", trace("B", "A"), true, declare.RuleBundle{}, declare.Satisfied},
		{"a after b prefix", trace("B", "A"), false, declare.RuleBundle{}, declare.PossiblySatisfied},
	})
}

func TestNotChainPrecedence(t *testing.T) {
	runCases(t, declare.NotChainPrecedence, []verdictCase{
		{"immediately preceded", trace("A", "B"), true, declare.RuleBundle{}, declare.Violated},
		{"gap", trace("A", "C", "B"), true, declare.RuleBundle{}, declare.Satisfied},
	})
}

func TestNegative_NoActivationWithoutVacuity(t *testing.T) {
	runCases(t, declare.NotResponse, []verdictCase{
		{"prefix", trace("C"), false, declare.RuleBundle{}, declare.PossiblyViolated},
		{"done", trace("C"), true, declare.RuleBundle{}, declare.Violated},
	})
}

func TestRun_ConditionErrorPropagates(t *testing.T) {
	c := newChecker()
	for _, tmpl := range declare.Templates() {
		rules := declare.RuleBundle{Activation: `A.missing == 1`}
		if tmpl.SupportsCardinality() {
			rules.N = declare.IntPtr(1)
		}
		_, err := c.Run(tmpl, checker.Input{Trace: trace("A", "B"), Done: true, A: "A", B: "B", Rules: rules})
		if !declare.IsConditionError(err) {
			t.Errorf("%s: expected condition error, got %v", tmpl, err)
		}
	}
}

func TestCheck_UsesConstraint(t *testing.T) {
	con := &declare.Constraint{
		Template:   declare.Response,
		Activities: []string{"Submit", "Approve"},
		Rules:      declare.RuleBundle{Activation: `A.amount > 100`},
	}
	tr := &declare.Trace{Events: []declare.Event{
		{declare.ConceptName: "Submit", "amount": 50},
		{declare.ConceptName: "Submit", "amount": 500},
		{declare.ConceptName: "Approve", "amount": 0},
	}}

	res, err := newChecker().Check(tr, true, con)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.State != declare.Satisfied || intOf(res.NumActivations) != 1 {
		t.Errorf("expected SATISFIED with 1 activation, got %+v", res)
	}
}
