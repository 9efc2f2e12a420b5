package usecases_test

import (
	"context"
	"errors"
	"time"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/condition"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
	"github.com/sophialabs/declarecheck/internal/testutil"
)

type savedContent struct {
	constraint *declare.Constraint
	content    []byte
}

type deletedSource struct {
	file  string
	index int
}

type mockRepo struct {
	constraints []*declare.Constraint
	err         error

	saved   []savedContent
	deleted []deletedSource
}

func (r *mockRepo) LoadAll(_ context.Context) ([]*declare.Constraint, error) {
	return r.constraints, r.err
}

func (r *mockRepo) LoadByID(_ context.Context, id string) (*declare.Constraint, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.constraints {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, declare.ErrNotFound
}

func (r *mockRepo) SaveConstraint(_ context.Context, c *declare.Constraint, content []byte) error {
	r.saved = append(r.saved, savedContent{constraint: c, content: content})
	return nil
}

func (r *mockRepo) DeleteConstraint(_ context.Context, file string, index int) error {
	r.deleted = append(r.deleted, deletedSource{file: file, index: index})
	return nil
}

func (r *mockRepo) ReadSourceYAML(_ context.Context, _ *declare.Constraint) ([]byte, error) {
	return nil, errors.New("not implemented")
}

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newAggregator() *services.Aggregator {
	return services.NewAggregator(checker.New(condition.NewEvaluator(0)), &testutil.NoopLogger{})
}

func compile(cons ...*declare.Constraint) *services.Model {
	m, err := services.NewCompiler().Compile(cons)
	if err != nil {
		panic(err)
	}
	return m
}

func trace(caseID string, activities ...string) *declare.Trace {
	tr := &declare.Trace{Attributes: declare.Event{declare.ConceptName: caseID}}
	for _, a := range activities {
		tr.Events = append(tr.Events, declare.Event{declare.ConceptName: a})
	}
	return tr
}

// orderModel holds a response constraint and one whose condition refers to
// a missing attribute.
func orderModel() *services.Model {
	return compile(
		&declare.Constraint{ID: "resp", Template: declare.Response, Activities: []string{"Create", "Ship"}},
		&declare.Constraint{ID: "bad", Template: declare.Existence, Activities: []string{"Create"},
			Rules: declare.RuleBundle{N: declare.IntPtr(1), Activation: "A.missing > 1"}},
	)
}
