package services

import (
	"fmt"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

// Compiler turns loaded constraints into a checkable Model.
// Configuration errors fail the whole compilation; malformed conditions do
// not, they are left to the Aggregator.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileConstraint validates a constraint and returns a copy whose rule
// bundle is shaped for its template: N is kept only for cardinality
// templates and Correlation only for binary ones.
func (c *Compiler) CompileConstraint(con *declare.Constraint) (*declare.Constraint, error) {
	if err := con.Validate(); err != nil {
		return nil, fmt.Errorf("failed to compile constraint %q: %w", con.ID, err)
	}

	out := *con
	out.Activities = append([]string(nil), con.Activities[:arity(con.Template)]...)
	if !con.Template.SupportsCardinality() {
		out.Rules.N = nil
	} else {
		out.Rules.N = declare.IntPtr(*con.Rules.N)
	}
	if !con.Template.IsBinary() {
		out.Rules.Correlation = ""
	}
	if out.ID == "" {
		out.ID = out.String()
	}
	return &out, nil
}

// Compile compiles constraints in order into a Model. Two constraints with
// the same ID or canonical form are rejected.
func (c *Compiler) Compile(constraints []*declare.Constraint) (*Model, error) {
	m := NewModel()
	for _, con := range constraints {
		compiled, err := c.CompileConstraint(con)
		if err != nil {
			return nil, err
		}
		if err := m.Add(compiled); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func arity(t declare.Template) int {
	if t.IsBinary() {
		return 2
	}
	return 1
}
