package services_test

import (
	"errors"
	"testing"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

func TestCompiler_CompileConstraint_ShapesRules(t *testing.T) {
	c := services.NewCompiler()

	tests := []struct {
		name            string
		con             declare.Constraint
		wantN           bool
		wantCorrelation bool
		wantActivities  int
	}{
		{
			name: "unary drops correlation",
			con: declare.Constraint{
				Template:   declare.Existence,
				Activities: []string{"A"},
				Rules:      declare.RuleBundle{N: declare.IntPtr(2), Correlation: "A.x == B.x"},
			},
			wantN:          true,
			wantActivities: 1,
		},
		{
			name: "binary drops n",
			con: declare.Constraint{
				Template:   declare.Response,
				Activities: []string{"A", "B"},
				Rules:      declare.RuleBundle{N: declare.IntPtr(2), Correlation: "A.x == B.x"},
			},
			wantCorrelation: true,
			wantActivities:  2,
		},
		{
			name: "init has neither",
			con: declare.Constraint{
				Template:   declare.Init,
				Activities: []string{"A", "extra"},
				Rules:      declare.RuleBundle{N: declare.IntPtr(3), Correlation: "true"},
			},
			wantActivities: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.CompileConstraint(&tt.con)
			if err != nil {
				t.Fatalf("CompileConstraint failed: %v", err)
			}
			if (got.Rules.N != nil) != tt.wantN {
				t.Errorf("N kept = %v, want %v", got.Rules.N != nil, tt.wantN)
			}
			if (got.Rules.Correlation != "") != tt.wantCorrelation {
				t.Errorf("Correlation kept = %v, want %v", got.Rules.Correlation != "", tt.wantCorrelation)
			}
			if len(got.Activities) != tt.wantActivities {
				t.Errorf("expected %d activities, got %v", tt.wantActivities, got.Activities)
			}
			if got.ID == "" {
				t.Error("expected a default ID")
			}
		})
	}
}

func TestCompiler_CompileConstraint_DoesNotMutateInput(t *testing.T) {
	c := services.NewCompiler()
	con := &declare.Constraint{
		ID:         "r1",
		Template:   declare.Response,
		Activities: []string{"A", "B"},
		Rules:      declare.RuleBundle{N: declare.IntPtr(2)},
	}
	if _, err := c.CompileConstraint(con); err != nil {
		t.Fatalf("CompileConstraint failed: %v", err)
	}
	if con.Rules.N == nil || *con.Rules.N != 2 {
		t.Error("input constraint was modified")
	}
}

func TestCompiler_ConfigurationErrors(t *testing.T) {
	c := services.NewCompiler()

	tests := []struct {
		name string
		con  declare.Constraint
		want error
	}{
		{
			name: "unknown template",
			con:  declare.Constraint{Template: declare.Template(99), Activities: []string{"A"}},
			want: declare.ErrUnsupportedTemplate,
		},
		{
			name: "binary with one activity",
			con:  declare.Constraint{Template: declare.Precedence, Activities: []string{"A"}},
			want: declare.ErrMissingActivity,
		},
		{
			name: "empty activity name",
			con:  declare.Constraint{Template: declare.Response, Activities: []string{"A", ""}},
			want: declare.ErrMissingActivity,
		},
		{
			name: "cardinality absent",
			con:  declare.Constraint{Template: declare.Exactly, Activities: []string{"A"}},
			want: declare.ErrMissingCardinality,
		},
		{
			name: "negative cardinality",
			con: declare.Constraint{
				Template:   declare.Absence,
				Activities: []string{"A"},
				Rules:      declare.RuleBundle{N: declare.IntPtr(-1)},
			},
			want: declare.ErrInvalidCardinality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile([]*declare.Constraint{&tt.con})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompiler_MalformedConditionIsNotAConfigurationError(t *testing.T) {
	c := services.NewCompiler()
	m, err := c.Compile([]*declare.Constraint{{
		Template:   declare.Response,
		Activities: []string{"A", "B"},
		Rules:      declare.RuleBundle{Activation: "A.x >"},
	}})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 constraint, got %d", m.Len())
	}
}

func TestCompiler_RejectsDuplicates(t *testing.T) {
	c := services.NewCompiler()

	_, err := c.Compile([]*declare.Constraint{
		{ID: "a", Template: declare.Response, Activities: []string{"A", "B"}},
		{ID: "b", Template: declare.Response, Activities: []string{"A", "B"}},
	})
	if !errors.Is(err, declare.ErrDuplicateConstraint) {
		t.Errorf("expected duplicate canonical form to fail, got %v", err)
	}

	_, err = c.Compile([]*declare.Constraint{
		{ID: "a", Template: declare.Response, Activities: []string{"A", "B"}},
		{ID: "a", Template: declare.Precedence, Activities: []string{"A", "B"}},
	})
	if !errors.Is(err, declare.ErrDuplicateConstraint) {
		t.Errorf("expected duplicate ID to fail, got %v", err)
	}
}
