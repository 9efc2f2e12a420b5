package declare

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleBundle holds the conditions and parameters of one constraint check.
// Empty expressions are trivially true.
type RuleBundle struct {
	Activation          string
	Correlation         string
	Time                string
	N                   *int
	VacuousSatisfaction bool
}

// Constraint binds a template to its target activities and rules.
type Constraint struct {
	ID         string
	Template   Template
	Activities []string
	Rules      RuleBundle

	// SourceFile is the absolute path of the model file that declared the
	// constraint. SourceIndex is its position in that file's constraint
	// sequence, or -1 when the file holds a single constraint.
	SourceFile  string
	SourceIndex int
}

// Activity returns the i-th target activity, or "" if absent.
func (c *Constraint) Activity(i int) string {
	if i < 0 || i >= len(c.Activities) {
		return ""
	}
	return c.Activities[i]
}

// String returns the canonical form used to key results, e.g.
// "Response[A, B] |act |corr |time" or "Existence2[A] |act |time".
func (c *Constraint) String() string {
	var b strings.Builder
	b.WriteString(c.Template.Key())
	if c.Template.SupportsCardinality() && c.Rules.N != nil {
		b.WriteString(strconv.Itoa(*c.Rules.N))
	}
	b.WriteByte('[')
	b.WriteString(strings.Join(c.Activities, ", "))
	b.WriteString("] |")
	b.WriteString(c.Rules.Activation)
	if c.Template.IsBinary() {
		b.WriteString(" |")
		b.WriteString(c.Rules.Correlation)
	}
	b.WriteString(" |")
	b.WriteString(c.Rules.Time)
	return b.String()
}

// Validate reports configuration errors: unknown template, missing
// activities, and missing or negative cardinality.
func (c *Constraint) Validate() error {
	if !c.Template.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedTemplate, c.Template.Key())
	}
	want := 1
	if c.Template.IsBinary() {
		want = 2
	}
	if len(c.Activities) < want {
		return fmt.Errorf("%w: %s needs %d activities, got %d", ErrMissingActivity, c.Template.Key(), want, len(c.Activities))
	}
	for i := 0; i < want; i++ {
		if strings.TrimSpace(c.Activities[i]) == "" {
			return fmt.Errorf("%w: %s activity %d is empty", ErrMissingActivity, c.Template.Key(), i+1)
		}
	}
	if c.Template.SupportsCardinality() {
		if c.Rules.N == nil {
			return fmt.Errorf("%w: %s", ErrMissingCardinality, c.Template.Key())
		}
		if *c.Rules.N < 0 {
			return fmt.Errorf("%w: %s n=%d", ErrInvalidCardinality, c.Template.Key(), *c.Rules.N)
		}
	}
	return nil
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
