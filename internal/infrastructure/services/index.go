package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

// Model is an ordered, compiled set of constraints indexed by ID and by
// canonical string.
type Model struct {
	constraints []*declare.Constraint
	keys        []string
	byID        map[string]int
	byKey       map[string]int
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		byID:  make(map[string]int),
		byKey: make(map[string]int),
	}
}

// Add appends a compiled constraint, keeping declaration order.
func (m *Model) Add(con *declare.Constraint) error {
	key := con.String()
	if _, dup := m.byKey[key]; dup {
		return fmt.Errorf("%w: %s", declare.ErrDuplicateConstraint, key)
	}
	if _, dup := m.byID[con.ID]; dup {
		return fmt.Errorf("%w: id %q", declare.ErrDuplicateConstraint, con.ID)
	}
	m.byKey[key] = len(m.constraints)
	m.byID[con.ID] = len(m.constraints)
	m.constraints = append(m.constraints, con)
	m.keys = append(m.keys, key)
	return nil
}

// Len returns the number of constraints.
func (m *Model) Len() int {
	return len(m.constraints)
}

// Constraints returns the constraints in declaration order.
func (m *Model) Constraints() []*declare.Constraint {
	return m.constraints
}

// Keys returns the canonical strings in declaration order.
func (m *Model) Keys() []string {
	return m.keys
}

// Lookup returns the constraint with the given ID.
func (m *Model) Lookup(id string) (*declare.Constraint, bool) {
	i, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return m.constraints[i], true
}

// LookupKey returns the constraint with the given canonical string.
func (m *Model) LookupKey(key string) (*declare.Constraint, bool) {
	i, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	return m.constraints[i], true
}

// Search returns constraints whose ID or canonical string contains query,
// case-insensitively. An empty query matches everything.
func (m *Model) Search(query string) []*declare.Constraint {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*declare.Constraint
	for i, con := range m.constraints {
		if q == "" ||
			strings.Contains(strings.ToLower(con.ID), q) ||
			strings.Contains(strings.ToLower(m.keys[i]), q) {
			out = append(out, con)
		}
	}
	return out
}

// Activities returns the sorted set of activities the model refers to.
func (m *Model) Activities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, con := range m.constraints {
		for _, a := range con.Activities {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Strings(out)
	return out
}
