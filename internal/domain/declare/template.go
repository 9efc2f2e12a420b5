package declare

import (
	"fmt"
	"strings"
)

// Arity is the number of target activities a template binds.
type Arity int

const (
	Unary Arity = iota + 1
	Binary
)

func (a Arity) String() string {
	switch a {
	case Unary:
		return "unary"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Template is one of the supported DECLARE templates. The set is closed.
type Template int

const (
	Existence Template = iota
	Absence
	Init
	Exactly
	Choice
	ExclusiveChoice
	RespondedExistence
	Response
	AlternateResponse
	ChainResponse
	Precedence
	AlternatePrecedence
	ChainPrecedence
	NotRespondedExistence
	NotResponse
	NotChainResponse
	NotPrecedence
	NotChainPrecedence

	templateCount
)

type templateInfo struct {
	key         string
	arity       Arity
	cardinality bool
}

var catalogue = [templateCount]templateInfo{
	Existence:             {"Existence", Unary, true},
	Absence:               {"Absence", Unary, true},
	Init:                  {"Init", Unary, false},
	Exactly:               {"Exactly", Unary, true},
	Choice:                {"Choice", Binary, false},
	ExclusiveChoice:       {"Exclusive Choice", Binary, false},
	RespondedExistence:    {"Responded Existence", Binary, false},
	Response:              {"Response", Binary, false},
	AlternateResponse:     {"Alternate Response", Binary, false},
	ChainResponse:         {"Chain Response", Binary, false},
	Precedence:            {"Precedence", Binary, false},
	AlternatePrecedence:   {"Alternate Precedence", Binary, false},
	ChainPrecedence:       {"Chain Precedence", Binary, false},
	NotRespondedExistence: {"Not Responded Existence", Binary, false},
	NotResponse:           {"Not Response", Binary, false},
	NotChainResponse:      {"Not Chain Response", Binary, false},
	NotPrecedence:         {"Not Precedence", Binary, false},
	NotChainPrecedence:    {"Not Chain Precedence", Binary, false},
}

// Templates returns every template in catalogue order.
func Templates() []Template {
	all := make([]Template, 0, templateCount)
	for t := Template(0); t < templateCount; t++ {
		all = append(all, t)
	}
	return all
}

// Valid reports whether t belongs to the catalogue.
func (t Template) Valid() bool {
	return t >= 0 && t < templateCount
}

// Key is the stable name used for result indexing and model files.
func (t Template) Key() string {
	if !t.Valid() {
		return fmt.Sprintf("Template(%d)", int(t))
	}
	return catalogue[t].key
}

func (t Template) String() string { return t.Key() }

// Arity returns Unary or Binary.
func (t Template) Arity() Arity {
	if !t.Valid() {
		return 0
	}
	return catalogue[t].arity
}

// IsBinary reports whether the template binds two activities.
func (t Template) IsBinary() bool { return t.Arity() == Binary }

// SupportsCardinality reports whether an n threshold applies.
func (t Template) SupportsCardinality() bool {
	return t.Valid() && catalogue[t].cardinality
}

// ParseTemplate resolves a template key. Matching ignores case and treats
// spaces, underscores and dashes as equivalent.
func ParseTemplate(key string) (Template, error) {
	want := normalizeKey(key)
	for t := Template(0); t < templateCount; t++ {
		if normalizeKey(catalogue[t].key) == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedTemplate, key)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
