package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprCompiler compiles report templates using the Expr language with ${ } interpolation.
type ExprCompiler struct{}

// Compile parses the source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (Renderer, error) {
	segments, err := parseExprSegments(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr template %q: %w", name, err)
	}
	return &exprRenderer{segments: segments}, nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

func parseExprSegments(source string) ([]exprSegment, error) {
	var segments []exprSegment
	remaining := source

	for {
		idx := strings.Index(remaining, "${")
		if idx < 0 {
			if remaining != "" {
				segments = append(segments, exprSegment{static: remaining})
			}
			break
		}

		if idx > 0 {
			segments = append(segments, exprSegment{static: remaining[:idx]})
		}

		rest := remaining[idx+2:]
		closeIdx := findClosingBrace(rest)
		if closeIdx < 0 {
			return nil, fmt.Errorf("unclosed ${ at position %d", len(source)-len(remaining)+idx)
		}

		expression := rest[:closeIdx]
		program, err := expr.Compile(expression, expr.Env(exprEnv{}))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		segments = append(segments, exprSegment{program: program})
		remaining = rest[closeIdx+1:]
	}

	return segments, nil
}

// findClosingBrace finds the matching } accounting for nested braces and
// quoted strings.
func findClosingBrace(s string) int {
	depth := 0
	inString := false
	var stringChar byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if ch == stringChar {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			inString = true
			stringChar = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// exprEnv defines the environment available to report expressions.
type exprEnv struct {
	RunID       string                      `expr:"runID"`
	GeneratedAt string                      `expr:"generatedAt"`
	Done        bool                        `expr:"done"`
	Traces      int                         `expr:"traces"`
	Constraints int                         `expr:"constraints"`
	Summary     []Row                       `expr:"summary"`
	TraceKeys   []string                    `expr:"traceKeys"`
	Malformed   []string                    `expr:"malformed"`
	Totals      map[string]int              `expr:"totals"`
	State       func(string, string) string `expr:"state"`
	Pct         func(float64) string        `expr:"pct"`
	NowFormat   func(string) string         `expr:"nowFormat"`
	ToJSON      func(any) string            `expr:"toJSON"`
	JsonPath    func(string) string         `expr:"jsonPath"`
}

func buildExprEnv(ctx Context) exprEnv {
	var doc any
	return exprEnv{
		RunID:       ctx.RunID,
		GeneratedAt: ctx.GeneratedAt.Format(time.RFC3339),
		Done:        ctx.Done,
		Traces:      len(ctx.Results),
		Constraints: len(ctx.Rows),
		Summary:     ctx.Rows,
		TraceKeys:   ctx.TraceKeys,
		Malformed:   ctx.Malformed,
		Totals:      ctx.Totals(),
		State:       ctx.State,
		Pct:         percent,
		NowFormat:   ctx.GeneratedAt.Format,
		ToJSON:      toJSONString,
		JsonPath: func(expression string) string {
			if doc == nil {
				doc = document(ctx)
			}
			return extractJSONPath(doc, expression)
		},
	}
}

type exprRenderer struct {
	segments []exprSegment
}

func (r *exprRenderer) Render(ctx Context) ([]byte, error) {
	env := buildExprEnv(ctx)

	var buf strings.Builder
	for _, seg := range r.segments {
		if seg.program == nil {
			buf.WriteString(seg.static)
			continue
		}
		result, err := expr.Run(seg.program, env)
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed: %w", err)
		}
		fmt.Fprintf(&buf, "%v", result)
	}
	return []byte(buf.String()), nil
}
