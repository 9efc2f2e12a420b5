package condition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	"github.com/golang/groupcache/lru"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

// DefaultCacheSize is the number of compiled expressions kept when no size is given.
const DefaultCacheSize = 512

var _ checker.Conditions = (*Evaluator)(nil)

// Evaluator evaluates condition expressions with the Expr language.
// Attribute access on A, T and B is checked: a missing key is an
// *declare.AttributeLookupError rather than nil.
type Evaluator struct {
	mu    sync.Mutex
	cache *lru.Cache
}

type compiled struct {
	program *vm.Program
	err     error
}

// NewEvaluator creates an Evaluator caching up to cacheSize compiled programs.
func NewEvaluator(cacheSize int) *Evaluator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Evaluator{cache: lru.New(cacheSize)}
}

// Holds evaluates expression against the binding.
func (e *Evaluator) Holds(expression string, b checker.Binding) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, map[string]any{
		"A": b.A,
		"T": b.T,
		"B": b.B,
	})
	if err != nil {
		var lookup *declare.AttributeLookupError
		if errors.As(err, &lookup) {
			return false, lookup
		}
		return false, &declare.ConditionSyntaxError{Expression: expression, Err: err}
	}

	result, ok := out.(bool)
	if !ok {
		return false, &declare.ConditionSyntaxError{
			Expression: expression,
			Err:        fmt.Errorf("expected boolean result, got %T", out),
		}
	}
	return result, nil
}

// Validate compiles expression without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.Lock()
	if v, ok := e.cache.Get(expression); ok {
		e.mu.Unlock()
		c := v.(compiled)
		return c.program, c.err
	}
	e.mu.Unlock()

	program, err := expr.Compile(expression,
		expr.Env(map[string]any{
			"A": declare.Event{},
			"T": declare.Event{},
			"B": declare.Event{},
		}),
		expr.Function("attr", lookupAttribute, new(func(string, declare.Event, any) any)),
		expr.Patch(attributePatcher{}),
		expr.AsBool(),
	)
	if err != nil {
		err = &declare.ConditionSyntaxError{Expression: expression, Err: err}
	}

	e.mu.Lock()
	e.cache.Add(expression, compiled{program: program, err: err})
	e.mu.Unlock()
	return program, err
}

// attributePatcher rewrites every member access on A, T and B, literal
// (A.key, A["key"]) or computed (A[T.field]), into attr("A", A, key).
type attributePatcher struct{}

func (attributePatcher) Visit(node *ast.Node) {
	member, ok := (*node).(*ast.MemberNode)
	if !ok {
		return
	}
	ident, ok := member.Node.(*ast.IdentifierNode)
	if !ok || !isVariable(ident.Value) {
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee: &ast.IdentifierNode{Value: "attr"},
		Arguments: []ast.Node{
			&ast.StringNode{Value: ident.Value},
			&ast.IdentifierNode{Value: ident.Value},
			member.Property,
		},
	})
}

func isVariable(name string) bool {
	return name == "A" || name == "T" || name == "B"
}

func lookupAttribute(params ...any) (any, error) {
	variable, _ := params[0].(string)
	ev, _ := params[1].(declare.Event)
	key, ok := params[2].(string)
	if !ok {
		return nil, fmt.Errorf("attribute name on %s must be a string, got %T", variable, params[2])
	}

	if ev == nil {
		return nil, &declare.AttributeLookupError{Variable: variable, Attribute: key, Unbound: true}
	}
	v, ok := ev[key]
	if !ok {
		return nil, &declare.AttributeLookupError{Variable: variable, Attribute: key}
	}
	return v, nil
}
