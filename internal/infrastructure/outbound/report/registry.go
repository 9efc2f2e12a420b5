package report

import (
	"fmt"
	"sort"
)

// EngineCompiler compiles a template source string into a Renderer.
type EngineCompiler interface {
	Compile(name, source string) (Renderer, error)
}

// Registry maps engine names to their compilers.
type Registry struct {
	engines map[string]EngineCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]EngineCompiler{
			"expr":   &ExprCompiler{},
			"jinja2": &Jinja2Compiler{},
		},
	}
}

// Engines lists the registered engine names.
func (r *Registry) Engines() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile resolves the engine by name and compiles the source.
func (r *Registry) Compile(engine, name, source string) (Renderer, error) {
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
	}
	return ec.Compile(name, source)
}

// Render compiles source with engine, or the engine's default template when
// source is empty, and renders ctx.
func (r *Registry) Render(engine, name, source string, ctx Context) ([]byte, error) {
	if source == "" {
		def, ok := defaultTemplates[engine]
		if !ok {
			return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
		}
		source = def
		name = engine + "-default"
	}
	renderer, err := r.Compile(engine, name, source)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx)
}

var defaultTemplates = map[string]string{
	"expr": `run ${runID} at ${generatedAt} (done=${done})
${traces} traces, ${constraints} constraints
${join(map(summary, {.Constraint + ": " + pct(.Conformance) + " conformant, " + string(.Violated) + " violated"}), "\n")}
malformed: ${len(malformed) == 0 ? "none" : join(malformed, ", ")}
`,
	"jinja2": `run {{ run_id }} at {{ generated_at }} (done={{ done }})
{{ traces }} traces, {{ constraints }} constraints
{% for s in summary %}{{ s.Constraint }}: {{ pct(s.Conformance) }} conformant, {{ s.Violated }} violated
{% endfor %}malformed: {% if malformed %}{{ malformed|join:", " }}{% else %}none{% endif %}
`,
}
