package report

import (
	"fmt"
	"time"

	"github.com/flosch/pongo2/v6"
)

// Jinja2Compiler compiles report templates using Pongo2 (Django/Jinja2-style).
type Jinja2Compiler struct{}

// Compile parses the source as a Pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (Renderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 template %q: %w", name, err)
	}
	return &jinja2Renderer{tpl: tpl}, nil
}

type jinja2Renderer struct {
	tpl *pongo2.Template
}

func (r *jinja2Renderer) Render(ctx Context) ([]byte, error) {
	var doc any
	pongoCtx := pongo2.Context{
		"run_id":       ctx.RunID,
		"generated_at": ctx.GeneratedAt.Format(time.RFC3339),
		"done":         ctx.Done,
		"traces":       len(ctx.Results),
		"constraints":  len(ctx.Rows),
		"summary":      ctx.Rows,
		"trace_keys":   ctx.TraceKeys,
		"malformed":    ctx.Malformed,
		"totals":       ctx.Totals(),

		"state":     ctx.State,
		"pct":       percent,
		"nowFormat": ctx.GeneratedAt.Format,
		"toJSON":    toJSONString,
		"jsonPath": func(expression string) string {
			if doc == nil {
				doc = document(ctx)
			}
			return extractJSONPath(doc, expression)
		},
	}

	result, err := r.tpl.Execute(pongoCtx)
	if err != nil {
		return nil, fmt.Errorf("jinja2 template render failed: %w", err)
	}
	return []byte(result), nil
}
