package report

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// document is the JSON view of a context that jsonPath queries run against.
func document(ctx Context) any {
	b, err := json.Marshal(map[string]any{
		"run_id":     ctx.RunID,
		"done":       ctx.Done,
		"summary":    ctx.Rows,
		"results":    ctx.Results,
		"malformed":  ctx.Malformed,
		"trace_keys": ctx.TraceKeys,
	})
	if err != nil {
		return nil
	}
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil
	}
	return data
}

func extractJSONPath(data any, expression string) string {
	if data == nil {
		return ""
	}
	result, err := jsonpath.Get(expression, data)
	if err != nil {
		return ""
	}
	switch v := result.(type) {
	case string:
		return v
	default:
		return toJSONString(v)
	}
}
