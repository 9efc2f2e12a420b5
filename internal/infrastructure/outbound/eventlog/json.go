package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/PaesslerAG/jsonpath"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

var _ declare.LogReader = (*JSONReader)(nil)

// DefaultTracesPath selects the trace array of a JSON log.
const DefaultTracesPath = "$.traces"

// JSONReader reads logs encoded as JSON. The traces path selects an array
// whose items are either {"attributes": {...}, "events": [...]} objects or
// bare event arrays.
type JSONReader struct {
	tracesPath string
}

// NewJSONReader creates a JSONReader. An empty path means DefaultTracesPath.
func NewJSONReader(tracesPath string) *JSONReader {
	if tracesPath == "" {
		tracesPath = DefaultTracesPath
	}
	return &JSONReader{tracesPath: tracesPath}
}

// ReadLog decodes a JSON log from r.
func (j *JSONReader) ReadLog(ctx context.Context, r io.Reader) (*declare.Log, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("parsing JSON log: %w", err)
	}

	selected, err := jsonpath.Get(j.tracesPath, data)
	if err != nil {
		return nil, fmt.Errorf("selecting traces at %q: %w", j.tracesPath, err)
	}
	items, ok := selected.([]any)
	if !ok {
		return nil, fmt.Errorf("value at %q is not an array", j.tracesPath)
	}

	log := &declare.Log{Traces: make([]declare.Trace, 0, len(items))}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trace, err := DecodeTrace(item)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		log.Traces = append(log.Traces, trace)
	}
	return log, nil
}

// DecodeTrace converts one decoded JSON value into a trace.
func DecodeTrace(v any) (declare.Trace, error) {
	var trace declare.Trace
	var events []any

	switch t := v.(type) {
	case []any:
		events = t
	case map[string]any:
		if attrs, ok := t["attributes"]; ok && attrs != nil {
			m, ok := attrs.(map[string]any)
			if !ok {
				return trace, fmt.Errorf("attributes must be an object")
			}
			ev, err := toEvent(m)
			if err != nil {
				return trace, err
			}
			trace.Attributes = ev
		}
		if raw, ok := t["events"]; ok && raw != nil {
			events, ok = raw.([]any)
			if !ok {
				return trace, fmt.Errorf("events must be an array")
			}
		}
	default:
		return trace, fmt.Errorf("expected an object or an array, got %T", v)
	}

	trace.Events = make([]declare.Event, 0, len(events))
	for i, raw := range events {
		m, ok := raw.(map[string]any)
		if !ok {
			return trace, fmt.Errorf("event %d: expected an object, got %T", i, raw)
		}
		ev, err := toEvent(m)
		if err != nil {
			return trace, fmt.Errorf("event %d: %w", i, err)
		}
		trace.Events = append(trace.Events, ev)
	}
	return trace, nil
}

func toEvent(m map[string]any) (declare.Event, error) {
	ev := make(declare.Event, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && k == declare.Timestamp {
			t, err := parseTimestamp(s)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			ev[k] = t
			continue
		}
		ev[k] = normalize(v)
	}
	return ev, nil
}

// normalize turns json.Number values into int or float64.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	default:
		return v
	}
}
