// Package eventlog decodes event logs into declare.Log values.
package eventlog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

var _ declare.LogReader = (*XESReader)(nil)

var traceSelector = xpath.MustCompile("/log/trace")

// Date layouts seen in XES files, most specific first.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// XESReader reads IEEE XES documents. Only flat attributes are kept;
// list and container attributes are ignored.
type XESReader struct{}

// NewXESReader creates an XESReader.
func NewXESReader() *XESReader {
	return &XESReader{}
}

// ReadLog parses an XES document from r.
func (x *XESReader) ReadLog(ctx context.Context, r io.Reader) (*declare.Log, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XES: %w", err)
	}

	nodes := xmlquery.QuerySelectorAll(doc, traceSelector)
	log := &declare.Log{Traces: make([]declare.Trace, 0, len(nodes))}
	for i, tn := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trace, err := readTrace(tn)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		log.Traces = append(log.Traces, trace)
	}
	return log, nil
}

func readTrace(tn *xmlquery.Node) (declare.Trace, error) {
	trace := declare.Trace{Attributes: declare.Event{}}
	for child := tn.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if child.Data == "event" {
			ev, err := readEvent(child)
			if err != nil {
				return trace, fmt.Errorf("event %d: %w", len(trace.Events), err)
			}
			trace.Events = append(trace.Events, ev)
			continue
		}
		if err := readAttribute(child, trace.Attributes); err != nil {
			return trace, err
		}
	}
	return trace, nil
}

func readEvent(en *xmlquery.Node) (declare.Event, error) {
	ev := declare.Event{}
	for child := en.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if err := readAttribute(child, ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// readAttribute stores a typed attribute element into dst. Unknown
// element kinds are skipped.
func readAttribute(n *xmlquery.Node, dst declare.Event) error {
	key := n.SelectAttr("key")
	raw := n.SelectAttr("value")
	if key == "" {
		return nil
	}

	switch n.Data {
	case "string", "id":
		dst[key] = raw
	case "date":
		t, err := parseTimestamp(raw)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		dst[key] = t
	case "int":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("attribute %q: invalid int %q", key, raw)
		}
		dst[key] = int(v)
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("attribute %q: invalid float %q", key, raw)
		}
		dst[key] = v
	case "boolean":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("attribute %q: invalid boolean %q", key, raw)
		}
		dst[key] = v
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
