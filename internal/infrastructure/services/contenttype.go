package services

import (
	"bytes"
	"path/filepath"
	"strings"
)

// LogFormat names an event log encoding.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatXES  LogFormat = "xes"
)

// DetectLogFormat determines the log format from an explicit content type,
// a file extension, or by sniffing the first bytes of the body, in that
// order. JSON is the fallback.
func DetectLogFormat(contentType string, fileName string, head []byte) LogFormat {
	if contentType != "" {
		ct := strings.ToLower(contentType)
		switch {
		case strings.Contains(ct, "xml"), strings.Contains(ct, "xes"):
			return FormatXES
		case strings.Contains(ct, "json"):
			return FormatJSON
		}
	}

	if fileName != "" {
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".xes", ".xml":
			return FormatXES
		case ".json":
			return FormatJSON
		}
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXES
	}
	return FormatJSON
}
