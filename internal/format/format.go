package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes one JSON document per payload. Indent pretty-prints
// with two spaces.
type JSONFormatter struct {
	Indent bool
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// Field is one key/value line of a plain detail view.
type Field struct {
	Key   string
	Value string
}

// PlainFormatter writes "key: value" lines, skipping empty values.
type PlainFormatter struct{}

// Write accepts []Field; any other payload is printed with %v.
func (PlainFormatter) Write(w io.Writer, payload any) error {
	fields, ok := payload.([]Field)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", payload)
		return err
	}
	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field.Value) == "" {
			continue
		}
		lines = append(lines, field.Key+": "+field.Value)
	}
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
