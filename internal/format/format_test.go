package format

import (
	"bytes"
	"testing"
)

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	if err := (JSONFormatter{Indent: true}).Write(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected indented output %q", buf.String())
	}
}

func TestPlainFormatterSkipsEmptyValues(t *testing.T) {
	var buf bytes.Buffer
	fields := []Field{{"id", "logo"}, {"uri", ""}, {"media_type", "image/png"}}
	if err := (PlainFormatter{}).Write(&buf, fields); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, want := buf.String(), "id: logo\nmedia_type: image/png\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
