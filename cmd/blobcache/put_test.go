package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	input := `
blobs:
  - file: images/logo.png
    id: logo
    path: docs/images/logo.png
  - file: /abs/photo.jpg
    type: image/jpeg
    uri: https://example.com/photo.jpg
`
	entries, err := parseManifest([]byte(input), "/work")
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].File != filepath.Join("/work", "images/logo.png") || entries[0].ID != "logo" || entries[0].Path != "docs/images/logo.png" {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	if entries[1].File != "/abs/photo.jpg" || entries[1].Type != "image/jpeg" || entries[1].URI != "https://example.com/photo.jpg" {
		t.Fatalf("unexpected second entry %#v", entries[1])
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "empty"},
		{name: "no blobs", input: "blobs: []\n", want: "no blobs"},
		{name: "missing file", input: "blobs:\n  - id: a\n", want: "file is required"},
		{name: "unknown field", input: "blobs:\n  - file: a.png\n    colour: red\n", want: "colour"},
		{name: "duplicate id", input: "blobs:\n  - file: a.png\n    id: x\n  - file: b.png\n    id: x\n", want: "already used"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseManifest([]byte(tt.input), "/work")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
